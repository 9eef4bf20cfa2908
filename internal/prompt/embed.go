package prompt

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.txt
var builtinFS embed.FS

// BuiltinFS returns the embedded filesystem containing the default templates.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinFS, "templates")
	if err != nil {
		// This should never happen with a valid embed
		return builtinFS
	}
	return sub
}
