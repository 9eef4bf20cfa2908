package store

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Key layout. Source documents land under originals/ (browser grants)
// or uploaded/ (resolved references); derived artifacts live under
// processed/, attributes/, and bda-outputs/.
const (
	PrefixOriginals  = "originals/"
	PrefixUploaded   = "uploaded/"
	PrefixProcessed  = "processed/"
	PrefixResults    = "attributes/"
	PrefixAutomation = "bda-outputs/"
	PrefixFewShots   = "few_shots/"
)

// ResultKey derives the result object key for an input key. The first
// path segment is dropped and a trailing .txt is stripped so a
// document and its processed text land on the same result key:
// originals/contract.pdf and processed/contract.pdf.txt both map to
// attributes/contract.pdf.json.
func ResultKey(inputKey string) string {
	name := inputKey
	if _, rest, found := strings.Cut(inputKey, "/"); found {
		name = rest
	}
	name = strings.TrimSuffix(name, ".txt")
	return PrefixResults + name + ".json"
}

// ProcessedKey is where extracted plain text for inputKey is stored.
// The original extension stays in the name so ResultKey unifies. Keys
// already ending in .txt keep a single suffix.
func ProcessedKey(inputKey string) string {
	base := path.Base(inputKey)
	if !strings.HasSuffix(strings.ToLower(base), ".txt") {
		base += ".txt"
	}
	return PrefixProcessed + base
}

// UploadedKey places an externally-sourced document under uploaded/
// with a random suffix so concurrent resolutions never collide.
func UploadedKey(fileName string) string {
	base := path.Base(fileName)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%s_%s%s", PrefixUploaded, stem, suffix, ext)
}

// GrantKey is the canonical key for a browser-uploaded document.
func GrantKey(fileName string) string {
	return PrefixOriginals + path.Base(fileName)
}

// ContentTypeFor maps a file name to the content type stored with it.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
