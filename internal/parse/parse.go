// Package parse recovers structured answers from raw model output.
//
// Model replies are expected to wrap their answer in <json> tags, but the
// parser tolerates missing tags, missing braces, doubled braces, blank-line
// separated key/value runs, single quotes, and trailing commas.
package parse

import (
	"errors"
	"regexp"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// ErrNotObject is returned when the reply parses to a non-object value.
var ErrNotObject = errors.New("parsed value is not an object")

var blankLines = regexp.MustCompile(`\n{2,}`)

// Object extracts a JSON object from text. On any failure it returns an
// empty, non-nil map together with the error so callers can keep the raw
// text and continue.
func Object(text string) (map[string]any, error) {
	candidate := normalize(text)

	var value any
	if err := json5.Unmarshal([]byte(candidate), &value); err != nil {
		return map[string]any{}, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return map[string]any{}, ErrNotObject
	}
	return obj, nil
}

// normalize applies the repair pipeline: tag extraction, blank-line
// collapsing, brace wrapping, doubled-brace collapsing.
func normalize(text string) string {
	s := text
	if i := strings.Index(s, "<json>"); i >= 0 {
		s = s[i+len("<json>"):]
	}
	if i := strings.LastIndex(s, "</json>"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	// Models sometimes emit key/value runs separated by blank lines
	// instead of commas.
	s = blankLines.ReplaceAllString(s, ",")

	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		s = "{" + s
	}
	if !strings.HasSuffix(s, "}") && !strings.HasSuffix(s, "]") {
		s = s + "}"
	}

	// Doubled braces come from template-escaped examples leaking into
	// the reply.
	s = strings.ReplaceAll(s, "}}", "}")
	s = strings.ReplaceAll(s, "{{", "{")

	return s
}
