// Package ocr turns source documents into plain text ahead of the text
// extraction flow. Parsers read the input object from the artifact store,
// write the text under processed/, and hand back the processed key so the
// result key stays unified with the original document.
package ocr

import (
	"context"
	"path"
	"strings"

	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// TextParser converts the document at inputKey into plain text stored at
// the returned key.
type TextParser interface {
	ParseToText(ctx context.Context, inputKey string) (string, error)
}

// ForDocument picks the pre-stage parser for a text-mode input by
// extension. Inputs that are already .txt pass through unchanged.
func ForDocument(gw store.Gateway, inputKey string) (TextParser, error) {
	switch strings.ToLower(path.Ext(inputKey)) {
	case ".txt":
		return NewPassthrough(gw), nil
	case ".pdf":
		return NewPDFText(gw), nil
	}
	return nil, models.Errorf(models.ErrUnsupportedFormat, "no text parser for %q", path.Base(inputKey))
}
