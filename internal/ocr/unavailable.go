package ocr

import (
	"context"

	"github.com/haasonsaas/quarry/pkg/models"
)

// Unavailable stands in for an external OCR service that is not
// configured. Every call fails with ParsingStageFailed.
type Unavailable struct{}

func (Unavailable) ParseToText(ctx context.Context, inputKey string) (string, error) {
	return "", models.Errorf(models.ErrParsingStageFailed, "no OCR service configured for %s", inputKey)
}
