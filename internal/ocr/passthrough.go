package ocr

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// Passthrough serves documents that are already plain text. The object is
// copied under processed/ unchanged.
type Passthrough struct {
	store store.Gateway
}

func NewPassthrough(gw store.Gateway) *Passthrough {
	return &Passthrough{store: gw}
}

func (p *Passthrough) ParseToText(ctx context.Context, inputKey string) (string, error) {
	if strings.ToLower(path.Ext(inputKey)) != ".txt" {
		return "", models.Errorf(models.ErrUnsupportedFormat, "passthrough parser handles .txt inputs, got %q", path.Base(inputKey))
	}
	processed := store.ProcessedKey(inputKey)
	if err := p.store.Copy(ctx, "", inputKey, processed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", models.Errorf(models.ErrArtifactUnavailable, "document %s not found", inputKey)
		}
		return "", models.Errorf(models.ErrParsingStageFailed, "copy %s to %s: %v", inputKey, processed, err)
	}
	return processed, nil
}
