package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// PDFText extracts the embedded text layer of a PDF. Scanned PDFs without
// a text layer fail with ParsingStageFailed; those need the image flow or
// an external OCR service.
type PDFText struct {
	store store.Gateway
}

func NewPDFText(gw store.Gateway) *PDFText {
	return &PDFText{store: gw}
}

func (p *PDFText) ParseToText(ctx context.Context, inputKey string) (string, error) {
	body, err := p.store.Get(ctx, inputKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", models.Errorf(models.ErrArtifactUnavailable, "document %s not found", inputKey)
		}
		return "", models.Errorf(models.ErrParsingStageFailed, "read %s: %v", inputKey, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", models.Errorf(models.ErrParsingStageFailed, "read %s: %v", inputKey, err)
	}

	text, err := pdfPlainText(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", models.Errorf(models.ErrParsingStageFailed, "extract text from %s: %v", inputKey, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", models.Errorf(models.ErrParsingStageFailed, "document %s has no text layer", inputKey)
	}

	processed := store.ProcessedKey(inputKey)
	if err := p.store.Put(ctx, processed, strings.NewReader(text), "text/plain"); err != nil {
		return "", models.Errorf(models.ErrParsingStageFailed, "store parsed text at %s: %v", processed, err)
	}
	return processed, nil
}

// pdfPlainText walks the page tree and joins per-page text. Pages that
// fail to decode are skipped rather than failing the document.
func pdfPlainText(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var pages []string
	for num := 1; num <= reader.NumPage(); num++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
