package extract

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding
	"path"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/haasonsaas/quarry/pkg/models"
)

const (
	// maxImageEdge caps the longest side of a page image. The model
	// providers reject images beyond 8000 pixels.
	maxImageEdge = 8000

	// jpegQuality applies to rendered and downscaled pages.
	jpegQuality = 90

	// renderDPI is the PDF rasterization resolution.
	renderDPI = 200
)

// noImagesMessage is surfaced when a document yields no page images.
const noImagesMessage = "No images found in the file. Consider uploading a different file or adjust cutoff settings."

// Page is one rendered page of a source document.
type Page struct {
	// Format is the encoded container format, "jpeg" or "png".
	Format string
	Data   []byte
}

// Rasterizer renders a document into page images ordered by page number.
type Rasterizer interface {
	Pages(ctx context.Context, fileName string, data []byte) ([]Page, error)
}

// FitzRasterizer renders PDFs through MuPDF and passes single images
// through, downscaling anything over the provider pixel limit.
type FitzRasterizer struct {
	maxEdge int
	quality int
	dpi     float64
}

// NewFitzRasterizer returns a rasterizer with the default resolution and
// size limits.
func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{maxEdge: maxImageEdge, quality: jpegQuality, dpi: renderDPI}
}

// Pages renders the document named by fileName. The extension decides the
// decoding path; anything but PDF, PNG, and JPEG is unsupported.
func (r *FitzRasterizer) Pages(ctx context.Context, fileName string, data []byte) ([]Page, error) {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".pdf":
		return r.pdfPages(ctx, data)
	case ".png":
		return r.imagePage(data, "png")
	case ".jpg", ".jpeg":
		return r.imagePage(data, "jpeg")
	default:
		return nil, models.Errorf(models.ErrUnsupportedFormat, "Unsupported file format")
	}
}

func (r *FitzRasterizer) pdfPages(ctx context.Context, data []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "open pdf: %v", err)
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		img, err := doc.ImageDPI(n, r.dpi)
		if err != nil {
			return nil, models.Errorf(models.ErrParsingStageFailed, "render pdf page %d: %v", n+1, err)
		}
		encoded, err := encodeJPEG(downscale(img, r.maxEdge), r.quality)
		if err != nil {
			return nil, models.Errorf(models.ErrParsingStageFailed, "encode pdf page %d: %v", n+1, err)
		}
		pages = append(pages, Page{Format: "jpeg", Data: encoded})
	}
	return pages, nil
}

// imagePage passes a single image through untouched when it is within the
// pixel limit, otherwise decodes, downscales, and re-encodes it as JPEG.
func (r *FitzRasterizer) imagePage(data []byte, format string) ([]Page, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "decode image: %v", err)
	}
	if cfg.Width <= r.maxEdge && cfg.Height <= r.maxEdge {
		return []Page{{Format: format, Data: data}}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "decode image: %v", err)
	}
	encoded, err := encodeJPEG(downscale(img, r.maxEdge), r.quality)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "encode image: %v", err)
	}
	return []Page{{Format: "jpeg", Data: encoded}}, nil
}

// downscale shrinks img so its longest side is at most maxEdge pixels.
// Images already within the limit are returned as-is.
func downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxEdge && height <= maxEdge {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxEdge
		newHeight = max(1, height*maxEdge/width)
	} else {
		newHeight = maxEdge
		newWidth = max(1, width*maxEdge/height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func errNoImages() error {
	return models.Errorf(models.ErrParsingStageFailed, "%s", noImagesMessage)
}
