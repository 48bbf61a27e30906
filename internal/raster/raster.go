// Package raster converts PDF pages into page images at a configurable DPI
// and runs the OCR engine over them, producing the positions document the
// rest of the pipeline operates on.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/docshield/redactor/internal/document"
	"github.com/docshield/redactor/internal/ocr"
)

// Extractor renders pages with MuPDF and recognizes tokens with the
// injected OCR engine.
type Extractor struct {
	engine ocr.Engine
	dpi    int
}

// NewExtractor creates an Extractor. dpi must be positive; 300 is the usual
// choice for scanned documents.
func NewExtractor(engine ocr.Engine, dpi int) (*Extractor, error) {
	if engine == nil {
		return nil, fmt.Errorf("raster: nil OCR engine")
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("raster: invalid dpi %d", dpi)
	}
	return &Extractor{engine: engine, dpi: dpi}, nil
}

// Extract rasterizes every page of the PDF at the extractor's DPI and OCRs
// it. It returns the positions document plus the concatenated page
// transcript. Page numbering is 1-based and matches the physical page order
// of the source file.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*document.Document, string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("raster: open %s: %w", pdfPath, err)
	}
	defer doc.Close()

	out := &document.Document{}
	var transcript strings.Builder
	numPages := doc.NumPage()

	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		img, err := doc.ImageDPI(i, float64(e.dpi))
		if err != nil {
			return nil, "", fmt.Errorf("raster: render page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("raster: encode page %d: %w", i+1, err)
		}

		res, err := e.engine.Recognize(ctx, buf.Bytes())
		if err != nil {
			return nil, "", fmt.Errorf("raster: ocr page %d: %w", i+1, err)
		}

		bounds := img.Bounds()
		out.Pages = append(out.Pages, document.Page{
			Number: i + 1,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Tokens: res.Tokens,
		})

		fmt.Fprintf(&transcript, "\n===== Page %d =====\n%s\n", i+1, res.PlainText)

		slog.Info("page extracted",
			"page", i+1,
			"of", numPages,
			"tokens", len(res.Tokens),
			"engine", e.engine.Name(),
		)
	}

	return out, transcript.String(), nil
}
