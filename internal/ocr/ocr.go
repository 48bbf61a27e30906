// Package ocr defines the contract between the page rasterizer and whatever
// OCR engine recognizes words on a page image.
package ocr

import (
	"context"

	"github.com/docshield/redactor/internal/document"
)

// Result is the recognition output for one page image.
type Result struct {
	// Tokens in reading order as the engine produced them. Token order is
	// the identity the rest of the pipeline depends on.
	Tokens []document.Token
	// PlainText is the linearized page text, used for the transcript sidecar.
	PlainText string
}

// Engine recognizes words and their pixel bounding boxes on an encoded page
// image. Implementations must fail loudly at construction when the
// underlying engine is unreachable or misconfigured, rather than silently
// returning empty results.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte) (Result, error)
}
