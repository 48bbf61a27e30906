// Package redact translates flagged token boxes from pixel space into page
// point space and drives a redaction engine over them. The geometry here is
// the part that has to be exactly right: pixel→point scaling by 72/dpi,
// symmetric margin expansion, and clipping to the page rectangle.
package redact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docshield/redactor/internal/category"
	"github.com/docshield/redactor/internal/document"
)

// ErrUnsupported is returned by an Engine when it cannot register a
// destructive redaction for a rectangle. The applier then falls back to an
// opaque overlay, which hides but does not remove content. That degradation
// is always surfaced to the caller.
var ErrUnsupported = errors.New("destructive redaction unsupported")

// Engine is the PDF mutation collaborator. Page numbers are 1-based.
type Engine interface {
	// PageCount reports the number of pages in the source document.
	PageCount() int
	// PageBounds returns the page rectangle in points for clipping.
	PageBounds(page int) (Rect, error)
	// AddRedaction registers a destructive redaction. label may be empty.
	// Returns ErrUnsupported when the destructive primitive is unavailable
	// for this rectangle.
	AddRedaction(page int, r Rect, label string) error
	// Overlay paints an opaque box without removing content underneath.
	// Fallback path only.
	Overlay(page int, r Rect) error
	// Commit applies all registered redactions for one page in a single
	// batch, regenerating the page content.
	Commit(page int) error
	// Save writes the redacted document to path.
	Save(path string) error
	// Close releases engine resources.
	Close() error
}

// Options control geometry and labeling. Label font size is an engine
// concern; the applier only decides whether a label is requested.
type Options struct {
	DPI      int     // render DPI the positions were produced at
	MarginPx float64 // symmetric bbox padding in image pixels
	Label    bool    // burn a type tag onto each box
}

// Result summarizes an Apply run.
type Result struct {
	// Applied counts committed redaction rectangles per page number.
	Applied map[int]int
	// Total is the sum over Applied.
	Total int
	// Degraded counts rectangles that fell back to a cosmetic overlay and
	// therefore carry no content-removal guarantee.
	Degraded int
}

// Applier drives an Engine over a filtered document.
type Applier struct {
	engine Engine
	opts   Options
}

// NewApplier validates opts and wraps engine.
func NewApplier(engine Engine, opts Options) (*Applier, error) {
	if engine == nil {
		return nil, fmt.Errorf("redact: nil engine")
	}
	if opts.DPI <= 0 {
		return nil, fmt.Errorf("redact: invalid dpi %d", opts.DPI)
	}
	if opts.MarginPx < 0 {
		opts.MarginPx = 0
	}
	return &Applier{engine: engine, opts: opts}, nil
}

// Apply computes every page's rectangles first, then registers and commits
// them in one batch per page. Pages whose number falls outside the source
// document are skipped. Zero-area rectangles after clipping are excluded
// silently.
func (a *Applier) Apply(ctx context.Context, doc *document.Document) (Result, error) {
	res := Result{Applied: make(map[int]int)}
	scale := PixelScale(a.opts.DPI)
	pageCount := a.engine.PageCount()

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if page.Number < 1 || page.Number > pageCount {
			continue
		}

		bounds, err := a.engine.PageBounds(page.Number)
		if err != nil {
			return res, fmt.Errorf("redact: page %d bounds: %w", page.Number, err)
		}

		type box struct {
			rect Rect
			cat  category.Category
		}
		var boxes []box
		for _, tok := range page.Tokens {
			if !tok.PII.IsPII {
				continue
			}
			rect := ToPoints(Expand(tok.BBox, a.opts.MarginPx), scale).Intersect(bounds)
			if rect.Empty() {
				continue
			}
			boxes = append(boxes, box{rect: rect, cat: category.Normalize(tok.PII.Type)})
		}

		applied := 0
		for _, b := range boxes {
			label := ""
			if a.opts.Label {
				label = category.Label(b.cat)
			}
			err := a.engine.AddRedaction(page.Number, b.rect, label)
			switch {
			case err == nil:
				applied++
			case errors.Is(err, ErrUnsupported):
				if oerr := a.engine.Overlay(page.Number, b.rect); oerr != nil {
					return res, fmt.Errorf("redact: page %d overlay: %w", page.Number, oerr)
				}
				slog.Warn("destructive redaction unavailable, applied cosmetic overlay",
					"page", page.Number, "type", string(b.cat))
				res.Degraded++
				applied++
			default:
				return res, fmt.Errorf("redact: page %d: %w", page.Number, err)
			}
		}

		if err := a.engine.Commit(page.Number); err != nil {
			return res, fmt.Errorf("redact: commit page %d: %w", page.Number, err)
		}

		res.Applied[page.Number] = applied
		res.Total += applied
		slog.Info("page redacted", "page", page.Number, "boxes", applied)
	}

	return res, nil
}
