// Package rasterengine implements the redact.Engine contract by flattening
// pages. Each page is rendered to a raster at the working DPI, redaction
// boxes are painted into the pixels, and the output PDF is rebuilt from the
// flattened images. The original content streams do not survive the
// rewrite, so redaction is destructive: there is nothing under the black
// box to recover.
//
// The trade-off is that every page of the output is an image, which is the
// natural form for the scanned documents this tool targets.
package rasterengine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/docshield/redactor/internal/redact"
)

type pendingBox struct {
	rect  redact.Rect
	label string
}

type pageState struct {
	boxes     []pendingBox
	flattened *image.RGBA
	ptW, ptH  float64
}

// Engine renders with MuPDF and rewrites the output from flattened pages.
type Engine struct {
	doc       *fitz.Document
	dpi       int
	labelSize float64 // points
	pages     []pageState
}

// Open loads the source PDF. labelSize is the font size in points used when
// a redaction carries a label.
func Open(path string, dpi int, labelSize float64) (*Engine, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("rasterengine: invalid dpi %d", dpi)
	}
	if labelSize <= 0 {
		labelSize = 8
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("rasterengine: open %s: %w", path, err)
	}
	e := &Engine{
		doc:       doc,
		dpi:       dpi,
		labelSize: labelSize,
		pages:     make([]pageState, doc.NumPage()),
	}
	return e, nil
}

// PageCount implements redact.Engine.
func (e *Engine) PageCount() int { return len(e.pages) }

// PageBounds implements redact.Engine. MuPDF reports bounds in points.
func (e *Engine) PageBounds(page int) (redact.Rect, error) {
	if page < 1 || page > len(e.pages) {
		return redact.Rect{}, fmt.Errorf("rasterengine: page %d out of range", page)
	}
	b, err := e.doc.Bound(page - 1)
	if err != nil {
		return redact.Rect{}, fmt.Errorf("rasterengine: bounds page %d: %w", page, err)
	}
	return redact.Rect{X0: 0, Y0: 0, X1: float64(b.Dx()), Y1: float64(b.Dy())}, nil
}

// AddRedaction implements redact.Engine. Painting into the flattened raster
// is always available here, so this never returns redact.ErrUnsupported.
func (e *Engine) AddRedaction(page int, r redact.Rect, label string) error {
	if page < 1 || page > len(e.pages) {
		return fmt.Errorf("rasterengine: page %d out of range", page)
	}
	e.pages[page-1].boxes = append(e.pages[page-1].boxes, pendingBox{rect: r, label: label})
	return nil
}

// Overlay implements redact.Engine. On a flattened page an overlay and a
// redaction paint the same pixels; the distinction only matters for engines
// that keep the original content stream.
func (e *Engine) Overlay(page int, r redact.Rect) error {
	return e.AddRedaction(page, r, "")
}

// Commit implements redact.Engine: renders the page at the working DPI and
// paints all registered boxes into it in one pass.
func (e *Engine) Commit(page int) error {
	if page < 1 || page > len(e.pages) {
		return fmt.Errorf("rasterengine: page %d out of range", page)
	}
	return e.flatten(page - 1)
}

// flatten renders page index i (0-based) and burns its pending boxes.
func (e *Engine) flatten(i int) error {
	st := &e.pages[i]
	if st.flattened != nil && len(st.boxes) == 0 {
		return nil
	}

	img, err := e.doc.ImageDPI(i, float64(e.dpi))
	if err != nil {
		return fmt.Errorf("rasterengine: render page %d: %w", i+1, err)
	}
	bounds, err := e.doc.Bound(i)
	if err != nil {
		return fmt.Errorf("rasterengine: bounds page %d: %w", i+1, err)
	}
	st.ptW, st.ptH = float64(bounds.Dx()), float64(bounds.Dy())

	zoom := float64(e.dpi) / 72.0
	for _, b := range st.boxes {
		px := image.Rect(
			int(b.rect.X0*zoom),
			int(b.rect.Y0*zoom),
			int(b.rect.X1*zoom+0.5),
			int(b.rect.Y1*zoom+0.5),
		).Intersect(img.Bounds())
		if px.Empty() {
			continue
		}
		draw.Draw(img, px, image.Black, image.Point{}, draw.Src)
		if b.label != "" {
			e.burnLabel(img, px, b.label)
		}
	}
	st.boxes = nil
	st.flattened = img
	return nil
}

var (
	labelFontOnce sync.Once
	labelFont     *opentype.Font
	labelFontErr  error
)

func loadLabelFont() (*opentype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = opentype.Parse(goregular.TTF)
	})
	return labelFont, labelFontErr
}

// burnLabel draws the type tag in white, centered in the box. The label is
// skipped when it would escape the box bounds.
func (e *Engine) burnLabel(img *image.RGBA, box image.Rectangle, label string) {
	f, err := loadLabelFont()
	if err != nil {
		return
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    e.labelSize,
		DPI:     float64(e.dpi),
		Hinting: font.HintingFull,
	})
	if err != nil {
		return
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	width := d.MeasureString(label).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	if width > box.Dx()-2 || height > box.Dy() {
		return
	}

	x := box.Min.X + (box.Dx()-width)/2
	y := box.Min.Y + (box.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	d.Dot = fixed.P(x, y)
	d.DrawString(label)
}

// Save implements redact.Engine. Pages that never saw a Commit are
// flattened as-is so the output document always has every source page.
func (e *Engine) Save(path string) error {
	for i := range e.pages {
		if e.pages[i].flattened == nil {
			if err := e.flatten(i); err != nil {
				return err
			}
		}
	}

	pages := make([]flatPage, len(e.pages))
	for i := range e.pages {
		pages[i] = flatPage{
			img: e.pages[i].flattened,
			ptW: e.pages[i].ptW,
			ptH: e.pages[i].ptH,
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterengine: create %s: %w", path, err)
	}
	if err := writePDF(out, pages); err != nil {
		out.Close()
		return fmt.Errorf("rasterengine: write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("rasterengine: close %s: %w", path, err)
	}
	return nil
}

// Close implements redact.Engine.
func (e *Engine) Close() error {
	return e.doc.Close()
}

var _ redact.Engine = (*Engine)(nil)
