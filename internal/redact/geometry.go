package redact

import "github.com/docshield/redactor/internal/document"

// Rect is an axis-aligned rectangle in page point space (1/72 inch),
// origin top-left to match the rasterized image orientation.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns x extent; non-positive means degenerate.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns y extent; non-positive means degenerate.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Intersect clips r to bounds. The result may be empty.
func (r Rect) Intersect(bounds Rect) Rect {
	out := r
	if out.X0 < bounds.X0 {
		out.X0 = bounds.X0
	}
	if out.Y0 < bounds.Y0 {
		out.Y0 = bounds.Y0
	}
	if out.X1 > bounds.X1 {
		out.X1 = bounds.X1
	}
	if out.Y1 > bounds.Y1 {
		out.Y1 = bounds.Y1
	}
	return out
}

// PixelScale returns the pixel→point scale factor for a render DPI.
// Pages were rasterized at dpi/72 zoom, so 72/dpi is the exact inverse.
func PixelScale(dpi int) float64 { return 72.0 / float64(dpi) }

// Expand grows a pixel bbox symmetrically by margin pixels on all sides.
func Expand(b document.BBox, margin float64) document.BBox {
	return document.BBox{
		X: b.X - margin,
		Y: b.Y - margin,
		W: b.W + 2*margin,
		H: b.H + 2*margin,
	}
}

// ToPoints converts a pixel bbox into a point-space rectangle.
func ToPoints(b document.BBox, scale float64) Rect {
	return Rect{
		X0: b.X * scale,
		Y0: b.Y * scale,
		X1: (b.X + b.W) * scale,
		Y1: (b.Y + b.H) * scale,
	}
}

// ToPixels converts a point rect back into a pixel bbox at the given DPI.
// Inverse of ToPoints within floating-point tolerance.
func ToPixels(r Rect, dpi int) document.BBox {
	zoom := float64(dpi) / 72.0
	return document.BBox{
		X: r.X0 * zoom,
		Y: r.Y0 * zoom,
		W: r.Width() * zoom,
		H: r.Height() * zoom,
	}
}
