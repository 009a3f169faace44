// Package geometry implements the crop-rectangle math: handle placement,
// pointer hit testing and the containment rules every crop mutation has to
// respect. Everything here is a pure function of its arguments.
package geometry

import (
	"math"

	"github.com/snappdf/snappdf/pkg/types"
)

const (
	// HandleRadius is the drawn radius of a drag handle in surface units
	HandleRadius = 10.0
	// HandleSlack widens the hit area around a handle to make touch input easier
	HandleSlack = 4.0
	// MinSize is the smallest width or height a crop rectangle may have
	MinSize = 30.0
	// InitialInset is the fraction trimmed from each side for a fresh crop
	InitialInset = 0.1
)

// HandleID names one of the eight resize anchors of a crop rectangle
type HandleID string

// Handle identifiers, in hit-test order
const (
	TopLeft      HandleID = "tl"
	TopMiddle    HandleID = "tm"
	TopRight     HandleID = "tr"
	MiddleLeft   HandleID = "ml"
	MiddleRight  HandleID = "mr"
	BottomLeft   HandleID = "bl"
	BottomMiddle HandleID = "bm"
	BottomRight  HandleID = "br"
)

type handleDef struct {
	id    HandleID
	xFrac float64
	yFrac float64
}

var handleDefs = []handleDef{
	{TopLeft, 0, 0},
	{TopMiddle, 0.5, 0},
	{TopRight, 1, 0},
	{MiddleLeft, 0, 0.5},
	{MiddleRight, 1, 0.5},
	{BottomLeft, 0, 1},
	{BottomMiddle, 0.5, 1},
	{BottomRight, 1, 1},
}

// Handles returns all handle identifiers in hit-test order
func Handles() []HandleID {
	ids := make([]HandleID, len(handleDefs))
	for i, h := range handleDefs {
		ids[i] = h.id
	}
	return ids
}

// Fractions returns the fractional offsets of a handle inside its rectangle.
// ok is false for an unknown id.
func Fractions(id HandleID) (xFrac, yFrac float64, ok bool) {
	for _, h := range handleDefs {
		if h.id == id {
			return h.xFrac, h.yFrac, true
		}
	}
	return 0, 0, false
}

// Clamp limits v to the range [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// HandlePosition returns the surface position of handle id on r
func HandlePosition(r types.Rect, id HandleID) types.Point {
	xFrac, yFrac, _ := Fractions(id)
	return types.Point{
		X: r.X + r.Width*xFrac,
		Y: r.Y + r.Height*yFrac,
	}
}

// HandleAt returns the handle whose center is nearest to (px, py), provided
// it lies within HandleRadius+HandleSlack. Equal distances go to the handle
// that comes first in hit-test order.
func HandleAt(r types.Rect, px, py float64) (HandleID, bool) {
	var (
		best  HandleID
		found bool
	)
	bestDist := HandleRadius + HandleSlack
	for _, h := range handleDefs {
		hx := r.X + r.Width*h.xFrac
		hy := r.Y + r.Height*h.yFrac
		d := math.Hypot(px-hx, py-hy)
		if d > HandleRadius+HandleSlack {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = h.id, d, true
		}
	}
	return best, found
}

// IsInside reports whether (px, py) lies strictly inside r. Points on the
// border are outside.
func IsInside(r types.Rect, px, py float64) bool {
	return px > r.X && px < r.X+r.Width && py > r.Y && py < r.Y+r.Height
}

// Constrain returns r adjusted so that it is at least MinSize in both
// dimensions and lies entirely within bounds. The size floor is applied
// first, then the position is clamped, then the size is capped to the room
// left after clamping.
func Constrain(r, bounds types.Rect) types.Rect {
	w := math.Max(r.Width, MinSize)
	h := math.Max(r.Height, MinSize)

	x := Clamp(r.X, bounds.X, bounds.X+bounds.Width-w)
	y := Clamp(r.Y, bounds.Y, bounds.Y+bounds.Height-h)

	w = math.Min(w, bounds.X+bounds.Width-x)
	h = math.Min(h, bounds.Y+bounds.Height-y)

	return types.Rect{X: x, Y: y, Width: w, Height: h}
}

// FitRect computes where an image of the given native size is drawn on a
// surface: scaled down (never up) to fit, and centered.
func FitRect(surfaceW, surfaceH, nativeW, nativeH float64) types.Rect {
	if nativeW <= 0 || nativeH <= 0 {
		return types.Rect{}
	}
	scale := math.Min(math.Min(surfaceW/nativeW, surfaceH/nativeH), 1)
	w := nativeW * scale
	h := nativeH * scale
	return types.Rect{
		X:      (surfaceW - w) / 2,
		Y:      (surfaceH - h) / 2,
		Width:  w,
		Height: h,
	}
}

// Inset shrinks r by frac of its size on every side
func Inset(r types.Rect, frac float64) types.Rect {
	return types.Rect{
		X:      r.X + r.Width*frac,
		Y:      r.Y + r.Height*frac,
		Width:  r.Width * (1 - 2*frac),
		Height: r.Height * (1 - 2*frac),
	}
}

// Resize applies a handle drag of (dx, dy) to start. Only the edges the
// handle touches move. The result is not constrained.
func Resize(start types.Rect, id HandleID, dx, dy float64) types.Rect {
	x, y, w, h := start.X, start.Y, start.Width, start.Height
	switch id {
	case TopLeft:
		x += dx
		y += dy
		w -= dx
		h -= dy
	case TopMiddle:
		y += dy
		h -= dy
	case TopRight:
		y += dy
		w += dx
		h -= dy
	case MiddleLeft:
		x += dx
		w -= dx
	case MiddleRight:
		w += dx
	case BottomLeft:
		x += dx
		w -= dx
		h += dy
	case BottomMiddle:
		h += dy
	case BottomRight:
		w += dx
		h += dy
	}
	return types.Rect{X: x, Y: y, Width: w, Height: h}
}

// Translate moves r by (dx, dy)
func Translate(r types.Rect, dx, dy float64) types.Rect {
	r.X += dx
	r.Y += dy
	return r
}

// FitAspect returns the largest rectangle of the given width/height ratio
// that fits inside r, centered on r.
func FitAspect(r types.Rect, ratio float64) types.Rect {
	if ratio <= 0 || r.Width <= 0 || r.Height <= 0 {
		return r
	}
	w, h := r.Width, r.Width/ratio
	if h > r.Height {
		h = r.Height
		w = h * ratio
	}
	return types.Rect{
		X:      r.X + (r.Width-w)/2,
		Y:      r.Y + (r.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
