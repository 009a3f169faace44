package types

import "image"

// Point is a position in surface or sheet coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
// Depending on context the units are surface units, native image pixels or
// PDF points.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 {
	return r.X + r.Width
}

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// Area returns the area of the rectangle
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Center returns the center point of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether inner lies fully inside r. Shared edges count as
// inside.
func (r Rect) Contains(inner Rect) bool {
	const eps = 1e-9
	return inner.X >= r.X-eps && inner.Y >= r.Y-eps &&
		inner.Right() <= r.Right()+eps && inner.Bottom() <= r.Bottom()+eps
}

// Pixels converts the rectangle to integer pixel bounds. The origin is
// floored and the size is floored, so a 10.9 wide rect yields 10 pixels.
func (r Rect) Pixels() image.Rectangle {
	x0 := int(r.X)
	y0 := int(r.Y)
	return image.Rect(x0, y0, x0+int(r.Width), y0+int(r.Height))
}

// RectFromImage returns the float rectangle covering b
func RectFromImage(b image.Rectangle) Rect {
	return Rect{
		X:      float64(b.Min.X),
		Y:      float64(b.Min.Y),
		Width:  float64(b.Dx()),
		Height: float64(b.Dy()),
	}
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
