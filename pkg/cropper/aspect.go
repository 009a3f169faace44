package cropper

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/snappdf/snappdf/pkg/geometry"
	"github.com/snappdf/snappdf/pkg/types"
)

// AspectRatio is a named width/height ratio. A zero ratio means unlocked.
type AspectRatio struct {
	Name  string
	Ratio float64
}

// Locked reports whether the preset constrains the rectangle
func (a AspectRatio) Locked() bool {
	return a.Ratio > 0
}

// Presets offered by the crop dialog
var (
	Free   = AspectRatio{"free", 0}
	A4     = AspectRatio{"a4", 1 / 1.414}
	Letter = AspectRatio{"letter", 8.5 / 11}
	Square = AspectRatio{"square", 1}
)

// CommonAspectRatios returns the presets in menu order
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Free, A4, Letter, Square}
}

// ParseAspect looks up a preset by name
func ParseAspect(name string) (AspectRatio, error) {
	for _, a := range CommonAspectRatios() {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return Free, fmt.Errorf("unknown aspect ratio: %s", name)
}

// lockAspect forces r to ratio after a handle drag. The edges opposite the
// dragged handle stay where they were at gesture start.
func lockAspect(r, start types.Rect, id geometry.HandleID, ratio float64) types.Rect {
	switch id {
	case geometry.TopMiddle, geometry.BottomMiddle:
		r.Width = r.Height * ratio
		r.X = start.X + (start.Width-r.Width)/2
		return r
	case geometry.MiddleLeft, geometry.MiddleRight:
		r.Height = r.Width / ratio
		r.Y = start.Y + (start.Height-r.Height)/2
		return r
	}

	r.Height = r.Width / ratio
	if id == geometry.TopLeft || id == geometry.TopRight {
		r.Y = start.Bottom() - r.Height
	}
	return r
}

// CropTransformed flips and rotates img, then crops region out of the
// transformed result. Rotation is clockwise in degrees. Corners exposed by
// the rotation are filled with white.
func CropTransformed(img image.Image, region image.Rectangle, rotation float64, flipH, flipV bool) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNotLoaded
	}

	out := imaging.Clone(img)
	if flipH {
		out = imaging.FlipH(out)
	}
	if flipV {
		out = imaging.FlipV(out)
	}
	if rotation != 0 {
		out = imaging.Rotate(out, -rotation, color.White)
	}

	if region.Empty() {
		return out, nil
	}
	r := region.Intersect(out.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v outside %v", ErrEmptyRegion, region, out.Bounds())
	}
	return imaging.Crop(out, r), nil
}
