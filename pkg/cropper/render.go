package cropper

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/snappdf/snappdf/pkg/geometry"
	"github.com/snappdf/snappdf/pkg/processing"
	"github.com/snappdf/snappdf/pkg/types"
)

var (
	overlayColor = color.NRGBA{0, 0, 0, 158} // 62% black
	accentColor  = color.NRGBA{59, 130, 246, 255}
	gridColor    = color.NRGBA{255, 255, 255, 90}
	handleFill   = color.NRGBA{255, 255, 255, 255}
	labelText    = color.NRGBA{255, 255, 255, 255}
)

const (
	borderWidth   = 2
	bracketLength = 16
	bracketWidth  = 4
)

// SizeLabel formats the native pixel size shown next to the crop box
func SizeLabel(width, height int) string {
	return fmt.Sprintf("%d × %d px", width, height)
}

// Render draws the surface as the crop dialog shows it: the fitted image,
// the dimmed area outside the selection, guides, the selection frame with
// its handles and a size readout in native pixels.
func (s *Surface) Render() *image.NRGBA {
	w := int(math.Round(s.width))
	h := int(math.Round(s.height))
	canvas := imaging.New(w, h, s.config.Background)
	if !s.Loaded() {
		return canvas
	}

	ir := s.imageRect.Pixels()
	if !ir.Empty() {
		xdraw.BiLinear.Scale(canvas, ir, s.img, s.native, xdraw.Over, nil)
	}

	cr := s.crop.Pixels()
	dimOutside(canvas, ir, cr)

	if s.config.ShowGrid {
		drawGrid(canvas, s.crop)
	}
	processing.DrawBox(canvas, cr, accentColor, borderWidth)
	drawBrackets(canvas, cr)
	for _, id := range geometry.Handles() {
		p := geometry.HandlePosition(s.crop, id)
		drawHandle(canvas, p, geometry.HandleRadius)
	}

	if region, err := s.NativeRegion(); err == nil {
		drawLabel(canvas, cr, SizeLabel(region.Dx(), region.Dy()))
	}
	return canvas
}

// dimOutside shades the four bands of the image area around the selection
func dimOutside(img *image.NRGBA, area, sel image.Rectangle) {
	bands := []image.Rectangle{
		image.Rect(area.Min.X, area.Min.Y, area.Max.X, sel.Min.Y),
		image.Rect(area.Min.X, sel.Max.Y, area.Max.X, area.Max.Y),
		image.Rect(area.Min.X, sel.Min.Y, sel.Min.X, sel.Max.Y),
		image.Rect(sel.Max.X, sel.Min.Y, area.Max.X, sel.Max.Y),
	}
	for _, b := range bands {
		processing.FillRect(img, b.Intersect(area), overlayColor)
	}
}

func drawGrid(img *image.NRGBA, r types.Rect) {
	for i := 1; i < 3; i++ {
		x := int(r.X + r.Width*float64(i)/3)
		y := int(r.Y + r.Height*float64(i)/3)
		processing.FillRect(img, image.Rect(x, int(r.Y), x+1, int(r.Bottom())), gridColor)
		processing.FillRect(img, image.Rect(int(r.X), y, int(r.Right()), y+1), gridColor)
	}
}

// drawBrackets draws the L-shaped accents on the four corners
func drawBrackets(img *image.NRGBA, r image.Rectangle) {
	for s := 0; s < bracketWidth; s++ {
		// top-left
		processing.DrawHLine(img, r.Min.Y+s, r.Min.X, r.Min.X+bracketLength, accentColor)
		processing.DrawVLine(img, r.Min.X+s, r.Min.Y, r.Min.Y+bracketLength, accentColor)
		// top-right
		processing.DrawHLine(img, r.Min.Y+s, r.Max.X-bracketLength, r.Max.X, accentColor)
		processing.DrawVLine(img, r.Max.X-1-s, r.Min.Y, r.Min.Y+bracketLength, accentColor)
		// bottom-left
		processing.DrawHLine(img, r.Max.Y-1-s, r.Min.X, r.Min.X+bracketLength, accentColor)
		processing.DrawVLine(img, r.Min.X+s, r.Max.Y-bracketLength, r.Max.Y, accentColor)
		// bottom-right
		processing.DrawHLine(img, r.Max.Y-1-s, r.Max.X-bracketLength, r.Max.X, accentColor)
		processing.DrawVLine(img, r.Max.X-1-s, r.Max.Y-bracketLength, r.Max.Y, accentColor)
	}
}

// drawHandle draws a white disc with an accent ring
func drawHandle(img *image.NRGBA, p types.Point, radius float64) {
	b := img.Bounds()
	x0 := int(math.Floor(p.X - radius))
	x1 := int(math.Ceil(p.X + radius))
	y0 := int(math.Floor(p.Y - radius))
	y1 := int(math.Ceil(p.Y + radius))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !image.Pt(x, y).In(b) {
				continue
			}
			d := math.Hypot(float64(x)+0.5-p.X, float64(y)+0.5-p.Y)
			switch {
			case d <= radius-2:
				img.SetNRGBA(x, y, handleFill)
			case d <= radius:
				img.SetNRGBA(x, y, accentColor)
			}
		}
	}
}

// drawLabel writes text on an accent pill above the selection, or inside
// it when there is no room above.
func drawLabel(img *image.NRGBA, sel image.Rectangle, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelText), Face: face}
	textW := d.MeasureString(text).Ceil()
	const pad = 4
	boxH := face.Height + 2*pad

	x := sel.Min.X
	y := sel.Min.Y - boxH - 6
	if y < 0 {
		y = sel.Min.Y + 6
	}
	processing.FillRect(img, image.Rect(x, y, x+textW+2*pad, y+boxH), accentColor)

	d.Dot = fixed.P(x+pad, y+pad+face.Ascent)
	d.DrawString(text)
}
