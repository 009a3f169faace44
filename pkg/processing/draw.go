package processing

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// DrawBox strokes the inside edge of r
func DrawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		DrawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		DrawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		DrawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		DrawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

// FillRect blends c over r
func FillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	xdraw.Draw(img, r, image.NewUniform(c), image.Point{}, xdraw.Over)
}

// DrawHLine sets the pixels [x0, x1) of row y, clipped to the image
func DrawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

// DrawVLine sets the pixels [y0, y1) of column x, clipped to the image
func DrawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
