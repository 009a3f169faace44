package filter

import (
	"image"
	"math"
)

// Contrast factors use the usual 259*(C+255)/(255*(259-C)) curve
var (
	highContrastFactor = contrastFactor(128)
	magicContrast      = contrastFactor(60)
)

const (
	brightenAmount  = 40
	magicSaturation = 1.6
	magicLift       = 15
	shadowTarget    = 240
	thresholdLevel  = 128
)

func contrastFactor(c float64) float64 {
	return 259 * (c + 255) / (255 * (259 - c))
}

// clamp8 stores v the way a clamped 8-bit canvas buffer does: saturate to
// [0, 255] and round half to even.
func clamp8(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

func luma(r, g, b float64) float64 {
	return 0.3*r + 0.59*g + 0.11*b
}

// perPixel rewrites the RGB channels of img in place. Alpha is kept.
func perPixel(img *image.NRGBA, fn func(r, g, b float64) (uint8, uint8, uint8)) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2] = fn(float64(row[i]), float64(row[i+1]), float64(row[i+2]))
		}
	}
	return img
}

func identity(img *image.NRGBA) *image.NRGBA {
	return img
}

func grayscale(img *image.NRGBA) *image.NRGBA {
	return perPixel(img, func(r, g, b float64) (uint8, uint8, uint8) {
		v := clamp8(luma(r, g, b))
		return v, v, v
	})
}

func highContrast(img *image.NRGBA) *image.NRGBA {
	return perPixel(img, func(r, g, b float64) (uint8, uint8, uint8) {
		return clamp8(highContrastFactor*(r-128) + 128),
			clamp8(highContrastFactor*(g-128) + 128),
			clamp8(highContrastFactor*(b-128) + 128)
	})
}

func threshold(img *image.NRGBA) *image.NRGBA {
	return perPixel(img, func(r, g, b float64) (uint8, uint8, uint8) {
		if (r+g+b)/3 >= thresholdLevel {
			return 255, 255, 255
		}
		return 0, 0, 0
	})
}

func brighten(img *image.NRGBA) *image.NRGBA {
	return perPixel(img, func(r, g, b float64) (uint8, uint8, uint8) {
		return clamp8(r + brightenAmount), clamp8(g + brightenAmount), clamp8(b + brightenAmount)
	})
}

var sharpenKernel = [3][3]float64{
	{0, -1, 0},
	{-1, 5, -1},
	{0, -1, 0},
}

// sharpen convolves with a 3x3 kernel. Taps that fall outside the image are
// skipped rather than padded, so border pixels see a lighter kernel.
func sharpen(img *image.NRGBA) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b float64
			for ky := -1; ky <= 1; ky++ {
				sy := y + ky
				if sy < 0 || sy >= h {
					continue
				}
				for kx := -1; kx <= 1; kx++ {
					sx := x + kx
					if sx < 0 || sx >= w {
						continue
					}
					k := sharpenKernel[ky+1][kx+1]
					if k == 0 {
						continue
					}
					i := sy*img.Stride + sx*4
					r += float64(img.Pix[i]) * k
					g += float64(img.Pix[i+1]) * k
					b += float64(img.Pix[i+2]) * k
				}
			}
			o := y*out.Stride + x*4
			i := y*img.Stride + x*4
			out.Pix[o] = clamp8(r)
			out.Pix[o+1] = clamp8(g)
			out.Pix[o+2] = clamp8(b)
			out.Pix[o+3] = img.Pix[i+3]
		}
	}
	return out
}

// magicColor applies contrast, then saturation, then a brightness lift
func magicColor(img *image.NRGBA) *image.NRGBA {
	stage := func(v float64) float64 {
		return math.Max(0, math.Min(255, v))
	}
	return perPixel(img, func(r, g, b float64) (uint8, uint8, uint8) {
		r = stage(magicContrast*(r-128) + 128)
		g = stage(magicContrast*(g-128) + 128)
		b = stage(magicContrast*(b-128) + 128)

		gray := luma(r, g, b)
		r = stage(gray + (r-gray)*magicSaturation)
		g = stage(gray + (g-gray)*magicSaturation)
		b = stage(gray + (b-gray)*magicSaturation)

		return clamp8(r + magicLift), clamp8(g + magicLift), clamp8(b + magicLift)
	})
}

// ShadowRadius returns the box blur radius used by the no-shadow filter
func ShadowRadius(w, h int) int {
	return max(20, min(w, h)/20)
}

// noShadow divides every channel by a heavily blurred luminance estimate of
// the page background, flattening uneven lighting.
func noShadow(img *image.NRGBA) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return img
	}

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			lum[y*w+x] = luma(float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2]))
		}
	}

	bg := boxBlur(lum, w, h, ShadowRadius(w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			l := math.Max(bg[y*w+x], 1)
			img.Pix[i] = clamp8(float64(img.Pix[i]) / l * shadowTarget)
			img.Pix[i+1] = clamp8(float64(img.Pix[i+1]) / l * shadowTarget)
			img.Pix[i+2] = clamp8(float64(img.Pix[i+2]) / l * shadowTarget)
		}
	}
	return img
}

// boxBlur averages over a (2r+1) window horizontally, then vertically. The
// window is clipped at the borders.
func boxBlur(src []float64, w, h, r int) []float64 {
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		var sum float64
		n := 0
		for x := 0; x <= min(r, w-1); x++ {
			sum += row[x]
			n++
		}
		for x := 0; x < w; x++ {
			tmp[y*w+x] = sum / float64(n)
			if add := x + r + 1; add < w {
				sum += row[add]
				n++
			}
			if drop := x - r; drop >= 0 {
				sum -= row[drop]
				n--
			}
		}
	}

	out := make([]float64, w*h)
	for x := 0; x < w; x++ {
		var sum float64
		n := 0
		for y := 0; y <= min(r, h-1); y++ {
			sum += tmp[y*w+x]
			n++
		}
		for y := 0; y < h; y++ {
			out[y*w+x] = sum / float64(n)
			if add := y + r + 1; add < h {
				sum += tmp[add*w+x]
				n++
			}
			if drop := y - r; drop >= 0 {
				sum -= tmp[drop*w+x]
				n--
			}
		}
	}
	return out
}
