package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Detector finds the boundary of a document photographed on a visually
// distinct background
type Detector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for boundary detection
type DetectionConfig struct {
	// AnalysisMaxDim caps the longest side of the analysis copy
	AnalysisMaxDim int
	// ContrastThreshold is the luminance deviation from the background that
	// marks a scan line as part of the document
	ContrastThreshold float64
	// EdgeThreshold is the |gx|+|gy| value above which a pixel counts as an edge
	EdgeThreshold float64
	// MinEdgePixels is the fewest edge pixels a confident detection needs
	MinEdgePixels int
	// MinAreaRatio is the smallest box, as a fraction of the image, accepted
	MinAreaRatio float64
	// PaddingRatio is the margin added around the box, per side, as a
	// fraction of the box dimensions
	PaddingRatio float64
}

// DefaultConfig returns the detector defaults
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		AnalysisMaxDim:    600,
		ContrastThreshold: 30,
		EdgeThreshold:     25,
		MinEdgePixels:     100,
		MinAreaRatio:      0.10,
		PaddingRatio:      0.04,
	}
}

// New creates a new Detector with default configuration
func New() *Detector {
	return &Detector{config: DefaultConfig()}
}

// NewWithConfig creates a new Detector with custom configuration
func NewWithConfig(config DetectionConfig) *Detector {
	return &Detector{config: config}
}

// Detection is the outcome of a boundary search
type Detection struct {
	// Region is the crop in native pixels. It covers the whole image when
	// Detected is false.
	Region image.Rectangle
	// Detected is false when confidence was too low to crop
	Detected bool
	// Background is the estimated background luminance
	Background float64
	// EdgePixels is the number of high-gradient pixels in the analysis copy
	EdgePixels int
	// Scale is the analysis copy size relative to the source
	Scale float64
}

// lumaMap is a luminance raster of the analysis copy
type lumaMap struct {
	w, h int
	v    []float64
}

func (m *lumaMap) at(x, y int) float64 {
	return m.v[y*m.w+x]
}

// DetectBoundary locates the document in img without modifying it
func (d *Detector) DetectBoundary(img image.Image) Detection {
	bounds := img.Bounds()
	none := Detection{Region: bounds, Scale: 1}
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return none
	}

	lum, scale := d.analysisCopy(img)
	none.Scale = scale

	bg := backgroundLuma(lum)
	none.Background = bg

	top, bottom, left, right, ok := d.scanEdges(lum, bg)
	if !ok {
		return none
	}

	edges := d.countEdgePixels(lum)
	none.EdgePixels = edges

	boxW := float64(right - left + 1)
	boxH := float64(bottom - top + 1)
	if boxW*boxH < float64(lum.w*lum.h)*d.config.MinAreaRatio || edges < d.config.MinEdgePixels {
		return none
	}

	padX := boxW * d.config.PaddingRatio
	padY := boxH * d.config.PaddingRatio

	nativeW := float64(bounds.Dx())
	nativeH := float64(bounds.Dy())
	x0 := math.Max(0, (float64(left)-padX)/scale)
	y0 := math.Max(0, (float64(top)-padY)/scale)
	x1 := math.Min(nativeW, (float64(left)+boxW+padX)/scale)
	y1 := math.Min(nativeH, (float64(top)+boxH+padY)/scale)

	region := image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x1)), int(math.Ceil(y1)),
	).Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return none
	}

	return Detection{
		Region:     region,
		Detected:   true,
		Background: bg,
		EdgePixels: edges,
		Scale:      scale,
	}
}

// AutoCrop returns the detected document region of img. When confidence is
// low the original image is returned as is.
func (d *Detector) AutoCrop(img image.Image) (image.Image, Detection) {
	det := d.DetectBoundary(img)
	if !det.Detected {
		return img, det
	}
	return imaging.Crop(img, det.Region), det
}

// analysisCopy downscales img bilinearly so its longest side is at most
// AnalysisMaxDim and returns the luminance of the result
func (d *Detector) analysisCopy(img image.Image) (*lumaMap, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := 1.0
	if maxDim := d.config.AnalysisMaxDim; maxDim > 0 && (w > maxDim || h > maxDim) {
		scale = float64(maxDim) / float64(max(w, h))
	}
	sw := max(1, int(math.Round(float64(w)*scale)))
	sh := max(1, int(math.Round(float64(h)*scale)))
	scale = float64(sw) / float64(w)

	small := image.NewNRGBA(image.Rect(0, 0, sw, sh))
	xdraw.BiLinear.Scale(small, small.Bounds(), img, b, xdraw.Src, nil)

	m := &lumaMap{w: sw, h: sh, v: make([]float64, sw*sh)}
	for y := 0; y < sh; y++ {
		row := small.Pix[y*small.Stride:]
		for x := 0; x < sw; x++ {
			p := row[x*4 : x*4+3]
			m.v[y*sw+x] = Luminance(p[0], p[1], p[2])
		}
	}
	return m, scale
}

// Luminance weights RGB the way the filters do
func Luminance(r, g, b uint8) float64 {
	return 0.3*float64(r) + 0.59*float64(g) + 0.11*float64(b)
}

// backgroundLuma averages the four corners plus top-mid and bottom-mid
func backgroundLuma(m *lumaMap) float64 {
	xr, yb, xm := m.w-1, m.h-1, m.w/2
	samples := [][2]int{{0, 0}, {xr, 0}, {0, yb}, {xr, yb}, {xm, 0}, {xm, yb}}

	var sum float64
	for _, s := range samples {
		sum += m.at(s[0], s[1])
	}
	return sum / float64(len(samples))
}

// scanEdges walks inward from each side and returns the first line that
// contains a pixel deviating from bg by more than ContrastThreshold
func (d *Detector) scanEdges(m *lumaMap, bg float64) (top, bottom, left, right int, ok bool) {
	thr := d.config.ContrastThreshold
	rowHit := func(y int) bool {
		for x := 0; x < m.w; x++ {
			if math.Abs(m.at(x, y)-bg) > thr {
				return true
			}
		}
		return false
	}
	colHit := func(x int) bool {
		for y := 0; y < m.h; y++ {
			if math.Abs(m.at(x, y)-bg) > thr {
				return true
			}
		}
		return false
	}

	top = -1
	for y := 0; y < m.h; y++ {
		if rowHit(y) {
			top = y
			break
		}
	}
	if top < 0 {
		return 0, 0, 0, 0, false
	}
	// a hit exists, so the remaining scans always terminate on a line
	for bottom = m.h - 1; bottom > top && !rowHit(bottom); bottom-- {
	}
	for left = 0; left < m.w-1 && !colHit(left); left++ {
	}
	for right = m.w - 1; right > left && !colHit(right); right-- {
	}
	return top, bottom, left, right, true
}

// countEdgePixels counts interior pixels whose central-difference gradient
// exceeds EdgeThreshold
func (d *Detector) countEdgePixels(m *lumaMap) int {
	count := 0
	for y := 1; y < m.h-1; y++ {
		for x := 1; x < m.w-1; x++ {
			gx := math.Abs(m.at(x+1, y) - m.at(x-1, y))
			gy := math.Abs(m.at(x, y+1) - m.at(x, y-1))
			if gx+gy > d.config.EdgeThreshold {
				count++
			}
		}
	}
	return count
}
