// Package cropper implements the interactive crop surface: an image fitted
// into a fixed-size drawing area, a crop rectangle the user drags and
// resizes through pointer events, and rasterisation of the selected region
// at native resolution.
package cropper

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/snappdf/snappdf/pkg/analyzer"
	"github.com/snappdf/snappdf/pkg/geometry"
	"github.com/snappdf/snappdf/pkg/types"
)

var (
	// ErrNotLoaded is returned when an operation needs an image and none is loaded
	ErrNotLoaded = errors.New("no image loaded")
	// ErrEmptyRegion is returned when a crop region has no pixels
	ErrEmptyRegion = errors.New("empty crop region")
)

// State is the pointer state of a crop surface
type State int

const (
	Idle State = iota
	Resizing
	Moving
)

func (s State) String() string {
	switch s {
	case Resizing:
		return "resizing"
	case Moving:
		return "moving"
	default:
		return "idle"
	}
}

// DragKind distinguishes a move gesture from a resize gesture
type DragKind string

const (
	DragMove   DragKind = "move"
	DragResize DragKind = "resize"
)

// DragSession records the state captured when a gesture started
type DragSession struct {
	Active    bool
	Kind      DragKind
	Handle    geometry.HandleID
	Start     types.Point
	StartRect types.Rect
}

// SurfaceConfig holds configuration for a crop surface
type SurfaceConfig struct {
	// JPEGQuality is used by ApplyCrop
	JPEGQuality int
	// InitialInset is the fraction trimmed from each side on load and reset
	InitialInset float64
	// ShowGrid draws rule-of-thirds guides in Render
	ShowGrid bool
	// Background fills the area around the image in Render
	Background color.NRGBA
}

// DefaultSurfaceConfig returns the settings of the crop dialog
func DefaultSurfaceConfig() SurfaceConfig {
	return SurfaceConfig{
		JPEGQuality:  95,
		InitialInset: geometry.InitialInset,
		ShowGrid:     true,
		Background:   color.NRGBA{17, 24, 39, 255},
	}
}

// Surface is a fixed-size drawing area showing one image and a crop
// rectangle. It is not safe for concurrent use.
type Surface struct {
	width    float64
	height   float64
	config   SurfaceConfig
	analyzer *analyzer.ImageAnalyzer

	img       image.Image
	native    image.Rectangle
	imageRect types.Rect
	crop      types.Rect
	drag      DragSession
	aspect    AspectRatio
}

// NewSurface creates an empty surface of the given size
func NewSurface(width, height float64, cfg SurfaceConfig) *Surface {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 95
	}
	if cfg.InitialInset < 0 || cfg.InitialInset >= 0.5 {
		cfg.InitialInset = geometry.InitialInset
	}
	return &Surface{
		width:    width,
		height:   height,
		config:   cfg,
		analyzer: analyzer.New(),
		aspect:   Free,
	}
}

// Load places img on the surface and selects the initial inset rectangle.
// On failure the surface is left without an image.
func (s *Surface) Load(img image.Image) error {
	s.unload()
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("failed to load image: %w", ErrNotLoaded)
	}

	s.img = img
	s.native = img.Bounds()
	s.layout()
	s.Reset()
	return nil
}

// LoadBytes decodes data and loads the result
func (s *Surface) LoadBytes(data []byte) error {
	s.unload()
	img, _, err := s.analyzer.Decode(data)
	if err != nil {
		return err
	}
	return s.Load(img)
}

func (s *Surface) unload() {
	s.img = nil
	s.native = image.Rectangle{}
	s.imageRect = types.Rect{}
	s.crop = types.Rect{}
	s.drag = DragSession{}
}

func (s *Surface) layout() {
	s.imageRect = geometry.FitRect(s.width, s.height,
		float64(s.native.Dx()), float64(s.native.Dy()))
}

// Loaded reports whether an image is on the surface
func (s *Surface) Loaded() bool {
	return s.img != nil
}

// Size returns the surface dimensions
func (s *Surface) Size() types.Size {
	return types.Size{Width: s.width, Height: s.height}
}

// ImageRect returns where the image is drawn on the surface
func (s *Surface) ImageRect() types.Rect {
	return s.imageRect
}

// CropRect returns the current crop rectangle in surface coordinates
func (s *Surface) CropRect() types.Rect {
	return s.crop
}

// Drag returns a copy of the current drag session
func (s *Surface) Drag() DragSession {
	return s.drag
}

// Aspect returns the active aspect preset
func (s *Surface) Aspect() AspectRatio {
	return s.aspect
}

// State reports what the pointer is doing
func (s *Surface) State() State {
	if !s.drag.Active {
		return Idle
	}
	if s.drag.Kind == DragResize {
		return Resizing
	}
	return Moving
}

// PointerDown starts a resize when (x, y) is on a handle, a move when it is
// inside the rectangle, and does nothing otherwise.
func (s *Surface) PointerDown(x, y float64) {
	if !s.Loaded() {
		return
	}

	start := types.Point{X: x, Y: y}
	if id, ok := geometry.HandleAt(s.crop, x, y); ok {
		s.drag = DragSession{Active: true, Kind: DragResize, Handle: id, Start: start, StartRect: s.crop}
		return
	}
	if geometry.IsInside(s.crop, x, y) {
		s.drag = DragSession{Active: true, Kind: DragMove, Start: start, StartRect: s.crop}
	}
}

// PointerMove updates the rectangle for an active gesture. Deltas are
// measured from the gesture start, so the result does not depend on how
// many move events arrive.
func (s *Surface) PointerMove(x, y float64) {
	if !s.Loaded() || !s.drag.Active {
		return
	}

	dx := x - s.drag.Start.X
	dy := y - s.drag.Start.Y

	var next types.Rect
	switch s.drag.Kind {
	case DragResize:
		next = geometry.Resize(s.drag.StartRect, s.drag.Handle, dx, dy)
		if s.aspect.Locked() {
			next = lockAspect(next, s.drag.StartRect, s.drag.Handle, s.aspect.Ratio)
		}
	case DragMove:
		next = geometry.Translate(s.drag.StartRect, dx, dy)
	default:
		return
	}
	s.crop = geometry.Constrain(next, s.imageRect)
}

// PointerUp ends the current gesture
func (s *Surface) PointerUp() {
	s.drag = DragSession{}
}

// Cursor returns the cursor to show for a pointer hovering at (x, y)
func (s *Surface) Cursor(x, y float64) string {
	if !s.Loaded() {
		return geometry.CursorDefault
	}
	return geometry.CursorAt(s.crop, x, y)
}

// Reset selects the initial inset rectangle again
func (s *Surface) Reset() {
	if !s.Loaded() {
		return
	}
	s.drag = DragSession{}
	r := geometry.Inset(s.imageRect, s.config.InitialInset)
	if s.aspect.Locked() {
		r = geometry.FitAspect(r, s.aspect.Ratio)
	}
	s.crop = geometry.Constrain(r, s.imageRect)
}

// SelectAll selects the whole image
func (s *Surface) SelectAll() {
	if !s.Loaded() {
		return
	}
	s.drag = DragSession{}
	r := s.imageRect
	if s.aspect.Locked() {
		r = geometry.FitAspect(r, s.aspect.Ratio)
	}
	s.crop = geometry.Constrain(r, s.imageRect)
}

// Resize changes the surface size. The crop rectangle keeps its relative
// placement on the image and any gesture in progress is dropped.
func (s *Surface) Resize(width, height float64) {
	s.width = width
	s.height = height
	if !s.Loaded() {
		return
	}

	old := s.imageRect
	s.layout()
	s.drag = DragSession{}

	if old.Width <= 0 || old.Height <= 0 {
		s.Reset()
		return
	}
	sx := s.imageRect.Width / old.Width
	sy := s.imageRect.Height / old.Height
	r := types.Rect{
		X:      s.imageRect.X + (s.crop.X-old.X)*sx,
		Y:      s.imageRect.Y + (s.crop.Y-old.Y)*sy,
		Width:  s.crop.Width * sx,
		Height: s.crop.Height * sy,
	}
	s.crop = geometry.Constrain(r, s.imageRect)
}

// SetAspect locks the rectangle to a preset ratio. Free unlocks it.
func (s *Surface) SetAspect(a AspectRatio) {
	s.aspect = a
	if !s.Loaded() || !a.Locked() {
		return
	}
	s.crop = geometry.Constrain(geometry.FitAspect(s.crop, a.Ratio), s.imageRect)
}

// SetCrop replaces the rectangle, subject to the usual constraints
func (s *Surface) SetCrop(r types.Rect) {
	if !s.Loaded() {
		return
	}
	s.crop = geometry.Constrain(r, s.imageRect)
}

// scale returns native pixels per surface unit
func (s *Surface) scale() (float64, float64) {
	return float64(s.native.Dx()) / s.imageRect.Width,
		float64(s.native.Dy()) / s.imageRect.Height
}

// NativeRegion maps the crop rectangle to native pixel bounds. Sizes are
// floored but never zero.
func (s *Surface) NativeRegion() (image.Rectangle, error) {
	if !s.Loaded() {
		return image.Rectangle{}, ErrNotLoaded
	}

	scaleX, scaleY := s.scale()
	sx := (s.crop.X - s.imageRect.X) * scaleX
	sy := (s.crop.Y - s.imageRect.Y) * scaleY
	// absorb float error so a full selection yields the native size
	const eps = 1e-6
	w := math.Max(1, math.Floor(s.crop.Width*scaleX+eps))
	h := math.Max(1, math.Floor(s.crop.Height*scaleY+eps))
	x0 := int(math.Floor(math.Max(0, sx) + eps))
	y0 := int(math.Floor(math.Max(0, sy) + eps))

	r := image.Rect(x0, y0, x0+int(w), y0+int(h)).Add(s.native.Min)
	r = r.Intersect(s.native)
	if r.Empty() {
		return image.Rectangle{}, ErrEmptyRegion
	}
	return r, nil
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image  *image.NRGBA
	JPEG   []byte
	Region image.Rectangle
}

// ApplyCrop rasterises the selected region 1:1 at native resolution and
// encodes it as JPEG.
func (s *Surface) ApplyCrop() (*CropResult, error) {
	region, err := s.NativeRegion()
	if err != nil {
		return nil, fmt.Errorf("failed to apply crop: %w", err)
	}

	cropped := imaging.Crop(s.img, region)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(s.config.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}

	return &CropResult{
		Image:  cropped,
		JPEG:   buf.Bytes(),
		Region: region,
	}, nil
}
