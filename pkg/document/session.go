// Package document holds the ordered pages of a PDF being assembled and
// turns them into a PDF: each page keeps its source JPEG and a filter
// choice, and export renders the filters, composes the sheets and
// optionally stores the result in the library.
package document

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/snappdf/snappdf/pkg/analyzer"
	"github.com/snappdf/snappdf/pkg/blobs"
	"github.com/snappdf/snappdf/pkg/compositor"
	"github.com/snappdf/snappdf/pkg/cropper"
	"github.com/snappdf/snappdf/pkg/filter"
	"github.com/snappdf/snappdf/pkg/pdfwriter"
	"github.com/snappdf/snappdf/pkg/processing"
	"github.com/snappdf/snappdf/pkg/vision"
)

var (
	// ErrPageIndex is returned for an index outside the page list
	ErrPageIndex = errors.New("page index out of range")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("session closed")
)

// Config configures a Session
type Config struct {
	Processing processing.Config
	Detection  vision.DetectionConfig
	Sheet      compositor.Sheet
	// ExportQuality is the JPEG quality of composed pages
	ExportQuality int
	// CropQuality is the JPEG quality of cropped page sources
	CropQuality int
	// Surface configures the crop surfaces opened by Edit
	Surface cropper.SurfaceConfig
	// NewWriter creates the PDF writer for each export
	NewWriter func() compositor.Writer
	Logger    *logrus.Entry
}

// DefaultConfig returns the settings of the web client
func DefaultConfig() Config {
	return Config{
		Processing:    processing.DefaultConfig(),
		Detection:     vision.DefaultConfig(),
		Sheet:         compositor.A4,
		ExportQuality: 92,
		CropQuality:   95,
		Surface:       cropper.DefaultSurfaceConfig(),
	}
}

// Page is one entry of the page list
type Page struct {
	// Source is the page JPEG in the session registry
	Source blobs.ID
	Filter filter.Filter
	Width  int
	Height int
}

// Session is an ordered list of pages. It is not safe for concurrent use.
type Session struct {
	config    Config
	registry  *blobs.Registry
	processor *processing.Processor
	detector  *vision.Detector
	pages     []Page
	closed    bool
	log       *logrus.Entry
}

// NewSession creates an empty session
func NewSession(cfg Config) *Session {
	def := DefaultConfig()
	if cfg.Processing.MaxDimension == 0 && cfg.Processing.JPEGQuality == 0 {
		cfg.Processing = def.Processing
	}
	if cfg.Sheet.Width <= 0 || cfg.Sheet.Height <= 0 {
		cfg.Sheet = def.Sheet
	}
	if cfg.ExportQuality <= 0 || cfg.ExportQuality > 100 {
		cfg.ExportQuality = def.ExportQuality
	}
	if cfg.CropQuality <= 0 || cfg.CropQuality > 100 {
		cfg.CropQuality = def.CropQuality
	}
	if cfg.Surface.JPEGQuality == 0 {
		cfg.Surface = def.Surface
	}
	if cfg.Detection.AnalysisMaxDim <= 0 {
		cfg.Detection = def.Detection
	}
	if cfg.NewWriter == nil {
		cfg.NewWriter = func() compositor.Writer { return pdfwriter.New() }
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Session{
		config:    cfg,
		registry:  blobs.NewRegistry(),
		processor: processing.NewProcessorWithConfig(cfg.Processing),
		detector:  vision.NewWithConfig(cfg.Detection),
		log:       log.WithField("component", "document"),
	}
}

// Len returns the number of pages
func (s *Session) Len() int {
	return len(s.pages)
}

// Pages returns a copy of the page list
func (s *Session) Pages() []Page {
	out := make([]Page, len(s.pages))
	copy(out, s.pages)
	return out
}

// Registry exposes the buffers owned by the session
func (s *Session) Registry() *blobs.Registry {
	return s.registry
}

func (s *Session) check(i int) error {
	if s.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageIndex, i, len(s.pages))
	}
	return nil
}

// AddImage normalises an uploaded or captured image and appends it as a
// new page with no filter. It returns the page index.
func (s *Session) AddImage(data []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	jpeg, img, err := s.processor.NormalizeBytes(data)
	if err != nil {
		return 0, fmt.Errorf("failed to add page: %w", err)
	}
	return s.appendPage(jpeg, img.Bounds().Dx(), img.Bounds().Dy()), nil
}

// AddSource loads a file path, URL or data URI and appends it
func (s *Session) AddSource(ctx context.Context, source string) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	data, err := s.processor.ReadSource(ctx, source)
	if err != nil {
		return 0, err
	}
	return s.AddImage(data)
}

// AddDecoded appends an already decoded image
func (s *Session) AddDecoded(img image.Image) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	norm := s.processor.Normalize(img)
	jpeg, err := processing.EncodeJPEG(norm, s.processor.Config().JPEGQuality)
	if err != nil {
		return 0, fmt.Errorf("failed to add page: %w", err)
	}
	return s.appendPage(jpeg, norm.Bounds().Dx(), norm.Bounds().Dy()), nil
}

func (s *Session) appendPage(jpeg []byte, w, h int) int {
	id := s.registry.Create(jpeg)
	s.pages = append(s.pages, Page{Source: id, Filter: filter.None, Width: w, Height: h})
	s.log.WithFields(logrus.Fields{
		"page":  len(s.pages),
		"bytes": len(jpeg),
		"id":    id,
	}).Debug("page added")
	return len(s.pages) - 1
}

// Source returns the JPEG bytes of page i
func (s *Session) Source(i int) ([]byte, error) {
	if err := s.check(i); err != nil {
		return nil, err
	}
	return s.registry.Resolve(s.pages[i].Source)
}

// Image decodes page i
func (s *Session) Image(i int) (image.Image, error) {
	data, err := s.Source(i)
	if err != nil {
		return nil, err
	}
	img, _, err := analyzer.New().Decode(data)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	return img, nil
}

// Preview returns a thumbnail of page i, at most maxDim pixels on its longest
// side, with a fast approximation of the page filter. Export does not use it.
func (s *Session) Preview(i, maxDim int) (image.Image, error) {
	img, err := s.Image(i)
	if err != nil {
		return nil, err
	}
	if maxDim > 0 {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Box)
	}
	out, err := filter.Preview(img, s.pages[i].Filter)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	return out, nil
}

// Remove deletes page i and releases its buffer
func (s *Session) Remove(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.registry.Revoke(s.pages[i].Source)
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
	s.log.WithFields(logrus.Fields{"page": i + 1, "pages": len(s.pages)}).Debug("page removed")
	return nil
}

// MoveUp swaps page i with its predecessor. The first page stays put.
func (s *Session) MoveUp(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	if i > 0 {
		s.pages[i-1], s.pages[i] = s.pages[i], s.pages[i-1]
	}
	return nil
}

// MoveDown swaps page i with its successor. The last page stays put.
func (s *Session) MoveDown(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	if i < len(s.pages)-1 {
		s.pages[i+1], s.pages[i] = s.pages[i], s.pages[i+1]
	}
	return nil
}

// Replace swaps the source of page i for jpeg and releases the old buffer.
// The filter choice is kept.
func (s *Session) Replace(i int, jpeg []byte) error {
	if err := s.check(i); err != nil {
		return err
	}
	img, _, err := analyzer.New().Decode(jpeg)
	if err != nil {
		return fmt.Errorf("failed to replace page %d: %w", i+1, err)
	}

	old := s.pages[i].Source
	s.pages[i].Source = s.registry.Create(jpeg)
	s.pages[i].Width = img.Bounds().Dx()
	s.pages[i].Height = img.Bounds().Dy()
	s.registry.Revoke(old)

	s.log.WithFields(logrus.Fields{
		"page":  i + 1,
		"bytes": len(jpeg),
		"id":    s.pages[i].Source,
	}).Debug("page replaced")
	return nil
}

// SetFilter records the filter applied to page i at export
func (s *Session) SetFilter(i int, f filter.Filter) error {
	if err := s.check(i); err != nil {
		return err
	}
	if !f.Valid() {
		return fmt.Errorf("%w: %q", filter.ErrUnknownFilter, string(f))
	}
	s.pages[i].Filter = f
	s.log.WithFields(logrus.Fields{"page": i + 1, "filter": f}).Debug("filter set")
	return nil
}

// SetFilterAll records f for every page
func (s *Session) SetFilterAll(f filter.Filter) error {
	for i := range s.pages {
		if err := s.SetFilter(i, f); err != nil {
			return err
		}
	}
	return nil
}

// AutoCrop detects the document on page i and replaces the page with the
// detected region. Nothing changes when detection is not confident.
func (s *Session) AutoCrop(i int) (vision.Detection, error) {
	img, err := s.Image(i)
	if err != nil {
		return vision.Detection{}, err
	}

	det := s.detector.DetectBoundary(img)
	s.log.WithFields(logrus.Fields{
		"page":     i + 1,
		"detected": det.Detected,
	}).Debug("boundary detection")
	if !det.Detected {
		return det, nil
	}
	if err := s.Crop(i, det.Region, 0, false, false); err != nil {
		return det, err
	}
	return det, nil
}

// Crop cuts region out of page i, after rotating by rotation degrees and
// flipping. An empty region keeps the whole transformed image.
func (s *Session) Crop(i int, region image.Rectangle, rotation float64, flipH, flipV bool) error {
	img, err := s.Image(i)
	if err != nil {
		return err
	}
	cropped, err := cropper.CropTransformed(img, region, rotation, flipH, flipV)
	if err != nil {
		return fmt.Errorf("failed to crop page %d: %w", i+1, err)
	}
	jpeg, err := processing.EncodeJPEG(cropped, s.config.CropQuality)
	if err != nil {
		return err
	}
	return s.Replace(i, jpeg)
}

// Edit opens page i on a crop surface of the given size
func (s *Session) Edit(i int, width, height float64) (*cropper.Surface, error) {
	img, err := s.Image(i)
	if err != nil {
		return nil, err
	}
	cfg := s.config.Surface
	cfg.JPEGQuality = s.config.CropQuality
	surface := cropper.NewSurface(width, height, cfg)
	if err := surface.Load(img); err != nil {
		return nil, err
	}
	return surface, nil
}

// ApplyEdit replaces page i with the current selection of surface
func (s *Session) ApplyEdit(i int, surface *cropper.Surface) error {
	if err := s.check(i); err != nil {
		return err
	}
	res, err := surface.ApplyCrop()
	if err != nil {
		return err
	}
	return s.Replace(i, res.JPEG)
}

// Close releases every buffer. The session cannot be used afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	n := s.registry.RevokeAll()
	s.pages = nil
	s.closed = true
	s.log.WithField("released", n).Debug("session closed")
}
