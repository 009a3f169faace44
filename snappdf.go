// Package snappdf turns photos of paper documents into PDFs.
//
// It finds the page in a photo, lets the caller crop it by hand, cleans it
// up with an enhancement filter and lays every page onto an A4 sheet.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		"github.com/snappdf/snappdf"
//		"github.com/snappdf/snappdf/pkg/filter"
//	)
//
//	func main() {
//		sp := snappdf.New()
//
//		// Auto-crop each photo, apply the magic color filter and
//		// write one A4 page per photo
//		pdf, err := sp.BuildPDF(context.Background(), []string{"receipt.jpg", "page2.png"},
//			snappdf.Options{Filter: filter.MagicColor, AutoCrop: true})
//		if err != nil {
//			log.Fatal(err)
//		}
//		os.WriteFile("scan.pdf", pdf.PDF, 0o644)
//	}
//
// The package consists of these components:
//
// 1. Geometry (pkg/geometry): crop rectangle handles, hit testing and constraints
// 2. Cropper (pkg/cropper): the interactive crop surface and its drag state machine
// 3. Vision (pkg/vision): document boundary detection
// 4. Filter (pkg/filter): pixel enhancement filters
// 5. Compositor (pkg/compositor, pkg/pdfwriter): page placement and PDF output
// 6. Document (pkg/document): the ordered page list and export
// 7. Library (pkg/library): the PDF library backend client
package snappdf

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/snappdf/snappdf/pkg/analyzer"
	"github.com/snappdf/snappdf/pkg/cropper"
	"github.com/snappdf/snappdf/pkg/document"
	"github.com/snappdf/snappdf/pkg/filter"
	"github.com/snappdf/snappdf/pkg/geometry"
	"github.com/snappdf/snappdf/pkg/processing"
	"github.com/snappdf/snappdf/pkg/types"
	"github.com/snappdf/snappdf/pkg/vision"
)

// Version of the snappdf library
const Version = "1.0.0"

// SnapPDF provides a high-level interface over the scan pipeline
type SnapPDF struct {
	analyzer  *analyzer.ImageAnalyzer
	detector  *vision.Detector
	processor *processing.Processor
	docConfig document.Config
}

// New creates a SnapPDF with default configuration
func New() *SnapPDF {
	return NewWithConfig(document.DefaultConfig())
}

// NewWithConfig creates a SnapPDF from session settings
func NewWithConfig(cfg document.Config) *SnapPDF {
	def := document.DefaultConfig()
	if cfg.Processing.MaxDimension == 0 && cfg.Processing.JPEGQuality == 0 {
		cfg.Processing = def.Processing
	}
	if cfg.Detection.AnalysisMaxDim <= 0 {
		cfg.Detection = def.Detection
	}
	if len(cfg.Processing.Analyzer.SupportedFormats) == 0 {
		cfg.Processing.Analyzer = analyzer.DefaultConfig()
	}
	return &SnapPDF{
		analyzer:  analyzer.NewWithConfig(cfg.Processing.Analyzer),
		detector:  vision.NewWithConfig(cfg.Detection),
		processor: processing.NewProcessorWithConfig(cfg.Processing),
		docConfig: cfg,
	}
}

// Options are the edits BuildPDF applies to every page
type Options struct {
	Filter   filter.Filter
	AutoCrop bool
	// Filename defaults to New_Document.pdf
	Filename string
}

// LoadImage loads an image from file
func (sp *SnapPDF) LoadImage(path string) (image.Image, error) {
	return sp.analyzer.LoadImage(path)
}

// LoadSource loads an image from a file path, an http(s) URL or a data URI
func (sp *SnapPDF) LoadSource(ctx context.Context, source string) (image.Image, error) {
	return sp.processor.LoadImageSmart(ctx, source)
}

// LoadImageFromReader loads an image from an io.Reader
func (sp *SnapPDF) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	return sp.analyzer.LoadImageFromReader(reader)
}

// GetImageInfo returns basic information about an image
func (sp *SnapPDF) GetImageInfo(img image.Image) analyzer.ImageInfo {
	return sp.analyzer.GetImageInfo(img)
}

// ValidateImage checks if an image meets requirements
func (sp *SnapPDF) ValidateImage(img image.Image) error {
	return sp.analyzer.ValidateImage(img)
}

// DetectBoundary locates the document in img
func (sp *SnapPDF) DetectBoundary(img image.Image) vision.Detection {
	return sp.detector.DetectBoundary(img)
}

// AutoCrop crops img to the detected document, or returns it unchanged
func (sp *SnapPDF) AutoCrop(img image.Image) (image.Image, vision.Detection) {
	return sp.detector.AutoCrop(img)
}

// ApplyFilter runs an enhancement filter on img
func (sp *SnapPDF) ApplyFilter(img image.Image, f filter.Filter) (*image.NRGBA, error) {
	return filter.Apply(img, f)
}

// CropToAspect crops the largest centred region of img with the given
// width/height ratio
func (sp *SnapPDF) CropToAspect(img image.Image, aspect cropper.AspectRatio) (*image.NRGBA, error) {
	b := img.Bounds()
	region := b
	if aspect.Locked() {
		full := types.RectFromImage(b)
		region = geometry.FitAspect(full, aspect.Ratio).Pixels().Intersect(b)
	}
	return cropper.CropTransformed(img, region, 0, false, false)
}

// NewSession starts an empty document
func (sp *SnapPDF) NewSession() *document.Session {
	return document.NewSession(sp.docConfig)
}

// BuildPDF loads every source (file path, URL or data URI), applies opts and
// composes the pages in order
func (sp *SnapPDF) BuildPDF(ctx context.Context, sources []string, opts Options) (*document.Export, error) {
	session := sp.NewSession()
	defer session.Close()

	for _, src := range sources {
		i, err := session.AddSource(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		if opts.AutoCrop {
			if _, err := session.AutoCrop(i); err != nil {
				return nil, err
			}
		}
	}
	if opts.Filter != "" {
		if err := session.SetFilterAll(opts.Filter); err != nil {
			return nil, err
		}
	}
	return session.Export(ctx, opts.Filename)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
