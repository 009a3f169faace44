package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode is returned when image bytes cannot be decoded
	ErrDecode = errors.New("failed to decode image")
	// ErrUnsupportedFormat is returned for a decodable format that is not enabled
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrImageTooSmall is returned by ValidateImage
	ErrImageTooSmall = errors.New("image too small")
)

// ImageAnalyzer decodes and validates image sources
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
	// AutoOrient applies the EXIF orientation tag while decoding
	AutoOrient bool
}

// DefaultConfig returns the formats a browser file picker accepts for images
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
		MinImageSize:     1,
		AutoOrient:       true,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// Decode decodes raw image bytes and returns the image with its format name
func (a *ImageAnalyzer) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// x/image/webp does not handle every encoder's output
		if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return a.checkFormat(img, "webp")
		}
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(a.config.AutoOrient))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return a.checkFormat(img, format)
}

func (a *ImageAnalyzer) checkFormat(img image.Image, format string) (image.Image, string, error) {
	if !a.isFormatSupported(format) {
		return nil, format, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if img.Bounds().Empty() {
		return nil, format, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}
	return img, format, nil
}

// LoadImage loads an image from file
func (a *ImageAnalyzer) LoadImage(filepath string) (image.Image, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	return a.LoadImageFromReader(file)
}

// LoadImageFromReader loads an image from an io.Reader
func (a *ImageAnalyzer) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, _, err := a.Decode(data)
	return img, err
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	return Info(img)
}

// Info returns the native size of img
func Info(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

// Landscape reports whether the image is wider than tall
func (i ImageInfo) Landscape() bool {
	return i.Width > i.Height
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	format = normalizeFormat(format)
	for _, supported := range a.config.SupportedFormats {
		if normalizeFormat(supported) == format {
			return true
		}
	}
	return false
}

func normalizeFormat(format string) string {
	format = strings.ToLower(format)
	if format == "jpg" {
		return "jpeg"
	}
	return format
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrDecode)
	}
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("%w: %dx%d (minimum: %d)", ErrImageTooSmall,
			bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
