package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/snappdf/snappdf/pkg/analyzer"
)

// ErrNotImage is returned when a URL does not serve an image
var ErrNotImage = errors.New("not an image")

// Config holds configuration for image processing
type Config struct {
	// MaxDimension caps the longest side of uploaded images, 0 disables
	MaxDimension int
	// JPEGQuality is used when re-encoding uploads and pages
	JPEGQuality int
	// Background is the colour transparent areas are flattened onto
	Background color.NRGBA
	// HTTPTimeout bounds URL downloads
	HTTPTimeout time.Duration
	// MaxDownloadBytes bounds URL downloads, 0 disables
	MaxDownloadBytes int64
	// Analyzer sets the accepted formats and minimum size of uploads
	Analyzer analyzer.Config
}

// DefaultConfig returns the upload settings of the web client
func DefaultConfig() Config {
	return Config{
		MaxDimension:     1920,
		JPEGQuality:      92,
		Background:       color.NRGBA{255, 255, 255, 255},
		HTTPTimeout:      30 * time.Second,
		MaxDownloadBytes: 50 << 20,
		Analyzer:         analyzer.DefaultConfig(),
	}
}

// Processor handles image loading, normalisation and encoding
type Processor struct {
	config   Config
	analyzer *analyzer.ImageAnalyzer
	client   *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return NewProcessorWithConfig(DefaultConfig())
}

// NewProcessorWithConfig creates a processor with custom configuration
func NewProcessorWithConfig(cfg Config) *Processor {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 92
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.Background == (color.NRGBA{}) {
		cfg.Background = color.NRGBA{255, 255, 255, 255}
	}
	if len(cfg.Analyzer.SupportedFormats) == 0 {
		cfg.Analyzer = analyzer.DefaultConfig()
	}
	return &Processor{
		config:   cfg,
		analyzer: analyzer.NewWithConfig(cfg.Analyzer),
		client:   &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Config returns the processor configuration
func (p *Processor) Config() Config {
	return p.config
}

// FetchURL downloads image bytes from an http or https URL
func (p *Processor) FetchURL(ctx context.Context, imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "SnapPDF/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: Content-Type %s", ErrNotImage, contentType)
	}

	var body io.Reader = resp.Body
	if p.config.MaxDownloadBytes > 0 {
		body = io.LimitReader(resp.Body, p.config.MaxDownloadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	data, err := p.FetchURL(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	img, _, err := p.analyzer.Decode(data)
	return img, err
}

// LoadImage loads an image from a file path
func (p *Processor) LoadImage(path string) (image.Image, error) {
	return p.analyzer.LoadImage(path)
}

// ReadSource returns the raw bytes behind a file path, URL or data URI
func (p *Processor) ReadSource(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return p.FetchURL(ctx, source)
	case strings.HasPrefix(source, "data:"):
		return DecodeDataURI(source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		return data, nil
	}
}

// LoadImageSmart loads an image from a file path, URL or data URI
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return p.LoadImageFromURL(ctx, source)
	case strings.HasPrefix(source, "data:"):
		data, err := DecodeDataURI(source)
		if err != nil {
			return nil, err
		}
		img, _, err := p.analyzer.Decode(data)
		return img, err
	default:
		return p.LoadImage(source)
	}
}

// DecodeDataURI returns the payload of a base64 data URI
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URI payload: %w", err)
	}
	return data, nil
}

// EncodeDataURI wraps JPEG bytes in a data URI
func EncodeDataURI(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

// Normalize prepares an uploaded image: the longest side is reduced to
// MaxDimension and transparency is flattened onto the background colour.
func (p *Processor) Normalize(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim := p.config.MaxDimension; maxDim > 0 && (w > maxDim || h > maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		b = img.Bounds()
	}

	bg := imaging.New(b.Dx(), b.Dy(), p.config.Background)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// NormalizeBytes decodes, normalises and re-encodes an upload as JPEG
func (p *Processor) NormalizeBytes(data []byte) ([]byte, *image.NRGBA, error) {
	img, _, err := p.analyzer.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	if err := p.analyzer.ValidateImage(img); err != nil {
		return nil, nil, err
	}
	norm := p.Normalize(img)
	out, err := EncodeJPEG(norm, p.config.JPEGQuality)
	if err != nil {
		return nil, nil, err
	}
	return out, norm, nil
}

// EncodeJPEG encodes img at the given quality
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// CreateDebugOverlay marks a detected document region in green and the
// chosen crop in gold, both in native pixels
func (p *Processor) CreateDebugOverlay(img image.Image, detected, crop image.Rectangle) *image.NRGBA {
	nrgba := imaging.Clone(img)
	off := img.Bounds().Min
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	green := color.NRGBA{0, 255, 0, 255}
	gold := color.NRGBA{255, 204, 0, 255}
	blue := color.NRGBA{0, 170, 255, 255}
	stroke := max(2, int(0.004*float64(min(w, h))))

	if !detected.Empty() {
		DrawBox(nrgba, detected.Sub(off), green, stroke)
	}
	if !crop.Empty() {
		DrawBox(nrgba, crop.Sub(off), gold, stroke)
	}

	// image center marker
	ix, iy := w/2, h/2
	DrawHLine(nrgba, iy, ix-6, ix+6, blue)
	DrawVLine(nrgba, ix, iy-6, iy+6, blue)

	return nrgba
}
