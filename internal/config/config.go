package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/snappdf/snappdf/pkg/compositor"
	"github.com/snappdf/snappdf/pkg/cropper"
	"github.com/snappdf/snappdf/pkg/document"
	"github.com/snappdf/snappdf/pkg/geometry"
	"github.com/snappdf/snappdf/pkg/library"
	"github.com/snappdf/snappdf/pkg/processing"
	"github.com/snappdf/snappdf/pkg/vision"
)

// Environment variables that override the file
const (
	EnvLibraryURL = "SNAPPDF_LIBRARY_URL"
	EnvToken      = "SNAPPDF_TOKEN"
)

// Config holds the application configuration
type Config struct {
	Input   InputConfig   `json:"input"`
	Vision  VisionConfig  `json:"vision"`
	Cropper CropperConfig `json:"cropper"`
	Output  OutputConfig  `json:"output"`
	Library LibraryConfig `json:"library"`
}

// InputConfig holds configuration for loading page images
type InputConfig struct {
	MaxDimension     int      `json:"max_dimension"`
	JPEGQuality      int      `json:"jpeg_quality"`
	SupportedFormats []string `json:"supported_formats"`
	MinImageSize     int      `json:"min_image_size"`
	MaxDownloadMB    int      `json:"max_download_mb"`
}

// VisionConfig holds configuration for document boundary detection
type VisionConfig struct {
	AnalysisMaxDim    int     `json:"analysis_max_dim"`
	ContrastThreshold float64 `json:"contrast_threshold"`
	EdgeThreshold     float64 `json:"edge_threshold"`
	MinEdgePixels     int     `json:"min_edge_pixels"`
	MinAreaRatio      float64 `json:"min_area_ratio"`
	PaddingRatio      float64 `json:"padding_ratio"`
}

// CropperConfig holds configuration for the crop surface
type CropperConfig struct {
	InitialInset float64 `json:"initial_inset"`
	JPEGQuality  int     `json:"jpeg_quality"`
	ShowGrid     bool    `json:"show_grid"`
}

// OutputConfig holds configuration for PDF generation
type OutputConfig struct {
	SheetWidth      float64 `json:"sheet_width"`
	SheetHeight     float64 `json:"sheet_height"`
	JPEGQuality     int     `json:"jpeg_quality"`
	DefaultFilename string  `json:"default_filename"`
	OutputDir       string  `json:"output_dir"`
}

// LibraryConfig holds configuration for the PDF library backend
type LibraryConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Token          string `json:"token,omitempty"`
}

// Default returns a configuration with default values
func Default() *Config {
	det := vision.DefaultConfig()
	return &Config{
		Input: InputConfig{
			MaxDimension:     1920,
			JPEGQuality:      92,
			SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
			MinImageSize:     1,
			MaxDownloadMB:    50,
		},
		Vision: VisionConfig{
			AnalysisMaxDim:    det.AnalysisMaxDim,
			ContrastThreshold: det.ContrastThreshold,
			EdgeThreshold:     det.EdgeThreshold,
			MinEdgePixels:     det.MinEdgePixels,
			MinAreaRatio:      det.MinAreaRatio,
			PaddingRatio:      det.PaddingRatio,
		},
		Cropper: CropperConfig{
			InitialInset: geometry.InitialInset,
			JPEGQuality:  95,
			ShowGrid:     true,
		},
		Output: OutputConfig{
			SheetWidth:      compositor.A4.Width,
			SheetHeight:     compositor.A4.Height,
			JPEGQuality:     92,
			DefaultFilename: "New_Document.pdf",
			OutputDir:       ".",
		},
		Library: LibraryConfig{
			BaseURL:        "http://localhost:5000",
			TimeoutSeconds: 60,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing keys keep
// their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists, falls back to defaults otherwise and
// applies environment overrides.
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if config, err = LoadFromFile(filename); err != nil {
				return nil, err
			}
		}
	}
	config.ApplyEnv()
	return config, config.Validate()
}

// ApplyEnv overrides library settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLibraryURL); v != "" {
		c.Library.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Library.Token = v
	}
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file may hold a token
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.MaxDimension < 0 {
		return fmt.Errorf("input.max_dimension must not be negative")
	}

	if c.Input.JPEGQuality < 1 || c.Input.JPEGQuality > 100 {
		return fmt.Errorf("input.jpeg_quality must be between 1 and 100")
	}

	if c.Input.MinImageSize < 1 {
		return fmt.Errorf("input.min_image_size must be positive")
	}

	if len(c.Input.SupportedFormats) == 0 {
		return fmt.Errorf("input.supported_formats cannot be empty")
	}

	if c.Vision.AnalysisMaxDim < 3 {
		return fmt.Errorf("vision.analysis_max_dim must be at least 3")
	}

	if c.Vision.MinAreaRatio < 0 || c.Vision.MinAreaRatio > 1 {
		return fmt.Errorf("vision.min_area_ratio must be between 0 and 1")
	}

	if c.Vision.PaddingRatio < 0 || c.Vision.PaddingRatio > 1 {
		return fmt.Errorf("vision.padding_ratio must be between 0 and 1")
	}

	if c.Cropper.InitialInset < 0 || c.Cropper.InitialInset >= 0.5 {
		return fmt.Errorf("cropper.initial_inset must be between 0 and 0.5")
	}

	if c.Cropper.JPEGQuality < 1 || c.Cropper.JPEGQuality > 100 {
		return fmt.Errorf("cropper.jpeg_quality must be between 1 and 100")
	}

	if c.Output.SheetWidth <= 0 || c.Output.SheetHeight <= 0 {
		return fmt.Errorf("output sheet size must be positive")
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100")
	}

	if c.Library.TimeoutSeconds < 0 {
		return fmt.Errorf("library.timeout_seconds must not be negative")
	}

	return nil
}

// ProcessingConfig returns the upload settings
func (c *Config) ProcessingConfig() processing.Config {
	cfg := processing.DefaultConfig()
	cfg.MaxDimension = c.Input.MaxDimension
	cfg.JPEGQuality = c.Input.JPEGQuality
	cfg.MaxDownloadBytes = int64(c.Input.MaxDownloadMB) << 20
	cfg.Analyzer.SupportedFormats = c.Input.SupportedFormats
	cfg.Analyzer.MinImageSize = c.Input.MinImageSize
	return cfg
}

// DetectionConfig returns the boundary detector settings
func (c *Config) DetectionConfig() vision.DetectionConfig {
	return vision.DetectionConfig{
		AnalysisMaxDim:    c.Vision.AnalysisMaxDim,
		ContrastThreshold: c.Vision.ContrastThreshold,
		EdgeThreshold:     c.Vision.EdgeThreshold,
		MinEdgePixels:     c.Vision.MinEdgePixels,
		MinAreaRatio:      c.Vision.MinAreaRatio,
		PaddingRatio:      c.Vision.PaddingRatio,
	}
}

// SurfaceConfig returns the crop surface settings
func (c *Config) SurfaceConfig() cropper.SurfaceConfig {
	cfg := cropper.DefaultSurfaceConfig()
	cfg.JPEGQuality = c.Cropper.JPEGQuality
	cfg.InitialInset = c.Cropper.InitialInset
	cfg.ShowGrid = c.Cropper.ShowGrid
	return cfg
}

// DocumentConfig returns the session settings
func (c *Config) DocumentConfig() document.Config {
	return document.Config{
		Processing:    c.ProcessingConfig(),
		Detection:     c.DetectionConfig(),
		Sheet:         compositor.Sheet{Width: c.Output.SheetWidth, Height: c.Output.SheetHeight},
		ExportQuality: c.Output.JPEGQuality,
		CropQuality:   c.Cropper.JPEGQuality,
		Surface:       c.SurfaceConfig(),
	}
}

// LibraryClientConfig returns the library client settings
func (c *Config) LibraryClientConfig() library.Config {
	return library.Config{
		BaseURL: c.Library.BaseURL,
		Token:   c.Library.Token,
		Timeout: time.Duration(c.Library.TimeoutSeconds) * time.Second,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "snappdf", "config.json")
}
