package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/snappdf/snappdf/pkg/compositor"
	"github.com/snappdf/snappdf/pkg/vision"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Output.DefaultFilename != "New_Document.pdf" {
		t.Errorf("Expected New_Document.pdf, got %s", cfg.Output.DefaultFilename)
	}
	if diff := cmp.Diff(vision.DefaultConfig(), cfg.DetectionConfig()); diff != "" {
		t.Errorf("Detection defaults mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.DocumentConfig().Sheet; got != compositor.A4 {
		t.Errorf("Expected A4 sheet, got %+v", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Output.JPEGQuality = 80
	cfg.Library.BaseURL = "https://pdfs.example.com"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"output": {"jpeg_quality": 70}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.JPEGQuality != 70 {
		t.Errorf("Expected 70, got %d", cfg.Output.JPEGQuality)
	}
	if cfg.Input.MaxDimension != 1920 {
		t.Errorf("Expected default max dimension, got %d", cfg.Input.MaxDimension)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvLibraryURL, "http://backend:5000")
	t.Setenv(EnvToken, "abc")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Library.BaseURL != "http://backend:5000" || cfg.Library.Token != "abc" {
		t.Errorf("Env overrides not applied: %+v", cfg.Library)
	}
	if got := cfg.LibraryClientConfig().Token; got != "abc" {
		t.Errorf("Expected token in client config, got %q", got)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"input quality", func(c *Config) { c.Input.JPEGQuality = 0 }},
		{"formats", func(c *Config) { c.Input.SupportedFormats = nil }},
		{"analysis dim", func(c *Config) { c.Vision.AnalysisMaxDim = 2 }},
		{"area ratio", func(c *Config) { c.Vision.MinAreaRatio = 1.5 }},
		{"inset", func(c *Config) { c.Cropper.InitialInset = 0.5 }},
		{"sheet", func(c *Config) { c.Output.SheetHeight = 0 }},
		{"output quality", func(c *Config) { c.Output.JPEGQuality = 101 }},
		{"timeout", func(c *Config) { c.Library.TimeoutSeconds = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	if got := GetConfigPath(); filepath.Base(filepath.Dir(got)) != "snappdf" {
		t.Errorf("Unexpected config path %s", got)
	}
}
