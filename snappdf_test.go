package snappdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/snappdf/snappdf/pkg/cropper"
	"github.com/snappdf/snappdf/pkg/filter"
	"github.com/snappdf/snappdf/pkg/pdfwriter"
)

// createTestImage draws a light page on a dark background
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/5 && x < 4*width/5 && y > height/6 && y < 5*height/6 {
				img.Set(x, y, color.RGBA{240, 240, 235, 255})
			} else {
				img.Set(x, y, color.RGBA{50, 50, 50, 255})
			}
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	sp := New()
	if sp == nil {
		t.Fatal("New() returned nil")
	}
	if sp.analyzer == nil || sp.detector == nil || sp.processor == nil {
		t.Error("component is nil")
	}
	if GetVersion() != Version {
		t.Errorf("Expected version %s, got %s", Version, GetVersion())
	}
}

func TestDetectAndCrop(t *testing.T) {
	sp := New()
	img := createTestImage(500, 600)

	det := sp.DetectBoundary(img)
	if !det.Detected {
		t.Fatal("Expected a detection")
	}
	cropped, _ := sp.AutoCrop(img)
	if cropped.Bounds().Dx() >= 500 {
		t.Errorf("Expected a narrower image, got %v", cropped.Bounds())
	}
}

func TestCropToAspect(t *testing.T) {
	sp := New()
	out, err := sp.CropToAspect(createTestImage(400, 300), cropper.Square)
	if err != nil {
		t.Fatalf("CropToAspect failed: %v", err)
	}
	if out.Bounds().Dx() != 300 || out.Bounds().Dy() != 300 {
		t.Errorf("Expected 300x300, got %v", out.Bounds())
	}

	free, err := sp.CropToAspect(createTestImage(40, 30), cropper.Free)
	if err != nil {
		t.Fatal(err)
	}
	if free.Bounds().Dx() != 40 || free.Bounds().Dy() != 30 {
		t.Errorf("Free aspect should keep the image, got %v", free.Bounds())
	}
}

func TestApplyFilter(t *testing.T) {
	out, err := New().ApplyFilter(createTestImage(20, 20), filter.Threshold)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(10, 10); got.R != 255 {
		t.Errorf("Expected white page after threshold, got %v", got)
	}
	if got := out.NRGBAAt(0, 0); got.R != 0 {
		t.Errorf("Expected black background after threshold, got %v", got)
	}
}

func TestLoadSource(t *testing.T) {
	sp := New()
	img := createTestImage(60, 40)
	path := writePNG(t, t.TempDir(), "page.png", img)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, path)
	}))
	defer srv.Close()

	for _, src := range []string{path, srv.URL + "/page.png"} {
		got, err := sp.LoadSource(context.Background(), src)
		if err != nil {
			t.Fatalf("LoadSource(%s) failed: %v", src, err)
		}
		if got.Bounds().Dx() != 60 || got.Bounds().Dy() != 40 {
			t.Errorf("LoadSource(%s): expected 60x40, got %v", src, got.Bounds())
		}
	}

	if _, err := sp.LoadSource(context.Background(), "data:image/png;base64,!!"); err == nil {
		t.Error("Expected error for a bad data URI")
	}
}

func TestBuildPDF(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", createTestImage(300, 400))
	b := writePNG(t, dir, "b.png", createTestImage(400, 300))

	exp, err := New().BuildPDF(context.Background(), []string{a, b},
		Options{Filter: filter.MagicColor, AutoCrop: true, Filename: "receipts"})
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if exp.Filename != "receipts.pdf" {
		t.Errorf("Expected receipts.pdf, got %s", exp.Filename)
	}
	n, err := pdfwriter.PageCount(exp.PDF)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 pages, got %d", n)
	}

	if _, err := New().BuildPDF(context.Background(), []string{filepath.Join(dir, "missing.png")}, Options{}); err == nil {
		t.Error("Expected error for a missing input")
	}
}
