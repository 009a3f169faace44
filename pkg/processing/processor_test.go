package processing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snappdf/snappdf/pkg/analyzer"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	if p.Config().MaxDimension != 1920 {
		t.Errorf("Expected max dimension 1920, got %d", p.Config().MaxDimension)
	}
	if p.Config().JPEGQuality != 92 {
		t.Errorf("Expected JPEG quality 92, got %d", p.Config().JPEGQuality)
	}
}

func TestNormalizeDownscales(t *testing.T) {
	p := NewProcessorWithConfig(Config{MaxDimension: 100, JPEGQuality: 90, Background: color.NRGBA{255, 255, 255, 255}})

	out := p.Normalize(createTestImage(400, 200))
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %v", out.Bounds())
	}

	small := p.Normalize(createTestImage(40, 30))
	if small.Bounds().Dx() != 40 || small.Bounds().Dy() != 30 {
		t.Errorf("Small images must keep their size, got %v", small.Bounds())
	}
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{255, 0, 0, 255})

	out := NewProcessor().Normalize(img)
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white behind transparent pixel, got %v", got)
	}
	if got := out.NRGBAAt(1, 1); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("Expected opaque pixel kept, got %v", got)
	}
}

func TestNormalizeBytes(t *testing.T) {
	p := NewProcessorWithConfig(Config{MaxDimension: 64})
	out, img, err := p.NormalizeBytes(encodePNG(t, createTestImage(128, 32)))
	if err != nil {
		t.Fatalf("NormalizeBytes failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected 64x16, got %v", img.Bounds())
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not JPEG: %v", err)
	}
	if cfg.Width != 64 {
		t.Errorf("Expected encoded width 64, got %d", cfg.Width)
	}

	if _, _, err := p.NormalizeBytes([]byte("nope")); !errors.Is(err, analyzer.ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestDataURI(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0x00, 0x42}
	uri := EncodeDataURI(data)
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("Unexpected prefix: %s", uri)
	}

	got, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %v, got %v", data, got)
	}

	for _, bad := range []string{"image.png", "data:image/png,raw", "data:image/png;base64", "data:;base64,!!!"} {
		if _, err := DecodeDataURI(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestLoadImageFromURL(t *testing.T) {
	pngData := encodePNG(t, createTestImage(20, 10))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scan.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	img, err := p.LoadImageFromURL(context.Background(), srv.URL+"/scan.png")
	if err != nil {
		t.Fatalf("LoadImageFromURL failed: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("Expected width 20, got %d", img.Bounds().Dx())
	}

	if _, err := p.LoadImageFromURL(context.Background(), srv.URL+"/page.html"); !errors.Is(err, ErrNotImage) {
		t.Errorf("Expected ErrNotImage, got %v", err)
	}
	if _, err := p.LoadImageFromURL(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := p.LoadImageFromURL(context.Background(), "ftp://example.com/a.png"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}

func TestLoadImageSmart(t *testing.T) {
	data := encodePNG(t, createTestImage(12, 8))
	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	p := NewProcessor()
	for _, src := range []string{path, "data:image/png;base64," + encodeBase64(data), srv.URL + "/in.png"} {
		img, err := p.LoadImageSmart(context.Background(), src)
		if err != nil {
			t.Fatalf("LoadImageSmart(%.30s) failed: %v", src, err)
		}
		if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 8 {
			t.Errorf("Expected 12x8, got %v", img.Bounds())
		}
	}

	if _, err := p.LoadImageSmart(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func encodeBase64(data []byte) string {
	return strings.TrimPrefix(EncodeDataURI(data), "data:image/jpeg;base64,")
}

func TestSaveImageFormats(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(16, 16)

	for _, format := range []string{"jpg", "png", "webp"} {
		path := filepath.Join(dir, "out."+format)
		if err := p.SaveImage(img, path, format, 90, false); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", format, err)
		}
		loaded, err := p.LoadImage(path)
		if err != nil {
			t.Fatalf("reload %s failed: %v", format, err)
		}
		if loaded.Bounds().Dx() != 16 {
			t.Errorf("%s: expected width 16, got %d", format, loaded.Bounds().Dx())
		}
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	img := createTestImage(100, 80)
	out := NewProcessor().CreateDebugOverlay(img, image.Rect(10, 10, 90, 70), image.Rect(20, 20, 80, 60))

	if got := out.NRGBAAt(10, 40); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("Expected green detection edge, got %v", got)
	}
	if got := out.NRGBAAt(20, 40); got != (color.NRGBA{255, 204, 0, 255}) {
		t.Errorf("Expected gold crop edge, got %v", got)
	}
	// the source is untouched
	if got := img.NRGBAAt(10, 40); got.G == 255 {
		t.Error("Source image was modified")
	}
}

func TestDrawLinesClip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	red := color.NRGBA{255, 0, 0, 255}

	DrawHLine(img, 5, -5, 50, red)
	DrawVLine(img, 20, 0, 10, red) // off image, ignored
	DrawBox(img, image.Rect(2, 2, 8, 8), red, 1)

	if img.NRGBAAt(0, 5) != red || img.NRGBAAt(9, 5) != red {
		t.Error("Expected the full row painted")
	}
	if img.NRGBAAt(2, 3) != red || img.NRGBAAt(7, 3) != red {
		t.Error("Expected box sides painted")
	}
	if img.NRGBAAt(4, 3) == red {
		t.Error("Box interior should be untouched")
	}
}
