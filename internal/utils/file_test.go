package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnsurePDFExtension(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultPDFName},
		{"   ", DefaultPDFName},
		{"Scan", "Scan.pdf"},
		{"Scan.pdf", "Scan.pdf"},
		{"Scan.PDF", "Scan.PDF"},
		{"report.final", "report.final.pdf"},
	}
	for _, tt := range tests {
		if got := EnsurePDFExtension(tt.in); got != tt.want {
			t.Errorf("EnsurePDFExtension(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("out", "My:Scan"); got != filepath.Join("out", "My_Scan.pdf") {
		t.Errorf("Unexpected path %q", got)
	}
	if got := OutputPath("out", ""); got != filepath.Join("out", DefaultPDFName) {
		t.Errorf("Unexpected default path %q", got)
	}
}

func TestIsImageFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.jpg": true, "b.JPEG": true, "c.png": true, "d.webp": true,
		"e.gif": true, "f.pdf": false, "g": false, "h.tiff": false,
	} {
		if got := IsImageFile(name); got != want {
			t.Errorf("IsImageFile(%q): expected %v, got %v", name, want, got)
		}
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ExpandInputs([]string{"first.png", dir})
	if err != nil {
		t.Fatalf("ExpandInputs failed: %v", err)
	}
	want := []string{"first.png", filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExpandInputs mismatch (-want +got):\n%s", diff)
	}
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.pdf")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(file) || FileExists(dir) {
		t.Error("FileExists mismatch")
	}
	if !DirExists(dir) || DirExists(file) || DirExists(filepath.Join(dir, "nope")) {
		t.Error("DirExists mismatch")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(" a/b:c?.pdf. "); got != "a_b_c_.pdf" {
		t.Errorf("Expected a_b_c_.pdf, got %q", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := FormatFileSize(in); got != want {
			t.Errorf("FormatFileSize(%d): expected %q, got %q", in, want, got)
		}
	}
}
