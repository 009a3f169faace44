package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPDFName is used when no output name is given
const DefaultPDFName = "New_Document.pdf"

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an extension the page pipeline can decode
func IsImageFile(filename string) bool {
	switch GetFileExtension(filename) {
	case "jpg", "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}

// IsPDFFile checks for a .pdf extension
func IsPDFFile(filename string) bool {
	return GetFileExtension(filename) == "pdf"
}

// EnsurePDFExtension returns name ending in .pdf. Blank names become
// DefaultPDFName.
func EnsurePDFExtension(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultPDFName
	}
	if IsPDFFile(name) {
		return name
	}
	return name + ".pdf"
}

// OutputPath joins dir and the sanitised, .pdf-terminated base of name
func OutputPath(dir, name string) string {
	base := SanitizeFilename(filepath.Base(EnsurePDFExtension(name)))
	if base == "" || base == ".pdf" {
		base = DefaultPDFName
	}
	return filepath.Join(dir, base)
}

// ListImageFiles lists the image files directly under dir, sorted by name
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExpandInputs replaces directory arguments with the images they contain
func ExpandInputs(inputs []string) ([]string, error) {
	var out []string
	for _, in := range inputs {
		if !DirExists(in) {
			out = append(out, in)
			continue
		}
		files, err := ListImageFiles(in)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", in, err)
		}
		out = append(out, files...)
	}
	return out, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	return strings.Trim(result, " .")
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
