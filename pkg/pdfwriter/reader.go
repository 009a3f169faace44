package pdfwriter

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"strconv"

	"github.com/gen2brain/go-fitz"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/snappdf/snappdf/pkg/compositor"
)

// ReloadDPI is the rasterisation resolution used when a page has to be
// rendered rather than extracted: 1.5 times the 72 dpi PDF unit.
const ReloadDPI = 108

// PageCount returns the number of pages in pdf
func PageCount(pdf []byte) (int, error) {
	n, err := pdfapi.PageCount(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// PageDims returns the media box size of every page in points
func PageDims(pdf []byte) ([]compositor.Sheet, error) {
	dims, err := pdfapi.PageDims(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read page sizes: %w", err)
	}
	sheets := make([]compositor.Sheet, len(dims))
	for i, d := range dims {
		sheets[i] = compositor.Sheet{Width: d.Width, Height: d.Height}
	}
	return sheets, nil
}

// ExtractedPage is one page read back from a PDF
type ExtractedPage struct {
	Image image.Image
	// Raw holds the embedded image bytes, nil when the page was rendered
	Raw []byte
	// Rendered is true when the page went through the rasteriser
	Rendered bool
}

// ExtractPages reads every page of pdf back as an image. A page that
// carries exactly one embedded image yields that image at its own
// resolution. Any other page is rendered at ReloadDPI.
func ExtractPages(pdf []byte) ([]ExtractedPage, error) {
	n, err := PageCount(pdf)
	if err != nil {
		return nil, err
	}

	var fz *fitz.Document
	defer func() {
		if fz != nil {
			fz.Close()
		}
	}()

	pages := make([]ExtractedPage, 0, n)
	for i := 0; i < n; i++ {
		raw, img, err := embeddedImage(pdf, i)
		if err == nil {
			pages = append(pages, ExtractedPage{Image: img, Raw: raw})
			continue
		}

		if fz == nil {
			if fz, err = fitz.NewFromMemory(pdf); err != nil {
				return nil, fmt.Errorf("failed to open document for rendering: %w", err)
			}
		}
		rendered, err := fz.ImageDPI(i, ReloadDPI)
		if err != nil {
			return nil, fmt.Errorf("page %d: failed to render: %w", i+1, err)
		}
		pages = append(pages, ExtractedPage{Image: rendered, Rendered: true})
	}
	return pages, nil
}

// embeddedImage returns the single image on page pageIdx
func embeddedImage(pdf []byte, pageIdx int) ([]byte, image.Image, error) {
	pageName := strconv.Itoa(pageIdx + 1)
	images, err := pdfapi.ExtractImagesRaw(bytes.NewReader(pdf), []string{pageName}, model.NewDefaultConfiguration())
	if err != nil {
		return nil, nil, err
	}
	if len(images) != 1 || len(images[0]) != 1 {
		return nil, nil, fmt.Errorf("page %d: %w", pageIdx+1, ErrPageLayout)
	}
	for _, img := range images[0] {
		raw, err := io.ReadAll(img)
		if err != nil {
			return nil, nil, err
		}
		decoded, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, err
		}
		return raw, decoded, nil
	}
	return nil, nil, fmt.Errorf("no image found on page %d", pageIdx+1)
}
