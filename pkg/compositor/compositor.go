// Package compositor places page images onto fixed-size sheets and drives a
// PDF writer, one page per image, in input order.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrEncode is returned when a page image cannot be encoded or embedded
	ErrEncode = errors.New("failed to encode page")
	// ErrEmptyDocument is returned when there are no pages to compose
	ErrEmptyDocument = errors.New("document has no pages")
)

// Sheet is an output page size in PDF points
type Sheet struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// A4 is ISO A4 portrait
var A4 = Sheet{Width: 595.28, Height: 841.89}

// Placement is where an image lands on a sheet. X and Y are measured from
// the top-left corner of the sheet.
type Placement struct {
	Scale  float64
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Fit scales an image uniformly to fit the sheet and centers it. Small
// images are scaled up.
func Fit(imgW, imgH float64, sheet Sheet) Placement {
	if imgW <= 0 || imgH <= 0 {
		return Placement{}
	}
	scale := math.Min(sheet.Width/imgW, sheet.Height/imgH)
	w := imgW * scale
	h := imgH * scale
	return Placement{
		Scale:  scale,
		X:      (sheet.Width - w) / 2,
		Y:      (sheet.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

// PageRef identifies a page added to a Writer
type PageRef int

// ImageRef identifies an image embedded in a Writer
type ImageRef int

// Writer is the PDF building capability the compositor drives
type Writer interface {
	AddPage(width, height float64) PageRef
	EmbedImage(jpeg []byte) (ImageRef, error)
	DrawImage(page PageRef, img ImageRef, p Placement) error
	Save() ([]byte, error)
}

// Page is one rendered page image, JPEG encoded, with its pixel size
type Page struct {
	JPEG   []byte
	Width  int
	Height int
}

// NewPage encodes img as a page at the given JPEG quality
func NewPage(img image.Image, quality int) (Page, error) {
	if img == nil || img.Bounds().Empty() {
		return Page{}, fmt.Errorf("%w: empty image", ErrEncode)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	b := img.Bounds()
	return Page{JPEG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Compose adds one sheet per page to w, in order, and returns the saved
// document. The first failure aborts and no bytes are returned.
func Compose(ctx context.Context, w Writer, pages []Page, sheet Sheet) ([]byte, error) {
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.Width <= 0 || p.Height <= 0 || len(p.JPEG) == 0 {
			return nil, fmt.Errorf("page %d: %w: invalid page buffer", i+1, ErrEncode)
		}

		ref := w.AddPage(sheet.Width, sheet.Height)
		img, err := w.EmbedImage(p.JPEG)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w: %v", i+1, ErrEncode, err)
		}
		placement := Fit(float64(p.Width), float64(p.Height), sheet)
		if err := w.DrawImage(ref, img, placement); err != nil {
			return nil, fmt.Errorf("page %d: failed to draw image: %w", i+1, err)
		}
	}

	out, err := w.Save()
	if err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	return out, nil
}
