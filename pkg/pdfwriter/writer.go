// Package pdfwriter builds and inspects image-only PDF documents with
// pdfcpu. Pages that cannot be read back as a single embedded image are
// rasterised with MuPDF through go-fitz.
package pdfwriter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/snappdf/snappdf/pkg/compositor"
)

var (
	// ErrInvalidRef is returned for a page or image reference this document did not issue
	ErrInvalidRef = errors.New("invalid reference")
	// ErrPageLayout is returned for a page that does not carry exactly one image
	ErrPageLayout = errors.New("each page must carry exactly one image")
)

type embedded struct {
	data   []byte
	width  int
	height int
}

type page struct {
	width, height float64
	draws         []drawCall
}

type drawCall struct {
	img       compositor.ImageRef
	placement compositor.Placement
}

// Document is an in-memory PDF under construction. It implements
// compositor.Writer.
type Document struct {
	conf   *model.Configuration
	pages  []page
	images []embedded
}

var _ compositor.Writer = (*Document)(nil)

// New creates an empty document
func New() *Document {
	return &Document{conf: model.NewDefaultConfiguration()}
}

// AddPage appends a page of the given size in points
func (d *Document) AddPage(width, height float64) compositor.PageRef {
	d.pages = append(d.pages, page{width: width, height: height})
	return compositor.PageRef(len(d.pages) - 1)
}

// EmbedImage registers JPEG data for drawing
func (d *Document) EmbedImage(jpeg []byte) (compositor.ImageRef, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(jpeg))
	if err != nil {
		return 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if format != "jpeg" {
		return 0, fmt.Errorf("expected jpeg data, got %s", format)
	}
	d.images = append(d.images, embedded{data: jpeg, width: cfg.Width, height: cfg.Height})
	return compositor.ImageRef(len(d.images) - 1), nil
}

// DrawImage places an embedded image on a page
func (d *Document) DrawImage(p compositor.PageRef, img compositor.ImageRef, pl compositor.Placement) error {
	if int(p) < 0 || int(p) >= len(d.pages) {
		return fmt.Errorf("%w: page %d", ErrInvalidRef, p)
	}
	if int(img) < 0 || int(img) >= len(d.images) {
		return fmt.Errorf("%w: image %d", ErrInvalidRef, img)
	}
	d.pages[p].draws = append(d.pages[p].draws, drawCall{img: img, placement: pl})
	return nil
}

// PageCount returns the number of pages added so far
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Save renders the document. Pages are imported one at a time so each can
// carry its own size and placement.
func (d *Document) Save() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, compositor.ErrEmptyDocument
	}

	var out []byte
	for i, pg := range d.pages {
		if len(pg.draws) != 1 {
			return nil, fmt.Errorf("page %d: %w (got %d)", i+1, ErrPageLayout, len(pg.draws))
		}
		call := pg.draws[0]
		img := d.images[call.img]

		var rs io.ReadSeeker
		if out != nil {
			rs = bytes.NewReader(out)
		}
		var buf bytes.Buffer
		imp := importConfig(pg, img, call.placement)
		if err := pdfapi.ImportImages(rs, &buf, []io.Reader{bytes.NewReader(img.data)}, imp, d.conf); err != nil {
			return nil, fmt.Errorf("page %d: failed to import image: %w", i+1, err)
		}
		out = buf.Bytes()
	}
	return out, nil
}

// importConfig anchors the image at the bottom-left corner of the page and
// offsets it to the placement. Placement Y runs top-down, PDF space runs
// bottom-up.
func importConfig(pg page, img embedded, pl compositor.Placement) *pdfcpu.Import {
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: pg.width, Height: pg.height}
	imp.PageSize = ""
	imp.UserDim = true
	imp.InpUnit = types.POINTS
	imp.DPI = 0
	imp.Pos = types.BottomLeft
	imp.ScaleAbs = true
	imp.Scale = pl.Width / float64(img.width)
	imp.Dx = pl.X
	imp.Dy = pg.height - pl.Y - pl.Height
	return imp
}
