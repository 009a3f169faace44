package document

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/snappdf/snappdf/internal/utils"
	"github.com/snappdf/snappdf/pkg/compositor"
	"github.com/snappdf/snappdf/pkg/filter"
	"github.com/snappdf/snappdf/pkg/library"
	"github.com/snappdf/snappdf/pkg/pdfwriter"
)

// Export is a finished PDF
type Export struct {
	Filename  string
	PDF       []byte
	PageCount int
	// Thumbnail is the rendered JPEG of the first page
	Thumbnail []byte
	// Record is set when the library accepted the PDF
	Record *library.Record
	// SaveErr holds the library failure, if any. The PDF is still valid.
	SaveErr error
}

// Metadata returns the library metadata of the export
func (e *Export) Metadata() library.Metadata {
	return library.Metadata{
		Filename:  e.Filename,
		PageCount: e.PageCount,
		FileSize:  len(e.PDF),
		Thumbnail: e.Thumbnail,
	}
}

// Export renders every page with its filter and composes them, one sheet per
// page in list order. Any failure aborts the whole export.
func (s *Session) Export(ctx context.Context, filename string) (*Export, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.pages) == 0 {
		return nil, compositor.ErrEmptyDocument
	}

	name := utils.EnsurePDFExtension(filename)
	log := s.log.WithFields(logrus.Fields{"pages": len(s.pages), "file": name})

	// rendered pages only live for the duration of the export
	scope := s.registry.Scope()
	defer scope.Release()

	pages := make([]compositor.Page, 0, len(s.pages))
	for i, p := range s.pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := s.Image(i)
		if err != nil {
			return nil, err
		}
		filtered, err := filter.Apply(img, p.Filter)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		page, err := compositor.NewPage(filtered, s.config.ExportQuality)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		scope.Create(page.JPEG)
		pages = append(pages, page)

		log.WithFields(logrus.Fields{
			"page":   i + 1,
			"filter": p.Filter,
			"bytes":  len(page.JPEG),
		}).Debug("page rendered")
	}

	pdf, err := compositor.Compose(ctx, s.config.NewWriter(), pages, s.config.Sheet)
	if err != nil {
		return nil, err
	}

	log.WithField("bytes", len(pdf)).Info("pdf generated")
	return &Export{
		Filename:  name,
		PDF:       pdf,
		PageCount: len(pages),
		Thumbnail: pages[0].JPEG,
	}, nil
}

// ExportAndSave exports the session and stores the PDF with store. A
// library failure is logged and reported in SaveErr; the PDF is returned
// either way. Nothing is stored when the export itself fails.
func (s *Session) ExportAndSave(ctx context.Context, filename string, store library.Store) (*Export, error) {
	exp, err := s.Export(ctx, filename)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return exp, nil
	}

	rec, err := store.Save(ctx, exp.PDF, exp.Metadata())
	if err != nil {
		exp.SaveErr = err
		s.log.WithError(err).WithField("file", exp.Filename).Warn("library save failed, pdf still generated")
		return exp, nil
	}
	exp.Record = rec
	s.log.WithFields(logrus.Fields{"id": rec.ID, "file": exp.Filename}).Info("pdf saved to library")
	return exp, nil
}

// ExportAndUpdate exports the session and replaces the library record id.
// With a nil store only the export happens.
func (s *Session) ExportAndUpdate(ctx context.Context, id, filename string, store library.Store) (*Export, error) {
	exp, err := s.Export(ctx, filename)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return exp, nil
	}
	rec, err := store.Update(ctx, id, exp.PDF, exp.Metadata())
	if err != nil {
		exp.SaveErr = err
		s.log.WithError(err).WithField("id", id).Warn("library update failed, pdf still generated")
		return exp, nil
	}
	exp.Record = rec
	return exp, nil
}

// Reopen appends the pages of an existing PDF. Pages holding one embedded
// image keep it; other pages are rasterised.
func (s *Session) Reopen(pdf []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	extracted, err := pdfwriter.ExtractPages(pdf)
	if err != nil {
		return 0, fmt.Errorf("failed to reopen pdf: %w", err)
	}
	for i, p := range extracted {
		if _, err := s.AddDecoded(p.Image); err != nil {
			return i, err
		}
	}
	s.log.WithField("pages", len(extracted)).Info("pdf reopened")
	return len(extracted), nil
}
