// Package pdf reads well report pages and their tables with tabula.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"
)

// Document is an open PDF. It yields pages in document order and detects the
// tables of a page on demand.
type Document struct {
	path     string
	r        *reader.Reader
	detector *tables.GeometricDetector
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[int][]text.TextFragment
}

// Open opens the PDF at path.
func Open(path string, logger *slog.Logger) (*Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{
		path:     path,
		r:        r,
		detector: tables.NewGeometricDetector(),
		logger:   logger,
		cache:    make(map[int][]text.TextFragment),
	}, nil
}

// Source is the file name used as the chunk source.
func (d *Document) Source() string {
	return filepath.Base(d.path)
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.r.Close()
}

// Pages returns every page with its raw text in document order. A page whose
// text cannot be read is returned empty and logged; it never aborts the document.
func (d *Document) Pages(ctx context.Context) ([]domain.Page, error) {
	count, err := d.r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}

	pages := make([]domain.Page, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		number := i + 1
		frags, err := d.fragments(number)
		if err != nil {
			d.logger.Warn("page text extraction failed",
				"source", d.Source(), "page", number, "error", domain.Wrap(domain.ErrIngestionFailure, err))
			pages = append(pages, domain.Page{Number: number})
			continue
		}
		pages = append(pages, domain.Page{Number: number, Text: joinLines(GroupLines(frags))})
	}
	return pages, nil
}

// Detect returns the positioned lines and table regions of page.
func (d *Document) Detect(ctx context.Context, page domain.Page) (*domain.PageLayout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frags, err := d.fragments(page.Number)
	if err != nil {
		return nil, err
	}

	width, height := d.pageSize(page.Number)
	found, err := d.detector.Detect(modelPage(page.Number, width, height, frags))
	if err != nil {
		return nil, fmt.Errorf("detect tables on page %d: %w", page.Number, err)
	}

	return &domain.PageLayout{
		Lines:  GroupLines(frags),
		Tables: TableRegions(found),
	}, nil
}

func (d *Document) fragments(number int) ([]text.TextFragment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frags, ok := d.cache[number]; ok {
		return frags, nil
	}
	p, err := d.r.GetPage(number - 1)
	if err != nil {
		return nil, domain.Wrap(domain.ErrPageNotFound, err)
	}
	frags, err := d.r.ExtractTextFragments(p)
	if err != nil {
		return nil, fmt.Errorf("extract text on page %d: %w", number, err)
	}
	d.cache[number] = frags
	return frags, nil
}

func (d *Document) pageSize(number int) (float64, float64) {
	p, err := d.r.GetPage(number - 1)
	if err != nil {
		return 0, 0
	}
	w, err := p.Width()
	if err != nil {
		return 0, 0
	}
	h, err := p.Height()
	if err != nil {
		return w, 0
	}
	return w, h
}

func joinLines(lines []domain.TextLine) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}
