package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
)

// headingPattern matches numbered section headings such as "4.0 Geology" or "5. Casing".
var headingPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*\.?)\s+([A-Z][a-zA-Z\s]+)`)

// PageTableDetector returns positioned text and table regions for one page.
type PageTableDetector interface {
	Detect(ctx context.Context, page domain.Page) (*domain.PageLayout, error)
}

// ChunkConfig controls page chunking.
type ChunkConfig struct {
	// DefaultSection labels pages seen before the first heading.
	DefaultSection string
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		DefaultSection: domain.DefaultSection,
	}
}

// PageFailure records a page whose table detection failed and fell back to prose.
type PageFailure struct {
	Page int
	Err  error
}

// ChunkReport is the output of one chunking run.
type ChunkReport struct {
	Chunks   []domain.Chunk
	Failures []PageFailure
}

// FailedPages lists the pages that fell back to raw text.
func (r *ChunkReport) FailedPages() []int {
	pages := make([]int, 0, len(r.Failures))
	for _, f := range r.Failures {
		pages = append(pages, f.Page)
	}
	return pages
}

// PageChunker turns an ordered page sequence into one section-tagged chunk per page.
type PageChunker struct {
	detector PageTableDetector
	cfg      ChunkConfig
	logger   *slog.Logger
}

// NewPageChunker creates a PageChunker. A nil logger uses slog.Default().
func NewPageChunker(detector PageTableDetector, cfg ChunkConfig, logger *slog.Logger) *PageChunker {
	if cfg.DefaultSection == "" {
		cfg.DefaultSection = domain.DefaultSection
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageChunker{detector: detector, cfg: cfg, logger: logger}
}

// Chunk processes pages strictly in order, carrying the active section from page
// to page. Detector failures degrade that page to prose-only text; only context
// cancellation aborts the run.
func (c *PageChunker) Chunk(ctx context.Context, source string, pages []domain.Page) (*ChunkReport, error) {
	report := &ChunkReport{Chunks: make([]domain.Chunk, 0, len(pages))}
	active := c.cfg.DefaultSection

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		number := page.Number
		if number <= 0 {
			number = i + 1
		}

		prose, tables, err := c.splitPage(ctx, page)
		if err != nil {
			failure := domain.Wrap(domain.ErrIngestionFailure, err)
			c.logger.Warn("table detection failed, using prose only",
				"source", source, "page", number, "error", err)
			telemetry.CaptureError(ctx, failure)
			report.Failures = append(report.Failures, PageFailure{Page: number, Err: failure})
		}

		if heading, ok := lastHeading(prose); ok {
			active = heading
		}

		report.Chunks = append(report.Chunks, domain.Chunk{
			Text: joinPageText(prose, tables),
			Metadata: domain.ChunkMetadata{
				Source:  source,
				Page:    number,
				Section: active,
			},
		})
	}

	return report, nil
}

// splitPage returns the page prose with table regions removed and the rendered
// table blocks. On detector failure it returns the raw page text and the error.
func (c *PageChunker) splitPage(ctx context.Context, page domain.Page) (string, []string, error) {
	if c.detector == nil {
		return page.Text, nil, nil
	}

	layout, err := c.detector.Detect(ctx, page)
	if err != nil {
		return page.Text, nil, err
	}
	if layout == nil {
		return page.Text, nil, nil
	}

	tables := make([]string, 0, len(layout.Tables))
	for _, t := range layout.Tables {
		if block := RenderTable(t.Rows); block != "" {
			tables = append(tables, block)
		}
	}

	return redactTables(layout.Lines, layout.Tables), tables, nil
}

// redactTables rebuilds prose from lines whose centre falls outside every table region.
func redactTables(lines []domain.TextLine, tables []domain.TableRegion) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if insideAny(line.BBox, tables) {
			continue
		}
		kept = append(kept, line.Text)
	}
	return strings.Join(kept, "\n")
}

func insideAny(b domain.BBox, tables []domain.TableRegion) bool {
	x, y := b.Center()
	for _, t := range tables {
		if t.BBox.Contains(x, y) {
			return true
		}
	}
	return false
}

// lastHeading returns the label of the last heading line in text.
func lastHeading(text string) (string, bool) {
	var label string
	found := false
	for _, line := range strings.Split(text, "\n") {
		m := headingPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		label = m[1] + " " + strings.TrimSpace(m[2])
		found = true
	}
	return label, found
}

func joinPageText(prose string, tables []string) string {
	prose = strings.TrimRight(prose, "\n")
	if len(tables) == 0 {
		return prose
	}
	return prose + "\n\n" + strings.Join(tables, "\n\n")
}
