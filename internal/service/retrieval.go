package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
)

// Header text origins.
const (
	OriginIndex    = "index"
	OriginSequence = "sequence"
	OriginNone     = "none"
)

// RetrievalConfig holds the per-consumer retrieval recipe.
type RetrievalConfig struct {
	GeologySection string
	GeologyLimit   int
	SpecsKeywords  []string
}

// DefaultRetrievalConfig returns the recipe used by the well report pipeline.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		GeologySection: "Geology",
		GeologyLimit:   5,
		SpecsKeywords:  []string{"Casing", "Mud"},
	}
}

// HeaderResult is the text handed to the header extractor and where it came from.
type HeaderResult struct {
	Text   string
	Origin string
	Err    error
}

// GeologyResult is the concatenated geology block.
type GeologyResult struct {
	Text   string
	Chunks int
	Err    error
}

// SpecsResult holds the rendered tables of the keyword pages.
// FailedPages lists keyword pages whose table detection failed.
type SpecsResult struct {
	Pages       []int
	Tables      []string
	FailedPages []int
}

// Markdown joins the tables with a blank line.
func (r SpecsResult) Markdown() string {
	return strings.Join(r.Tables, "\n\n")
}

// RetrievalOrchestrator applies the header, geology and specs retrieval recipes.
type RetrievalOrchestrator struct {
	store  store.ChunkStore
	cfg    RetrievalConfig
	logger *slog.Logger
}

// NewRetrievalOrchestrator creates a RetrievalOrchestrator.
func NewRetrievalOrchestrator(s store.ChunkStore, cfg RetrievalConfig, logger *slog.Logger) *RetrievalOrchestrator {
	def := DefaultRetrievalConfig()
	if cfg.GeologySection == "" {
		cfg.GeologySection = def.GeologySection
	}
	if cfg.GeologyLimit <= 0 {
		cfg.GeologyLimit = def.GeologyLimit
	}
	if len(cfg.SpecsKeywords) == 0 {
		cfg.SpecsKeywords = def.SpecsKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalOrchestrator{store: s, cfg: cfg, logger: logger}
}

// Header fetches the page-1 chunk of source from the store. When the store has
// none, or fails, the first chunk of the ingested sequence is used instead and
// the origin says so.
func (o *RetrievalOrchestrator) Header(ctx context.Context, source string, ingested []domain.Chunk) HeaderResult {
	filter := domain.Filter{domain.MetaPage: 1}
	if source != "" {
		filter[domain.MetaSource] = source
	}

	texts, err := o.store.QueryByFilter(ctx, filter, 1)
	if err != nil {
		err = storeFailure(err)
		o.logger.Warn("header lookup failed, using ingested sequence", "source", source, "error", err)
		telemetry.CaptureError(ctx, err)
	}
	if err == nil && len(texts) > 0 {
		return HeaderResult{Text: texts[0], Origin: OriginIndex}
	}
	if len(ingested) > 0 {
		return HeaderResult{Text: ingested[0].Text, Origin: OriginSequence, Err: err}
	}
	return HeaderResult{Origin: OriginNone, Err: err}
}

// Geology concatenates up to GeologyLimit chunk texts tagged with the geology
// section. Stored labels carry their heading number ("4.0 Geology"), so every
// label in the ingested sequence whose title equals the configured section is
// queried, each with an exact filter. A store failure yields an empty block.
func (o *RetrievalOrchestrator) Geology(ctx context.Context, source string, ingested []domain.Chunk) GeologyResult {
	labels := SectionLabels(o.cfg.GeologySection, ingested)

	collected := make([]string, 0, o.cfg.GeologyLimit)
	for _, label := range labels {
		remaining := o.cfg.GeologyLimit - len(collected)
		if remaining <= 0 {
			break
		}
		filter := domain.Filter{domain.MetaSection: label}
		if source != "" {
			filter[domain.MetaSource] = source
		}
		texts, err := o.store.QueryByFilter(ctx, filter, remaining)
		if err != nil {
			err = storeFailure(err)
			o.logger.Warn("geology lookup failed", "source", source, "section", label, "error", err)
			telemetry.CaptureError(ctx, err)
			return GeologyResult{Err: err}
		}
		collected = append(collected, texts...)
	}

	return GeologyResult{Text: strings.Join(collected, "\n"), Chunks: len(collected)}
}

// Specs re-scans the original pages for the specs keywords and renders only the
// tables on matching pages. Stored chunks are not used because they no longer
// carry table structure.
func (o *RetrievalOrchestrator) Specs(ctx context.Context, pages []domain.Page, detector PageTableDetector) SpecsResult {
	var res SpecsResult
	if detector == nil {
		return res
	}

	for i, page := range pages {
		if !containsAny(page.Text, o.cfg.SpecsKeywords) {
			continue
		}
		number := page.Number
		if number <= 0 {
			number = i + 1
		}
		layout, err := detector.Detect(ctx, page)
		if err != nil {
			err = domain.Wrap(domain.ErrIngestionFailure, fmt.Errorf("detect tables on page %d: %w", number, err))
			o.logger.Warn("specs table detection failed", "page", number, "error", err)
			telemetry.CaptureError(ctx, err)
			res.FailedPages = append(res.FailedPages, number)
			continue
		}
		if layout == nil {
			continue
		}
		found := false
		for _, t := range layout.Tables {
			if block := RenderTable(t.Rows); block != "" {
				res.Tables = append(res.Tables, block)
				found = true
			}
		}
		if found {
			res.Pages = append(res.Pages, number)
		}
	}
	return res
}

// Search runs a relevance query. An empty query without a filter returns
// domain.ErrEmptyQuery unchanged so callers can reroute to a filter query.
func (o *RetrievalOrchestrator) Search(ctx context.Context, query string, limit int, filter domain.Filter) ([]string, error) {
	texts, err := o.store.QueryByRelevance(ctx, query, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("relevance query: %w", err)
	}
	return texts, nil
}

// SectionLabels returns section itself followed by every distinct label in
// chunks whose title, without its heading number, equals section.
func SectionLabels(section string, chunks []domain.Chunk) []string {
	labels := []string{section}
	seen := map[string]bool{section: true}
	for _, c := range chunks {
		label := c.Metadata.Section
		if seen[label] {
			continue
		}
		if m := headingPattern.FindStringSubmatch(label); m != nil && strings.TrimSpace(m[2]) == section {
			labels = append(labels, label)
			seen[label] = true
		}
	}
	return labels
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// storeFailure tags err as a store outage unless it already carries a domain code.
func storeFailure(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.Wrap(domain.ErrStoreUnavailable, err)
}
