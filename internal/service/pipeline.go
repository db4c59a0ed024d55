package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
)

// HeaderExtractor turns page-1 text into header fields.
type HeaderExtractor interface {
	ExtractHeader(ctx context.Context, text string) (map[string]any, error)
}

// SpecsExtractor turns markdown tables into casing and mud specs.
type SpecsExtractor interface {
	ExtractSpecs(ctx context.Context, tables string) (map[string]any, error)
}

// GeologyExtractor turns the geology block into issues and gas readings.
type GeologyExtractor interface {
	ExtractGeology(ctx context.Context, text string) (map[string]any, error)
}

// Extractors groups the three field extractors. Nil members yield empty sections.
type Extractors struct {
	Header  HeaderExtractor
	Specs   SpecsExtractor
	Geology GeologyExtractor
}

// PipelineConfig configures chunking and retrieval for a pipeline run.
// StoreKind and Collection only tag telemetry spans.
type PipelineConfig struct {
	Chunk      ChunkConfig
	Retrieval  RetrievalConfig
	StoreKind  string
	Collection string
}

// RunSummary reports what happened during one document run.
type RunSummary struct {
	Source            string   `json:"source"`
	Chunks            int      `json:"chunks"`
	FailedPages       []int    `json:"failed_pages"`
	StoreError        string   `json:"store_error,omitempty"`
	HeaderOrigin      string   `json:"header_origin"`
	GeologyChunks     int      `json:"geology_chunks"`
	SpecsPages        []int    `json:"specs_pages"`
	SpecsTables       int      `json:"specs_tables"`
	SpecsFailedPages  []int    `json:"specs_failed_pages"`
	ExtractorFailures []string `json:"extractor_failures"`
}

// IngestResult is the outcome of chunking and storing one document.
type IngestResult struct {
	Report *ChunkReport
	IDs    []string
}

// Pipeline runs chunk, insert, retrieve, extract and merge for one document.
type Pipeline struct {
	store      store.ChunkStore
	extractors Extractors
	cfg        PipelineConfig
	retrieval  *RetrievalOrchestrator
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline over a chunk store.
func NewPipeline(s store.ChunkStore, extractors Extractors, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:      s,
		extractors: extractors,
		cfg:        cfg,
		retrieval:  NewRetrievalOrchestrator(s, cfg.Retrieval, logger),
		logger:     logger,
	}
}

func (p *Pipeline) spanTags(source string) telemetry.Tags {
	return telemetry.Tags{Source: source, Store: p.cfg.StoreKind, Collection: p.cfg.Collection}
}

// Retrieval exposes the orchestrator used by the pipeline.
func (p *Pipeline) Retrieval() *RetrievalOrchestrator {
	return p.retrieval
}

// Ingest chunks the pages and writes them to the store. Unlike Process, a store
// failure is returned to the caller.
func (p *Pipeline) Ingest(ctx context.Context, source string, pages []domain.Page, detector PageTableDetector) (*IngestResult, error) {
	if source == "" {
		return nil, domain.ErrMissingSource
	}
	if len(pages) == 0 {
		return nil, domain.ErrNoPages
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.ingest", p.spanTags(source))
	defer span.End()

	report, err := NewPageChunker(detector, p.cfg.Chunk, p.logger).Chunk(ctx, source, pages)
	if err != nil {
		return nil, err
	}
	span.SetData("chunks", len(report.Chunks))

	ids, err := p.store.Insert(ctx, report.Chunks)
	if err != nil {
		span.SetError(err)
		return &IngestResult{Report: report}, fmt.Errorf("insert chunks: %w", err)
	}

	return &IngestResult{Report: report, IDs: ids}, nil
}

// Process turns one document into a WellReport. It fails only when there are
// no pages or the context is cancelled; store and extractor failures degrade
// the affected sections and are recorded in the summary.
func (p *Pipeline) Process(ctx context.Context, source string, pages []domain.Page, detector PageTableDetector) (*domain.WellReport, *RunSummary, error) {
	if len(pages) == 0 {
		return nil, nil, domain.ErrNoPages
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.process", p.spanTags(source))
	defer span.End()

	summary := &RunSummary{
		Source:            source,
		FailedPages:       []int{},
		SpecsPages:        []int{},
		SpecsFailedPages:  []int{},
		ExtractorFailures: []string{},
	}

	chunked, err := NewPageChunker(detector, p.cfg.Chunk, p.logger).Chunk(ctx, source, pages)
	if err != nil {
		return nil, nil, err
	}
	summary.Chunks = len(chunked.Chunks)
	summary.FailedPages = chunked.FailedPages()

	if _, err := p.store.Insert(ctx, chunked.Chunks); err != nil {
		err = storeFailure(err)
		summary.StoreError = err.Error()
		p.logger.Warn("chunk insert failed, continuing with ingested sequence", "source", source, "error", err)
		telemetry.CaptureError(ctx, err)
	}

	header := p.retrieval.Header(ctx, source, chunked.Chunks)
	geology := p.retrieval.Geology(ctx, source, chunked.Chunks)
	specs := p.retrieval.Specs(ctx, pages, detector)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	summary.HeaderOrigin = header.Origin
	summary.GeologyChunks = geology.Chunks
	summary.SpecsPages = append(summary.SpecsPages, specs.Pages...)
	summary.SpecsTables = len(specs.Tables)
	summary.SpecsFailedPages = append(summary.SpecsFailedPages, specs.FailedPages...)

	var headerOut, specsOut, geologyOut map[string]any
	if p.extractors.Header != nil {
		headerOut = p.runExtractor(ctx, "header", summary, func() (map[string]any, error) {
			return p.extractors.Header.ExtractHeader(ctx, header.Text)
		})
	}
	if p.extractors.Specs != nil {
		specsOut = p.runExtractor(ctx, "specs", summary, func() (map[string]any, error) {
			return p.extractors.Specs.ExtractSpecs(ctx, specs.Markdown())
		})
	}
	if p.extractors.Geology != nil {
		geologyOut = p.runExtractor(ctx, "geology", summary, func() (map[string]any, error) {
			return p.extractors.Geology.ExtractGeology(ctx, geology.Text)
		})
	}

	report := Merge(headerOut, specsOut, geologyOut)
	span.SetData("chunks", summary.Chunks)
	span.SetData("failed_pages", summary.FailedPages)
	span.SetData("extractor_failures", summary.ExtractorFailures)
	p.logger.Info("document processed",
		"source", source,
		"chunks", summary.Chunks,
		"failed_pages", len(summary.FailedPages),
		"header_origin", summary.HeaderOrigin,
		"extractor_failures", len(summary.ExtractorFailures))

	return &report, summary, nil
}

// runExtractor calls fn, converting errors and panics into an ExtractorFailure
// that is logged and recorded. A failed extractor contributes nil.
func (p *Pipeline) runExtractor(ctx context.Context, name string, summary *RunSummary, fn func() (map[string]any, error)) (out map[string]any) {
	_, span := telemetry.StartSpan(ctx, "extractor."+name, telemetry.Tags{Source: summary.Source})
	defer span.End()

	fail := func(cause error) {
		err := domain.Wrap(domain.ErrExtractorFailure, fmt.Errorf("%s: %w", name, cause))
		p.logger.Warn("extractor failed, using empty section", "extractor", name, "error", err)
		span.SetError(err)
		summary.ExtractorFailures = append(summary.ExtractorFailures, name)
		out = nil
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("extractor panic", "extractor", name, "stack", string(debug.Stack()))
			fail(fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := fn()
	if err != nil {
		fail(err)
		return nil
	}
	return res
}
