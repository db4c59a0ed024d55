package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
)

// PageDocument is an open source document: its pages plus table detection.
type PageDocument interface {
	PageTableDetector
	Source() string
	Pages(ctx context.Context) ([]domain.Page, error)
	Close() error
}

// DocumentOpener opens the document stored at path.
type DocumentOpener func(path string) (PageDocument, error)

// Archiver keeps a copy of each processed document and its report.
type Archiver interface {
	Store(ctx context.Context, source string, document []byte, report domain.WellReport, summary any) (string, error)
}

// DocumentResult is the outcome of running one file through the pipeline.
type DocumentResult struct {
	Source  string            `json:"source"`
	Report  domain.WellReport `json:"report"`
	Summary *RunSummary       `json:"summary"`
	Digest  string            `json:"digest,omitempty"`
}

// DocumentRunner runs files from disk through a Pipeline.
type DocumentRunner struct {
	pipeline *Pipeline
	open     DocumentOpener
	archive  Archiver
	logger   *slog.Logger
}

// NewDocumentRunner creates a runner. archive may be nil.
func NewDocumentRunner(pipeline *Pipeline, open DocumentOpener, archive Archiver, logger *slog.Logger) *DocumentRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRunner{pipeline: pipeline, open: open, archive: archive, logger: logger}
}

// Run processes the file at path. source names the document in chunk metadata;
// when empty the file name is used. Archive failures are logged and do not
// fail the run.
func (r *DocumentRunner) Run(ctx context.Context, path, source string) (*DocumentResult, error) {
	doc, source, pages, err := r.load(ctx, path, source)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	report, summary, err := r.pipeline.Process(ctx, source, pages, doc)
	if err != nil {
		return nil, err
	}

	result := &DocumentResult{Source: source, Report: *report, Summary: summary}
	if r.archive != nil {
		result.Digest = r.archiveFile(ctx, path, source, result)
	}
	return result, nil
}

// Ingest chunks and stores the file at path without extracting fields.
func (r *DocumentRunner) Ingest(ctx context.Context, path, source string) (*IngestResult, error) {
	doc, source, pages, err := r.load(ctx, path, source)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return r.pipeline.Ingest(ctx, source, pages, doc)
}

func (r *DocumentRunner) load(ctx context.Context, path, source string) (PageDocument, string, []domain.Page, error) {
	doc, err := r.open(path)
	if err != nil {
		return nil, "", nil, domain.Wrap(domain.ErrIngestionFailure, err)
	}
	if source == "" {
		source = doc.Source()
	}

	pages, err := doc.Pages(ctx)
	if err != nil {
		doc.Close()
		return nil, "", nil, domain.Wrap(domain.ErrIngestionFailure, fmt.Errorf("read pages of %s: %w", source, err))
	}
	return doc, source, pages, nil
}

func (r *DocumentRunner) archiveFile(ctx context.Context, path, source string, result *DocumentResult) string {
	data, err := os.ReadFile(path)
	if err == nil {
		var digest string
		digest, err = r.archive.Store(ctx, source, data, result.Report, result.Summary)
		if err == nil {
			return digest
		}
	}
	r.logger.Warn("archiving document failed", "source", source, "error", err)
	telemetry.CaptureError(ctx, err)
	return ""
}
