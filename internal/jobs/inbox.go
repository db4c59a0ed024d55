package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
)

const (
	// MaxRetries is the number of attempts before a document is moved to failed/
	MaxRetries = 3

	DoneDir   = "done"
	FailedDir = "failed"
)

// DocumentRunner runs one file through the extraction pipeline.
type DocumentRunner interface {
	Run(ctx context.Context, path, source string) (*service.DocumentResult, error)
}

// InboxProcessor picks up PDFs dropped into a directory. Processed files move
// to done/ next to their report; files that keep failing move to failed/.
type InboxProcessor struct {
	dir      string
	runner   DocumentRunner
	attempts map[string]int
}

// NewInboxProcessor creates the processor and its done/ and failed/ directories.
func NewInboxProcessor(dir string, runner DocumentRunner) (*InboxProcessor, error) {
	for _, sub := range []string{"", DoneDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}
	return &InboxProcessor{dir: dir, runner: runner, attempts: make(map[string]int)}, nil
}

// ProcessJobs implements the JobProcessor interface
func (p *InboxProcessor) ProcessJobs(ctx context.Context) error {
	files, err := p.pending()
	if err != nil {
		return fmt.Errorf("failed to list inbox: %w", err)
	}

	if len(files) == 0 {
		return nil
	}

	log.Printf("Processing %d pending documents", len(files))

	for _, name := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.processFile(ctx, name); err != nil {
			log.Printf("Error processing %s: %v", name, err)
		}
	}

	return nil
}

func (p *InboxProcessor) pending() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func (p *InboxProcessor) processFile(ctx context.Context, name string) error {
	ctx, span := telemetry.StartTransaction(ctx, "inbox "+name, "inbox.process")
	defer span.End()

	path := filepath.Join(p.dir, name)
	telemetry.AddBreadcrumb(ctx, "inbox", "processing "+name)

	result, err := p.runner.Run(ctx, path, name)
	if err != nil {
		span.SetError(err)
		return p.handleFailure(ctx, name, err)
	}

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return p.handleFailure(ctx, name, fmt.Errorf("encode report: %w", err))
	}

	reportPath := filepath.Join(p.dir, DoneDir, reportName(name))
	if err := os.WriteFile(reportPath, body, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(path, filepath.Join(p.dir, DoneDir, name)); err != nil {
		return fmt.Errorf("failed to move processed document: %w", err)
	}

	delete(p.attempts, name)
	log.Printf("Document %s processed (%d chunks, extractor failures: %v)",
		name, result.Summary.Chunks, result.Summary.ExtractorFailures)
	return nil
}

// handleFailure counts the attempt and moves the file to failed/ once retries are exhausted.
func (p *InboxProcessor) handleFailure(ctx context.Context, name string, runErr error) error {
	p.attempts[name]++
	attempt := p.attempts[name]
	log.Printf("Document %s failed: %v", name, runErr)

	if attempt < MaxRetries {
		log.Printf("Document %s will be retried (attempt %d/%d)", name, attempt, MaxRetries)
		return nil
	}

	log.Printf("Document %s exceeded max retries (%d), moving to %s", name, MaxRetries, FailedDir)
	telemetry.CaptureMessage(ctx, fmt.Sprintf("inbox document %s failed after %d attempts: %v", name, MaxRetries, runErr))
	delete(p.attempts, name)

	errPath := filepath.Join(p.dir, FailedDir, strings.TrimSuffix(name, filepath.Ext(name))+".error.txt")
	if err := os.WriteFile(errPath, []byte(runErr.Error()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write error file: %w", err)
	}
	if err := os.Rename(filepath.Join(p.dir, name), filepath.Join(p.dir, FailedDir, name)); err != nil {
		return fmt.Errorf("failed to move failed document: %w", err)
	}
	return nil
}

func reportName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".report.json"
}
