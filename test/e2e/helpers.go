//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/wellrag/internal/api/handlers"
	"github.com/cloo-solutions/wellrag/internal/api/middleware"
	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/export"
	"github.com/cloo-solutions/wellrag/internal/extract"
	"github.com/cloo-solutions/wellrag/internal/repository"
	"github.com/cloo-solutions/wellrag/internal/server"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/storage"
	"github.com/cloo-solutions/wellrag/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apiToken = "e2e-token"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	HTTPClient *http.Client
}

// SetupE2EEnv starts PostgreSQL and RustFS and serves the API against them.
// Uploaded files are plain text fixtures: pages are separated by form feeds.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "e2e-archive",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	chunks := repository.NewChunkRepository(pool, "e2e_reports", nil, nil)
	pipeline := service.NewPipeline(chunks, service.Extractors{
		Header:  extract.NewHeaderExtractor(),
		Specs:   extract.NewSpecsExtractor(),
		Geology: extract.NewGeologyExtractor(),
	}, service.PipelineConfig{
		Chunk:     service.DefaultChunkConfig(),
		Retrieval: service.DefaultRetrievalConfig(),
	}, nil)
	archive := storage.NewArchive(s3Client)
	runner := service.NewDocumentRunner(pipeline, openTextDocument, archive, nil)

	router := server.NewRouter(server.RouterConfig{
		TokenValidator:  middleware.StaticToken(apiToken),
		DocumentHandler: handlers.NewDocumentHandler(runner, archive, export.NewExporter(nil)),
		ChunkHandler:    handlers.NewChunkHandler(chunks, service.NewRetrievalOrchestrator(chunks, service.DefaultRetrievalConfig(), nil)),
		StoreKind:       "postgres",
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse is the decoded envelope of an API response.
type APIResponse struct {
	Status int
	Data   json.RawMessage
	Error  string
	Code   string
	Body   []byte
}

func (e *E2ETestEnv) do(req *http.Request) (*APIResponse, error) {
	req.Header.Set("Authorization", "Bearer "+apiToken)
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &APIResponse{Status: resp.StatusCode, Body: body}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(body) > 0 {
		var envelope struct {
			Data  json.RawMessage `json:"data"`
			Error string          `json:"error"`
			Code  string          `json:"code"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		out.Data, out.Error, out.Code = envelope.Data, envelope.Error, envelope.Code
	}
	return out, nil
}

// Post sends a JSON body.
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPost, e.Server.URL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// Get issues a GET request.
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodGet, e.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

// Delete issues a DELETE request.
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodDelete, e.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

// Upload posts content as the multipart "file" field.
func (e *E2ETestEnv) Upload(path, filename string, content []byte) (*APIResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPost, e.Server.URL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// textDocument serves a form-feed separated text file as pages. Lines that
// start with "|" form the page's single table.
type textDocument struct {
	pages []domain.Page
}

func openTextDocument(path string) (service.PageDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pages []domain.Page
	for i, text := range strings.Split(string(data), "\f") {
		pages = append(pages, domain.Page{Number: i + 1, Text: strings.TrimSpace(text)})
	}
	return &textDocument{pages: pages}, nil
}

func (d *textDocument) Source() string { return "fixture.txt" }

func (d *textDocument) Pages(context.Context) ([]domain.Page, error) { return d.pages, nil }

func (d *textDocument) Close() error { return nil }

func (d *textDocument) Detect(_ context.Context, page domain.Page) (*domain.PageLayout, error) {
	layout := &domain.PageLayout{}
	var table domain.TableRegion
	y := 0.0
	for _, line := range strings.Split(page.Text, "\n") {
		y += 20
		box := domain.BBox{X: 10, Y: y, Width: 490, Height: 12}
		if cells, ok := strings.CutPrefix(strings.TrimSpace(line), "|"); ok {
			var row []string
			for _, c := range strings.Split(strings.TrimSuffix(cells, "|"), "|") {
				row = append(row, strings.TrimSpace(c))
			}
			table.Rows = append(table.Rows, row)
			if len(table.Rows) == 1 {
				table.BBox = box
			}
			table.BBox.Height = box.Y + box.Height - table.BBox.Y
		}
		layout.Lines = append(layout.Lines, domain.TextLine{Text: line, BBox: box})
	}
	if len(table.Rows) > 0 {
		layout.Tables = append(layout.Tables, table)
	}
	return layout, nil
}
