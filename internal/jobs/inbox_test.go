package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDocumentRunner is a mock implementation of DocumentRunner
type MockDocumentRunner struct {
	mock.Mock
}

func (m *MockDocumentRunner) Run(ctx context.Context, path, source string) (*service.DocumentResult, error) {
	args := m.Called(ctx, path, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentResult), args.Error(1)
}

func newInbox(t *testing.T, runner DocumentRunner, files ...string) (string, *InboxProcessor) {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("%PDF"), 0o644))
	}
	p, err := NewInboxProcessor(dir, runner)
	require.NoError(t, err)
	return dir, p
}

func result(source string) *service.DocumentResult {
	return &service.DocumentResult{
		Source: source,
		Report: domain.WellReport{
			Header:  map[string]any{"well_name": "A-1"},
			Specs:   domain.EmptySpecs(),
			Geology: domain.EmptyGeology(),
		},
		Summary: &service.RunSummary{Source: source, Chunks: 3, ExtractorFailures: []string{}},
	}
}

func TestInboxProcessor_Empty(t *testing.T) {
	runner := new(MockDocumentRunner)
	_, p := newInbox(t, runner, "notes.txt")

	require.NoError(t, p.ProcessJobs(context.Background()))
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestInboxProcessor_Success(t *testing.T) {
	runner := new(MockDocumentRunner)
	dir, p := newInbox(t, runner, "a1.pdf")

	runner.On("Run", mock.Anything, filepath.Join(dir, "a1.pdf"), "a1.pdf").Return(result("a1.pdf"), nil)

	require.NoError(t, p.ProcessJobs(context.Background()))

	assert.NoFileExists(t, filepath.Join(dir, "a1.pdf"))
	assert.FileExists(t, filepath.Join(dir, DoneDir, "a1.pdf"))

	body, err := os.ReadFile(filepath.Join(dir, DoneDir, "a1.report.json"))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "a1.pdf", got["source"])
	assert.Equal(t, map[string]any{"well_name": "A-1"}, got["report"].(map[string]any)["header"])
	runner.AssertExpectations(t)
}

func TestInboxProcessor_RetriesThenFails(t *testing.T) {
	runner := new(MockDocumentRunner)
	dir, p := newInbox(t, runner, "bad.pdf")
	ctx := context.Background()

	runner.On("Run", mock.Anything, filepath.Join(dir, "bad.pdf"), "bad.pdf").Return(nil, errors.New("corrupt xref"))

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, p.ProcessJobs(ctx))
		assert.FileExists(t, filepath.Join(dir, "bad.pdf"), "attempt %d", i)
	}

	require.NoError(t, p.ProcessJobs(ctx))
	assert.NoFileExists(t, filepath.Join(dir, "bad.pdf"))
	assert.FileExists(t, filepath.Join(dir, FailedDir, "bad.pdf"))

	msg, err := os.ReadFile(filepath.Join(dir, FailedDir, "bad.error.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(msg), "corrupt xref")
	runner.AssertNumberOfCalls(t, "Run", MaxRetries)
}

func TestInboxProcessor_MultipleFilesInNameOrder(t *testing.T) {
	runner := new(MockDocumentRunner)
	dir, p := newInbox(t, runner, "b.pdf", "a.PDF")

	var order []string
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.String(2)) }).
		Return(result("x"), nil)

	require.NoError(t, p.ProcessJobs(context.Background()))

	assert.Equal(t, []string{"a.PDF", "b.pdf"}, order)
	assert.FileExists(t, filepath.Join(dir, DoneDir, "a.report.json"))
	assert.FileExists(t, filepath.Join(dir, DoneDir, "b.report.json"))
}

func TestInboxProcessor_CancelledContext(t *testing.T) {
	runner := new(MockDocumentRunner)
	_, p := newInbox(t, runner, "a1.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ProcessJobs(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "a1.report.json", reportName("a1.pdf"))
	assert.Equal(t, "well.v2.report.json", reportName("well.v2.PDF"))
}
