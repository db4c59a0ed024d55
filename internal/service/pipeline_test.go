package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHeaderExtractor struct {
	mock.Mock
}

func (m *MockHeaderExtractor) ExtractHeader(ctx context.Context, text string) (map[string]any, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type MockSpecsExtractor struct {
	mock.Mock
}

func (m *MockSpecsExtractor) ExtractSpecs(ctx context.Context, tables string) (map[string]any, error) {
	args := m.Called(ctx, tables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type MockGeologyExtractor struct {
	mock.Mock
}

func (m *MockGeologyExtractor) ExtractGeology(ctx context.Context, text string) (map[string]any, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type panickingGeology struct{}

func (panickingGeology) ExtractGeology(context.Context, string) (map[string]any, error) {
	panic("index out of range")
}

func threePageDocument() ([]domain.Page, *MockTableDetector) {
	pages := []domain.Page{
		{Number: 1, Text: "Operator: X"},
		{Number: 2, Text: "4.0 Geology\nshale\ngas shows"},
		{Number: 3, Text: "5.0 Casing\n13 3/8 1500 54.5"},
	}
	detector := new(MockTableDetector)
	detector.On("Detect", mock.Anything, pages[0]).Return(&domain.PageLayout{
		Lines: []domain.TextLine{{Text: "Operator: X"}},
	}, nil)
	detector.On("Detect", mock.Anything, pages[1]).Return(&domain.PageLayout{
		Lines: []domain.TextLine{{Text: "4.0 Geology"}, {Text: "shale"}, {Text: "gas shows"}},
	}, nil)
	detector.On("Detect", mock.Anything, pages[2]).Return(&domain.PageLayout{
		Lines: []domain.TextLine{
			{Text: "5.0 Casing", BBox: domain.BBox{X: 0, Y: 0, Width: 50, Height: 10}},
			{Text: "13 3/8 1500 54.5", BBox: domain.BBox{X: 0, Y: 50, Width: 100, Height: 10}},
		},
		Tables: []domain.TableRegion{{
			BBox: domain.BBox{X: 0, Y: 40, Width: 200, Height: 40},
			Rows: [][]string{{"13 3/8", "1500", "54.5"}},
		}},
	}, nil)
	return pages, detector
}

func TestPipeline_Process(t *testing.T) {
	ctx := context.Background()
	pages, detector := threePageDocument()
	header := new(MockHeaderExtractor)
	specs := new(MockSpecsExtractor)
	geology := new(MockGeologyExtractor)

	header.On("ExtractHeader", mock.Anything, "Operator: X").Return(map[string]any{"operator": "X"}, nil)
	specs.On("ExtractSpecs", mock.Anything, "| 13 3/8 | 1500 | 54.5 |\n| --- | --- | --- |").
		Return(map[string]any{"casing": []any{}}, nil)
	geology.On("ExtractGeology", mock.Anything, "4.0 Geology\nshale\ngas shows").
		Return(map[string]any{"issues": []any{}, "gas_peak": nil}, nil)

	s := memory.New("")
	p := NewPipeline(s, Extractors{Header: header, Specs: specs, Geology: geology}, PipelineConfig{}, nil)

	report, summary, err := p.Process(ctx, "well.pdf", pages, detector)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"operator": "X"}, report.Header)
	assert.Equal(t, map[string]any{"casing": []any{}}, report.Specs)
	assert.Equal(t, 3, summary.Chunks)
	assert.Equal(t, OriginIndex, summary.HeaderOrigin)
	assert.Equal(t, 1, summary.GeologyChunks)
	assert.Equal(t, []int{3}, summary.SpecsPages)
	assert.Equal(t, 1, summary.SpecsTables)
	assert.Empty(t, summary.ExtractorFailures)
	assert.Empty(t, summary.FailedPages)
	assert.Empty(t, summary.SpecsFailedPages)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	header.AssertExpectations(t)
	specs.AssertExpectations(t)
	geology.AssertExpectations(t)
}

func TestPipeline_SpecsDetectionFailureIsRecorded(t *testing.T) {
	pages := []domain.Page{
		{Number: 1, Text: "Operator: X"},
		{Number: 2, Text: "5.0 Casing\n13 3/8 1500"},
	}
	detector := new(MockTableDetector)
	detector.On("Detect", mock.Anything, pages[0]).Return(&domain.PageLayout{
		Lines: []domain.TextLine{{Text: "Operator: X"}},
	}, nil)
	detector.On("Detect", mock.Anything, pages[1]).Return(nil, errors.New("broken content stream"))

	p := NewPipeline(memory.New(""), Extractors{}, PipelineConfig{}, nil)
	_, summary, err := p.Process(context.Background(), "well.pdf", pages, detector)

	require.NoError(t, err)
	assert.Equal(t, []int{2}, summary.FailedPages)
	assert.Equal(t, []int{2}, summary.SpecsFailedPages)
	assert.Empty(t, summary.SpecsPages)
	assert.Equal(t, 0, summary.SpecsTables)
}

func TestPipeline_SpanTagsCarryStore(t *testing.T) {
	p := NewPipeline(memory.New("wells"), Extractors{}, PipelineConfig{StoreKind: "memory", Collection: "wells"}, nil)

	tags := p.spanTags("A-1.pdf")

	assert.Equal(t, "A-1.pdf", tags.Source)
	assert.Equal(t, "memory", tags.Store)
	assert.Equal(t, "wells", tags.Collection)
}

func TestPipeline_ExtractorFailuresDegradeSections(t *testing.T) {
	pages, detector := threePageDocument()
	header := new(MockHeaderExtractor)
	specs := new(MockSpecsExtractor)

	header.On("ExtractHeader", mock.Anything, mock.Anything).Return(nil, errors.New("model refused"))
	specs.On("ExtractSpecs", mock.Anything, mock.Anything).Return(map[string]any{"mud": []any{}}, nil)

	p := NewPipeline(memory.New(""), Extractors{Header: header, Specs: specs, Geology: panickingGeology{}}, PipelineConfig{}, nil)

	report, summary, err := p.Process(context.Background(), "well.pdf", pages, detector)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, report.Header)
	assert.Equal(t, map[string]any{"mud": []any{}}, report.Specs)
	assert.Equal(t, domain.EmptyGeology(), report.Geology)
	assert.Equal(t, []string{"header", "geology"}, summary.ExtractorFailures)
}

func TestPipeline_StoreUnavailableStillCompletes(t *testing.T) {
	pages, detector := threePageDocument()
	s := new(MockChunkStore)
	s.On("Insert", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))
	s.On("QueryByFilter", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	header := new(MockHeaderExtractor)
	header.On("ExtractHeader", mock.Anything, "Operator: X").Return(map[string]any{"operator": "X"}, nil)
	geology := new(MockGeologyExtractor)
	geology.On("ExtractGeology", mock.Anything, "").Return(map[string]any{"issues": []any{}, "gas_peak": nil}, nil)

	p := NewPipeline(s, Extractors{Header: header, Geology: geology}, PipelineConfig{}, nil)

	report, summary, err := p.Process(context.Background(), "well.pdf", pages, detector)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"operator": "X"}, report.Header)
	assert.Equal(t, OriginSequence, summary.HeaderOrigin)
	assert.Contains(t, summary.StoreError, "STORE_UNAVAILABLE")
	assert.Equal(t, map[string]any{}, report.Specs)
	geology.AssertExpectations(t)
}

func TestPipeline_ProcessNoPages(t *testing.T) {
	p := NewPipeline(memory.New(""), Extractors{}, PipelineConfig{}, nil)

	_, _, err := p.Process(context.Background(), "empty.pdf", nil, nil)

	assert.ErrorIs(t, err, domain.ErrNoPages)
}

func TestPipeline_NoExtractorsYieldsEmptyReport(t *testing.T) {
	p := NewPipeline(memory.New(""), Extractors{}, PipelineConfig{}, nil)

	report, _, err := p.Process(context.Background(), "r.pdf", []domain.Page{{Number: 1, Text: "x"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, Merge(nil, nil, nil), *report)
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()
	s := memory.New("")
	p := NewPipeline(s, Extractors{}, PipelineConfig{}, nil)

	res, err := p.Ingest(ctx, "r.pdf", []domain.Page{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}}, nil)

	require.NoError(t, err)
	assert.Len(t, res.IDs, 2)
	assert.Len(t, res.Report.Chunks, 2)
}

func TestPipeline_IngestValidation(t *testing.T) {
	p := NewPipeline(memory.New(""), Extractors{}, PipelineConfig{}, nil)

	_, err := p.Ingest(context.Background(), "", []domain.Page{{Number: 1}}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingSource)

	_, err = p.Ingest(context.Background(), "r.pdf", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoPages)
}

func TestPipeline_IngestStoreFailure(t *testing.T) {
	s := new(MockChunkStore)
	s.On("Insert", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	p := NewPipeline(s, Extractors{}, PipelineConfig{}, nil)

	res, err := p.Ingest(context.Background(), "r.pdf", []domain.Page{{Number: 1, Text: "a"}}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, res.Report.Chunks, 1)
}
