package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WithoutDSN(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpan_TagsStoreAndSource(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "pipeline.process", Tags{
		Source:     "A-1.pdf",
		Store:      "sqlite",
		Collection: "well_reports",
	})
	defer span.End()

	require.NotNil(t, span.inner)
	assert.Equal(t, "pipeline.process", span.inner.Op)
	assert.Equal(t, "A-1.pdf", span.inner.Description)
	assert.Equal(t, "A-1.pdf", span.inner.Tags["document.source"])
	assert.Equal(t, "sqlite", span.inner.Tags["store.kind"])
	assert.Equal(t, "well_reports", span.inner.Tags["store.collection"])

	_, child := StartSpan(ctx, "extractor.header", Tags{Source: "A-1.pdf"})
	defer child.End()
	assert.Equal(t, span.inner.SpanID, child.inner.ParentSpanID)
	assert.NotContains(t, child.inner.Tags, "store.kind")
}

func TestSpan_SetDataAndError(t *testing.T) {
	_, span := StartSpan(context.Background(), "pipeline.ingest", Tags{})
	defer span.End()

	span.SetData("chunks", 12)
	span.SetError(errors.New("insert failed"))

	assert.Equal(t, 12, span.inner.Data["chunks"])
	assert.Equal(t, sentry.SpanStatusInternalError, span.inner.Status)
}

func TestSpan_ZeroValueIsSafe(t *testing.T) {
	var span Span

	assert.NotPanics(t, func() {
		span.SetData("chunks", 1)
		span.SetError(errors.New("boom"))
		span.End()
	})
}

func TestSampleRate(t *testing.T) {
	health := &sentry.Span{Name: "GET /health"}
	assert.Equal(t, 0.0, sampleRate(health, 0.5))

	route := &sentry.Span{Name: "POST /documents"}
	assert.Equal(t, 0.5, sampleRate(route, 0.5))

	child := &sentry.Span{Name: "extractor.header", ParentSpanID: sentry.SpanID{1}, Sampled: sentry.SampledTrue}
	assert.Equal(t, 1.0, sampleRate(child, 0.5))

	assert.Equal(t, 0.5, sampleRate(nil, 0.5))
}

func TestSetTag_WithoutRequestHubIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		SetTag(context.Background(), "document.source", "A-1.pdf")
	})
}
