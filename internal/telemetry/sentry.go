// Package telemetry reports pipeline spans and failures to Sentry. Every call
// is safe before Init and without a DSN; events are then simply dropped.
package telemetry

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "wellrag"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a flush function.
// With an empty DSN it does nothing.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			return sampleRate(ctx.Span, cfg.TracesSampleRate)
		}),
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// sampleRate drops health checks, keeps child spans with their parent and
// samples everything else at rate.
func sampleRate(span *sentry.Span, rate float64) float64 {
	if span == nil {
		return rate
	}
	if strings.HasSuffix(span.Name, " /health") {
		return 0
	}
	var emptySpanID sentry.SpanID
	if span.ParentSpanID != emptySpanID {
		if span.Sampled.Bool() {
			return 1
		}
		return 0
	}
	return rate
}

// Tags identify the document and chunk store a span works on.
type Tags struct {
	Source     string
	Store      string
	Collection string
}

func (t Tags) apply(span *sentry.Span) {
	if t.Source != "" {
		span.SetTag("document.source", t.Source)
	}
	if t.Store != "" {
		span.SetTag("store.kind", t.Store)
	}
	if t.Collection != "" {
		span.SetTag("store.collection", t.Collection)
	}
}

// Span wraps a sentry span. The zero value is usable and records nothing.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData attaches a measurement such as a chunk count to the span.
func (s *Span) SetData(key string, value any) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span as failed and captures err.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		CaptureError(context.Background(), err)
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan starts op as a child of the span in ctx, or as a new transaction
// named after op and the source document when ctx carries none.
func StartSpan(ctx context.Context, op string, tags Tags) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(op)
	} else {
		name := op
		if tags.Source != "" {
			name = op + " " + tags.Source
		}
		span = sentry.StartSpan(ctx, op, sentry.WithTransactionName(name))
	}
	span.Description = tags.Source
	tags.apply(span)
	return span.Context(), &Span{inner: span}
}

// StartTransaction starts a root span for work that has no caller span, such
// as one inbox document.
func StartTransaction(ctx context.Context, name, op string) (context.Context, *Span) {
	span := sentry.StartSpan(ctx, op, sentry.WithTransactionName(name), sentry.WithOpName(op))
	return span.Context(), &Span{inner: span}
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureError captures an error with the hub carried by ctx.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hubFrom(ctx).CaptureException(err)
}

// CaptureMessage captures a message with the hub carried by ctx.
func CaptureMessage(ctx context.Context, message string) {
	hubFrom(ctx).CaptureMessage(message)
}

// SetTag tags every later event of the request or job carried by ctx. Without
// a request hub on ctx it does nothing, so global scope is never polluted.
func SetTag(ctx context.Context, key, value string) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil && value != "" {
		hub.Scope().SetTag(key, value)
	}
}

// AddBreadcrumb records a step of the current request or job.
func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFrom(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}
