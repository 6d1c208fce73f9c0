package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Metrics returns the recorder a resolver uses: the OTel recorder when
// enabled, NoopMetrics otherwise.
func Metrics(enabled bool) MetricsRecorder {
	if enabled {
		return NewMetricsRecorder()
	}
	return NoopMetrics{}
}

// Spans returns the span manager a resolver uses: the OTel manager when
// enabled, NoopSpanManager otherwise.
func Spans(enabled bool) SpanManager {
	if enabled {
		return NewSpanManager()
	}
	return NoopSpanManager{}
}

// NoopMetrics discards every resolve, computation, lookup and join.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordNodeExecution(context.Context, string, string, time.Duration, error) {}
func (NoopMetrics) RecordResolve(context.Context, string, bool, time.Duration) {}
func (NoopMetrics) RecordCacheLookup(context.Context, string, bool) {}
func (NoopMetrics) RecordJoin(context.Context, string) {}

// NoopSpanManager starts no spans of its own. It hands back whatever span
// the caller's context already carries, so step functions still see the
// caller's trace when dagflow tracing is off.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

func (NoopSpanManager) StartResolveSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (NoopSpanManager) StartNodeSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

// EndSpanWithError leaves the span alone; it belongs to the caller.
func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
