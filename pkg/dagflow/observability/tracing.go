package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for dagflow spans.
const TracerName = "dagflow"

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartResolveSpan starts the span covering a top-level resolve call.
	StartResolveSpan(ctx context.Context, workflow, workflowID, node string) (context.Context, trace.Span)

	// StartNodeSpan starts the span covering one computation.
	StartNodeSpan(ctx context.Context, node, kind string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx, if it is recording.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager using the global OTel tracer provider
// as configured at call time.
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer(TracerName)}
}

func (m *otelSpanManager) StartResolveSpan(ctx context.Context, workflow, workflowID, node string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "dagflow.resolve",
		trace.WithAttributes(
			attribute.String("workflow.name", workflow),
			attribute.String("workflow.id", workflowID),
			attribute.String("node.name", node),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartNodeSpan(ctx context.Context, node, kind string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "dagflow.node."+node,
		trace.WithAttributes(
			attribute.String("node.name", node),
			attribute.String("node.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
