package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for dagflow metrics.
const MeterName = "dagflow"

// MetricsRecorder records dagflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records one computation of a seed or step.
	RecordNodeExecution(ctx context.Context, node, kind string, duration time.Duration, err error)

	// RecordResolve records a top-level resolve call.
	RecordResolve(ctx context.Context, node string, success bool, duration time.Duration)

	// RecordCacheLookup records a workspace lookup outcome.
	RecordCacheLookup(ctx context.Context, node string, hit bool)

	// RecordJoin records a caller sharing an in-flight computation.
	RecordJoin(ctx context.Context, node string)
}

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	resolves       metric.Int64Counter
	resolveLatency metric.Float64Histogram
	cacheLookups   metric.Int64Counter
	joins          metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(MeterName)
	m := &otelMetrics{}
	var err error

	if m.nodeExecutions, err = meter.Int64Counter("dagflow.node.executions",
		metric.WithDescription("Number of seed and step computations"),
	); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("dagflow.node.latency_ms",
		metric.WithDescription("Node computation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("dagflow.node.errors",
		metric.WithDescription("Number of failed node computations"),
	); err != nil {
		return nil, err
	}
	if m.resolves, err = meter.Int64Counter("dagflow.resolve.count",
		metric.WithDescription("Number of top-level resolve calls"),
	); err != nil {
		return nil, err
	}
	if m.resolveLatency, err = meter.Float64Histogram("dagflow.resolve.latency_ms",
		metric.WithDescription("Top-level resolve latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = meter.Int64Counter("dagflow.workspace.lookups",
		metric.WithDescription("Workspace lookups by outcome"),
	); err != nil {
		return nil, err
	}
	if m.joins, err = meter.Int64Counter("dagflow.singleflight.joins",
		metric.WithDescription("Callers that shared an in-flight computation"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. If instrument creation fails it logs a warning and returns
// a no-op recorder.
//
// Configure the provider before the first call:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, node, kind string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("kind", kind),
	)
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordResolve(ctx context.Context, node string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("node", node),
		attribute.Bool("success", success),
	)
	m.resolves.Add(ctx, 1, attrs)
	m.resolveLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordCacheLookup(ctx context.Context, node string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.Bool("hit", hit),
	))
}

func (m *otelMetrics) RecordJoin(ctx context.Context, node string) {
	m.joins.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}
