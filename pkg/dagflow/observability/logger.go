// Package observability provides logging, metrics, and tracing for dagflow.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Metrics and tracing are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns a logger carrying the workflow type, run and node.
func EnrichLogger(logger *slog.Logger, workflow, workflowID, node string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("workflow", workflow),
		slog.String("workflow_id", workflowID),
		slog.String("node", node),
	)
}

// LogResolveStart logs a top-level resolve request.
func LogResolveStart(logger *slog.Logger, workflowID, node string) {
	if logger == nil {
		return
	}
	logger.Debug("resolve starting",
		slog.String("workflow_id", workflowID),
		slog.String("node", node),
	)
}

// LogResolveComplete logs a successful top-level resolve.
func LogResolveComplete(logger *slog.Logger, workflowID, node string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("resolve completed",
		slog.String("workflow_id", workflowID),
		slog.String("node", node),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogResolveError logs a failed top-level resolve.
func LogResolveError(logger *slog.Logger, workflowID, node string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("resolve failed",
		slog.String("workflow_id", workflowID),
		slog.String("node", node),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeStart logs the start of a seed or step computation.
func LogNodeStart(logger *slog.Logger, node, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("node computing",
		slog.String("node", node),
		slog.String("kind", kind),
	)
}

// LogNodeComplete logs a computed and committed node.
func LogNodeComplete(logger *slog.Logger, node string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node", node),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs a failed computation.
func LogNodeError(logger *slog.Logger, node string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}

// LogCacheHit logs a value served from the workspace.
func LogCacheHit(logger *slog.Logger, node string) {
	if logger == nil {
		return
	}
	logger.Debug("workspace hit",
		slog.String("node", node),
	)
}

// LogJoin logs a caller attaching to a computation already in flight.
func LogJoin(logger *slog.Logger, node string) {
	if logger == nil {
		return
	}
	logger.Debug("joined in-flight computation",
		slog.String("node", node),
	)
}

// LogWorkspaceError logs a workspace failure that did not fail the node.
func LogWorkspaceError(logger *slog.Logger, node, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("workspace operation failed",
		slog.String("node", node),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation returns a function reporting milliseconds elapsed since the call.
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
