package dagflow

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/randalmurphal/dagflow/pkg/dagflow/config"
	"github.com/randalmurphal/dagflow/pkg/dagflow/pool"
	"github.com/randalmurphal/dagflow/pkg/dagflow/workspace"
)

// Pool runs seed accessors and step functions. *pool.Pool satisfies it.
type Pool interface {
	Submit(ctx context.Context, task pool.Task) *pool.Future
}

// resolverConfig holds configuration for a Resolver.
type resolverConfig struct {
	logger                *slog.Logger
	metricsEnabled        bool
	tracingEnabled        bool
	pool                  Pool
	workspace             workspace.Workspace
	workspaceFailureFatal bool
}

// defaultResolverConfig returns the default resolver configuration.
func defaultResolverConfig() resolverConfig {
	return resolverConfig{
		logger: slog.Default(),
	}
}

// Option configures a Resolver.
type Option func(*resolverConfig)

// WithLogger sets the logger for resolve and node events.
// Default: slog.Default(). A nil logger disables logging.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := dagflow.NewResolver(dagflow.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *resolverConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics.
// Default: false
//
// Metrics recorded:
//   - dagflow.node.executions, dagflow.node.errors: computations and failures
//   - dagflow.node.latency_ms: computation time
//   - dagflow.resolve.count, dagflow.resolve.latency_ms: top-level resolves
//   - dagflow.workspace.lookups: workspace hits and misses
//   - dagflow.singleflight.joins: callers that shared a computation
//
// Configure the global meter provider before creating the resolver.
func WithMetrics(enabled bool) Option {
	return func(c *resolverConfig) {
		c.metricsEnabled = enabled
	}
}

// WithTracing enables OpenTelemetry spans.
// Default: false
//
// Spans created:
//   - dagflow.resolve: one per top-level Resolve call
//   - dagflow.node.<name>: one per computation
func WithTracing(enabled bool) Option {
	return func(c *resolverConfig) {
		c.tracingEnabled = enabled
	}
}

// WithPool sets the pool that runs node functions.
// Default: pool.New(runtime.GOMAXPROCS(0)).
func WithPool(p Pool) Option {
	return func(c *resolverConfig) {
		c.pool = p
	}
}

// WithWorkers is shorthand for WithPool(pool.New(n)). n <= 0 means unbounded.
func WithWorkers(n int) Option {
	return func(c *resolverConfig) {
		c.pool = pool.New(n)
	}
}

// WithWorkspace sets the value cache.
// Default: a new workspace.MemoryWorkspace.
func WithWorkspace(ws workspace.Workspace) Option {
	return func(c *resolverConfig) {
		c.workspace = ws
	}
}

// WithWorkspaceFailureFatal controls what happens when storing a computed
// value fails. When false (the default) the failure is logged and the value
// is still returned, uncached. When true the node fails with *WorkspaceError.
func WithWorkspaceFailureFatal(fatal bool) Option {
	return func(c *resolverConfig) {
		c.workspaceFailureFatal = fatal
	}
}

// OptionsFromConfig translates configuration into resolver options.
// Missing keys leave the defaults in place.
//
// Recognized keys:
//
//	workers                  int, pool size (<= 0 unbounded)
//	metrics                  bool
//	tracing                  bool
//	workspace_failure_fatal  bool
//	log_level                debug | info | warn | error (text handler on stderr)
//
// The workspace itself comes from workspace.Open.
func OptionsFromConfig(cfg config.Config) []Option {
	var opts []Option

	if cfg.Has("workers") {
		opts = append(opts, WithWorkers(cfg.Int("workers", runtime.GOMAXPROCS(0))))
	}
	if cfg.Has("metrics") {
		opts = append(opts, WithMetrics(cfg.Bool("metrics", false)))
	}
	if cfg.Has("tracing") {
		opts = append(opts, WithTracing(cfg.Bool("tracing", false)))
	}
	if cfg.Has("workspace_failure_fatal") {
		opts = append(opts, WithWorkspaceFailureFatal(cfg.Bool("workspace_failure_fatal", false)))
	}
	if cfg.Has("log_level") {
		level := cfg.Level("log_level", slog.LevelInfo)
		opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))))
	}

	return opts
}
