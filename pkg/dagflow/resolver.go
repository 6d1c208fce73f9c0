package dagflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/dagflow/pkg/dagflow/observability"
	"github.com/randalmurphal/dagflow/pkg/dagflow/pool"
	"github.com/randalmurphal/dagflow/pkg/dagflow/workspace"
)

// ErrInvalidateUnsupported indicates the workspace cannot delete values.
var ErrInvalidateUnsupported = errors.New("workspace does not support deletion")

// State is the lifecycle of one (workflow id, node) key.
type State int

const (
	// StateUnstarted means no value is stored and nothing is computing.
	StateUnstarted State = iota
	// StatePending means a computation is in flight.
	StatePending
	// StateDone means the value is in the workspace.
	StateDone
	// StateFailed means the last computation failed. The next resolve retries.
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StatePending:
		return "pending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// shardCount is the number of independent pending tables.
const shardCount = 64

// flightShard is one slice of the pending table. Its mutex guards only the
// status maps and is never held while a node computes.
type flightShard struct {
	group   singleflight.Group
	mu      sync.Mutex
	pending map[string]struct{}
	failed  map[string]struct{}
}

func (s *flightShard) start(key string) {
	s.mu.Lock()
	s.pending[key] = struct{}{}
	delete(s.failed, key)
	s.mu.Unlock()
}

func (s *flightShard) finish(key string, err error) {
	s.mu.Lock()
	delete(s.pending, key)
	if err != nil {
		s.failed[key] = struct{}{}
	}
	s.mu.Unlock()
}

func (s *flightShard) state(key string) (pending, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, pending = s.pending[key]
	_, failed = s.failed[key]
	return pending, failed
}

func (s *flightShard) clear(key string) {
	s.mu.Lock()
	delete(s.failed, key)
	s.mu.Unlock()
}

// Resolver computes node values on demand, at most once per
// (workflow id, node) at a time, caching results in a Workspace.
//
// The resolver only coordinates: seed accessors and step functions run on
// its Pool. A Resolver is safe for concurrent use and may serve any number
// of definitions and instances.
type Resolver struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	ws      workspace.Workspace
	pool    Pool
	fatalWS bool
	shards  [shardCount]*flightShard
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	cfg := defaultResolverConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.pool == nil {
		cfg.pool = pool.New(runtime.GOMAXPROCS(0))
	}
	if cfg.workspace == nil {
		cfg.workspace = workspace.NewMemoryWorkspace()
	}

	r := &Resolver{
		logger:  cfg.logger,
		metrics: observability.Metrics(cfg.metricsEnabled),
		spans:   observability.Spans(cfg.tracingEnabled),
		ws:      cfg.workspace,
		pool:    cfg.pool,
		fatalWS: cfg.workspaceFailureFatal,
	}
	for i := range r.shards {
		r.shards[i] = &flightShard{
			pending: make(map[string]struct{}),
			failed:  make(map[string]struct{}),
		}
	}
	return r
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// DefaultResolver returns the process-wide resolver used by instances
// created without WithResolver. It caches in memory.
func DefaultResolver() *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver
}

// Workspace returns the resolver's value cache.
func (r *Resolver) Workspace() workspace.Workspace {
	return r.ws
}

// flightKey identifies one (workflow id, node) pair. The id is length
// prefixed so no choice of id and node name can collide with another pair.
func flightKey(workflowID, node string) string {
	return strconv.Itoa(len(workflowID)) + ":" + workflowID + node
}

func (r *Resolver) shard(key string) *flightShard {
	return r.shards[xxhash.Sum64String(key)%shardCount]
}

func (r *Resolver) node(inst *Instance, name string) (*Node, error) {
	n, ok := inst.def.nodes[name]
	if !ok {
		return nil, &NodeError{Node: name, Op: "lookup", Err: ErrNodeNotFound}
	}
	return n, nil
}

// Resolve returns the value of node name for inst, computing it and any
// missing sources first.
//
// Concurrent calls for the same key share one computation and receive the
// identical value or error. If ctx ends first, this caller gets a
// *CancellationError; the computation continues for everyone else and its
// result is still cached.
//
// The dynamic type of the value can depend on where it came from. A fresh
// computation returns exactly what the node's function returned; a
// workspace hit returns what the workspace decodes, which for a serializing
// workspace such as workspace.SQLiteWorkspace is the JSON shape (an int
// stored as 10 comes back as float64(10)). Use the generic Resolve, As or
// ArgAs rather than a type assertion when the workspace serializes.
//
// Errors:
//   - *NodeError (ErrNodeNotFound): name is not in the definition
//   - *ComputationError: the node's own function failed or panicked
//   - *DependencyFailedError: a source failed, so the step never ran
//   - *WorkspaceError: storing failed and WithWorkspaceFailureFatal is set
//   - *CancellationError: ctx ended while waiting
func (r *Resolver) Resolve(ctx context.Context, inst *Instance, name string) (any, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	n, err := r.node(inst, name)
	if err != nil {
		return nil, err
	}

	logger := observability.EnrichLogger(r.logger, inst.def.name, inst.id, name)
	observability.LogResolveStart(logger, inst.id, name)
	ctx, span := r.spans.StartResolveSpan(ctx, inst.def.name, inst.id, name)
	start := time.Now()

	value, err := r.resolve(ctx, inst, n, logger)

	elapsed := time.Since(start)
	r.metrics.RecordResolve(ctx, name, err == nil, elapsed)
	r.spans.EndSpanWithError(span, err)
	durationMs := float64(elapsed.Microseconds()) / 1000
	if err != nil {
		observability.LogResolveError(logger, inst.id, name, err, durationMs)
		return nil, err
	}
	observability.LogResolveComplete(logger, inst.id, name, durationMs)
	return value, nil
}

// resolve serves n from the workspace or joins its computation.
func (r *Resolver) resolve(ctx context.Context, inst *Instance, n *Node, logger *slog.Logger) (any, error) {
	if v, ok := r.lookup(ctx, inst, n, logger); ok {
		return v, nil
	}

	key := flightKey(inst.id, n.name)
	sh := r.shard(key)
	detached := context.WithoutCancel(ctx)
	ch := sh.group.DoChan(key, func() (any, error) {
		return r.compute(detached, inst, n, key, sh, logger)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.metrics.RecordJoin(ctx, n.name)
			observability.LogJoin(logger, n.name)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, &CancellationError{Node: n.name, Cause: ctx.Err()}
	}
}

// lookup reads the workspace. Read failures are logged and count as a miss.
func (r *Resolver) lookup(ctx context.Context, inst *Instance, n *Node, logger *slog.Logger) (any, bool) {
	v, ok, err := r.ws.Get(ctx, inst.id, n.name)
	if err != nil {
		observability.LogWorkspaceError(logger, n.name, "get", err)
		ok = false
	}
	r.metrics.RecordCacheLookup(ctx, n.name, ok)
	if ok {
		observability.LogCacheHit(logger, n.name)
	}
	return v, ok
}

// compute runs inside the single flight for key. ctx is detached from the
// caller that started the flight.
func (r *Resolver) compute(ctx context.Context, inst *Instance, n *Node, key string, sh *flightShard, logger *slog.Logger) (any, error) {
	// A previous flight may have committed between our miss and joining.
	if v, ok := r.lookup(ctx, inst, n, logger); ok {
		return v, nil
	}

	sh.start(key)
	value, err := r.execute(ctx, inst, n, logger)
	if err == nil {
		err = r.commit(ctx, inst, n, value, logger)
	}
	sh.finish(key, err)

	if err != nil {
		return nil, err
	}
	return value, nil
}

// execute gathers inputs and runs the node's function on the pool.
func (r *Resolver) execute(ctx context.Context, inst *Instance, n *Node, logger *slog.Logger) (any, error) {
	var task pool.Task
	switch n.kind {
	case KindSeed:
		task = func(ctx context.Context) (any, error) {
			return n.seed(ctx, inst)
		}
	case KindStep:
		in, err := r.gather(ctx, inst, n)
		if err != nil {
			return nil, err
		}
		task = func(ctx context.Context) (any, error) {
			return n.step(ctx, in)
		}
	}

	observability.LogNodeStart(logger, n.name, string(n.kind))
	ctx, span := r.spans.StartNodeSpan(ctx, n.name, string(n.kind))
	start := time.Now()

	value, err := r.pool.Submit(ctx, task).Await(ctx)

	elapsed := time.Since(start)
	if err != nil {
		err = &ComputationError{Node: n.name, Kind: n.kind, Err: err}
		observability.LogNodeError(logger, n.name, err)
	} else {
		observability.LogNodeComplete(logger, n.name, float64(elapsed.Microseconds())/1000)
	}
	r.metrics.RecordNodeExecution(ctx, n.name, string(n.kind), elapsed, err)
	r.spans.EndSpanWithError(span, err)
	return value, err
}

// gather resolves every source of n concurrently. The first failure is
// returned at once; callers still waiting on other sources detach.
func (r *Resolver) gather(ctx context.Context, inst *Instance, n *Node) (Inputs, error) {
	in := Inputs{
		Args:   make([]any, len(n.args)),
		Kwargs: make(map[string]any, len(n.kwargs)),
		Params: n.Params(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range n.args {
		g.Go(func() error {
			v, err := r.resolveSource(gctx, inst, n, src)
			if err != nil {
				return err
			}
			in.Args[i] = v
			return nil
		})
	}
	for keyword, src := range n.kwargs {
		g.Go(func() error {
			v, err := r.resolveSource(gctx, inst, n, src)
			if err != nil {
				return err
			}
			mu.Lock()
			in.Kwargs[keyword] = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

func (r *Resolver) resolveSource(ctx context.Context, inst *Instance, n *Node, src Source) (any, error) {
	dep := inst.def.nodes[src.Target]
	logger := observability.EnrichLogger(r.logger, inst.def.name, inst.id, dep.name)
	v, err := r.resolve(ctx, inst, dep, logger)
	if err != nil {
		return nil, &DependencyFailedError{Node: n.name, Source: src.Target, Err: err}
	}
	return v, nil
}

// commit stores a computed value.
func (r *Resolver) commit(ctx context.Context, inst *Instance, n *Node, value any, logger *slog.Logger) error {
	err := r.ws.Put(ctx, inst.id, n.name, value)
	if err == nil {
		return nil
	}
	if r.fatalWS {
		return &WorkspaceError{Node: n.name, Op: "put", Err: err}
	}
	observability.LogWorkspaceError(logger, n.name, "put", err)
	return nil
}

// ResolveMany resolves several nodes concurrently and returns their values
// by name. The first error is returned and the other waits detach.
func (r *Resolver) ResolveMany(ctx context.Context, inst *Instance, names ...string) (map[string]any, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	for _, name := range names {
		if _, err := r.node(inst, name); err != nil {
			return nil, err
		}
	}

	out := make(map[string]any, len(names))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			v, err := r.Resolve(gctx, inst, name)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Status reports the state of node name for inst.
// Workspace read errors are returned as-is.
func (r *Resolver) Status(ctx context.Context, inst *Instance, name string) (State, error) {
	if _, err := r.node(inst, name); err != nil {
		return StateUnstarted, err
	}

	key := flightKey(inst.id, name)
	pending, failed := r.shard(key).state(key)
	if pending {
		return StatePending, nil
	}

	_, ok, err := r.ws.Get(ctx, inst.id, name)
	if err != nil {
		return StateUnstarted, &WorkspaceError{Node: name, Op: "get", Err: err}
	}
	switch {
	case ok:
		return StateDone, nil
	case failed:
		return StateFailed, nil
	default:
		return StateUnstarted, nil
	}
}

// Invalidate removes the stored values of name and everything downstream of
// it for inst, so the next resolve recomputes them. It returns the nodes it
// cleared, name first, then descendants in topological order.
//
// The workspace must implement workspace.Deleter. Computations already in
// flight are not interrupted and may store their values afterwards.
func (r *Resolver) Invalidate(ctx context.Context, inst *Instance, name string) ([]string, error) {
	if _, err := r.node(inst, name); err != nil {
		return nil, err
	}
	del, ok := r.ws.(workspace.Deleter)
	if !ok {
		return nil, &NodeError{Node: name, Op: "invalidate", Err: ErrInvalidateUnsupported}
	}

	targets := append([]string{name}, inst.def.Descendants(name)...)
	for _, target := range targets {
		if err := del.Delete(ctx, inst.id, target); err != nil {
			return nil, &WorkspaceError{Node: target, Op: "delete", Err: err}
		}
		key := flightKey(inst.id, target)
		r.shard(key).clear(key)
	}

	if r.logger != nil {
		r.logger.Info("invalidated nodes",
			slog.String("workflow", inst.def.name),
			slog.String("workflow_id", inst.id),
			slog.Any("nodes", targets),
		)
	}
	return targets, nil
}
