package dagflow

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/randalmurphal/dagflow/pkg/dagflow/workspace"
)

// Helper step functions

// double returns twice its first arg.
func double(_ context.Context, in Inputs) (any, error) {
	n, err := ArgAs[int](in, 0)
	if err != nil {
		return nil, err
	}
	return n * 2, nil
}

// plusOne returns its first arg plus one.
func plusOne(_ context.Context, in Inputs) (any, error) {
	n, err := ArgAs[int](in, 0)
	if err != nil {
		return nil, err
	}
	return n + 1, nil
}

// sumArgs adds every positional arg.
func sumArgs(_ context.Context, in Inputs) (any, error) {
	total := 0
	for i := range in.Args {
		n, err := ArgAs[int](in, i)
		if err != nil {
			return nil, err
		}
		total += n
	}
	return total, nil
}

// counted wraps fn so every call increments calls.
func counted(fn StepFunc, calls *atomic.Int64) StepFunc {
	return func(ctx context.Context, in Inputs) (any, error) {
		calls.Add(1)
		return fn(ctx, in)
	}
}

// countedSeed wraps fn so every call increments calls.
func countedSeed(fn SeedFunc, calls *atomic.Int64) SeedFunc {
	return func(ctx context.Context, inst *Instance) (any, error) {
		calls.Add(1)
		return fn(ctx, inst)
	}
}

// blocking returns a step that signals started, waits for release, then
// returns value.
func blocking(started chan<- struct{}, release <-chan struct{}, value any) StepFunc {
	return func(context.Context, Inputs) (any, error) {
		started <- struct{}{}
		<-release
		return value, nil
	}
}

// featuresDef is raw -> doubled -> plus_one with raw read from the "raw" var.
func featuresDef() *Definition {
	return NewBuilder("features").
		Seed("raw", FromVar("raw")).
		Step("doubled", double, Args(Ref("raw"))).
		Step("plus_one", plusOne, Args(Ref("doubled"))).
		MustBuild()
}

// newTestResolver returns a quiet resolver with an unbounded pool.
func newTestResolver(opts ...Option) *Resolver {
	base := []Option{WithLogger(nil), WithWorkers(0)}
	return NewResolver(append(base, opts...)...)
}

var errBoom = errors.New("boom")

// faultyWorkspace fails Get or Put on demand.
type faultyWorkspace struct {
	*workspace.MemoryWorkspace
	getErr error
	putErr error
}

func newFaultyWorkspace(getErr, putErr error) *faultyWorkspace {
	return &faultyWorkspace{
		MemoryWorkspace: workspace.NewMemoryWorkspace(),
		getErr:          getErr,
		putErr:          putErr,
	}
}

func (f *faultyWorkspace) Get(ctx context.Context, workflowID, node string) (any, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.MemoryWorkspace.Get(ctx, workflowID, node)
}

func (f *faultyWorkspace) Put(ctx context.Context, workflowID, node string, value any) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryWorkspace.Put(ctx, workflowID, node, value)
}

// readOnlyView hides the Deleter methods of a workspace.
type readOnlyView struct {
	ws workspace.Workspace
}

func (v readOnlyView) Get(ctx context.Context, workflowID, node string) (any, bool, error) {
	return v.ws.Get(ctx, workflowID, node)
}

func (v readOnlyView) Put(ctx context.Context, workflowID, node string, value any) error {
	return v.ws.Put(ctx, workflowID, node, value)
}
