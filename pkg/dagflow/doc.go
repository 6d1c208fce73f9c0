/*
Package dagflow builds and runs declarative workflow graphs.

# Overview

A workflow is declared as named seeds (raw inputs) and steps (values
computed from other nodes). Each step lists the nodes it reads from; the
builder derives the dependency graph, rejects unknown sources and cycles,
and produces an immutable Definition shared by every run.

Values are resolved on demand. Asking for a node resolves its sources
first, concurrently, and runs each node at most once per workflow id at a
time no matter how many callers ask. Results are cached in a Workspace
keyed by (workflow id, node name).

# Basic Usage

	func double(_ context.Context, in dagflow.Inputs) (any, error) {
	    n, err := dagflow.ArgAs[int](in, 0)
	    return n * 2, err
	}

	func plusOne(_ context.Context, in dagflow.Inputs) (any, error) {
	    n, err := dagflow.ArgAs[int](in, 0)
	    return n + 1, err
	}

	def := dagflow.NewBuilder("features").
	    Seed("raw", dagflow.FromVar("raw")).
	    Step("doubled", double, dagflow.Args(dagflow.Ref("raw"))).
	    Step("plus_one", plusOne, dagflow.Args(dagflow.Ref("doubled"))).
	    MustBuild()

	inst := dagflow.NewInstance(def,
	    dagflow.WithWorkflowID("run-1"),
	    dagflow.WithVars(map[string]any{"raw": 5}),
	)
	v, err := dagflow.Resolve[int](ctx, inst, "plus_one") // 11

# Sources

Steps read sources positionally with Args and by keyword with Kwarg or
Kwargs. Static values go in Params and arrive in Inputs.Params. A param
may not share a name with a kwarg.

	Step("report", render,
	    dagflow.Args(dagflow.Refs("header", "body")...),
	    dagflow.Kwarg("footer", dagflow.Ref("signature")),
	    dagflow.Params(map[string]any{"width": 80}),
	)

# Errors

Build errors are joined with errors.Join; inspect them with errors.As:

	var unknown *dagflow.UnknownSourceError
	if errors.As(err, &unknown) {
	    fmt.Println(unknown.Step, unknown.Source)
	}

Resolve errors are shared: every caller waiting on a failed computation
receives the same error value. A failed source stops its consumers before
their functions run, reported as *DependencyFailedError. Nothing is cached
on failure, so a later resolve tries again.

# Cancellation

A caller whose context ends stops waiting and receives *CancellationError.
The computation itself keeps running for other callers and still stores
its value.

# Observability

	r := dagflow.NewResolver(
	    dagflow.WithLogger(logger),
	    dagflow.WithMetrics(true),
	    dagflow.WithTracing(true),
	)

See the observability package for the metric and span names.
*/
package dagflow
