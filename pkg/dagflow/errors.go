package dagflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/dagflow/pkg/dagflow/pool"
)

// Sentinel errors for building definitions.
var (
	// ErrUnknownSource indicates a step names a source that is neither a seed nor a step.
	ErrUnknownSource = errors.New("unknown source")

	// ErrCyclicDependency indicates the declared dependencies form a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrParamConflict indicates a static param shares its name with a kwarg.
	ErrParamConflict = errors.New("param conflicts with kwarg")

	// ErrDuplicateDefinition indicates a definition name is already in the catalog.
	ErrDuplicateDefinition = errors.New("definition already registered")
)

// Sentinel errors for resolving nodes.
var (
	// ErrNodeNotFound indicates a resolve or lookup named a node the definition lacks.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDependencyFailed indicates a step could not run because a source failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrComputation indicates a seed accessor or step function returned an error.
	ErrComputation = errors.New("computation failed")

	// ErrNilContext indicates Resolve was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrVarNotSet indicates a FromVar seed read a variable the instance lacks.
	ErrVarNotSet = errors.New("instance variable not set")
)

// UnknownSourceError reports a step whose source names no declared node.
type UnknownSourceError struct {
	// Step is the step that declared the source.
	Step string
	// Source is the name that could not be found.
	Source string
}

// Error implements the error interface.
func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("step %s: unknown source %q", e.Step, e.Source)
}

// Unwrap returns ErrUnknownSource for errors.Is support.
func (e *UnknownSourceError) Unwrap() error {
	return ErrUnknownSource
}

// CyclicDependencyError reports the part of the graph that could not be ordered.
type CyclicDependencyError struct {
	// Nodes lists every node left after topological ordering, sorted.
	// It covers the cycles and everything downstream of them.
	Nodes []string
	// Cycle is one concrete cycle, first node repeated at the end.
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("cyclic dependency among nodes: %s", strings.Join(e.Nodes, ", "))
}

// Unwrap returns ErrCyclicDependency for errors.Is support.
func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// NodeError wraps an error with node context.
type NodeError struct {
	// Node is the node name.
	Node string
	// Op is the operation that failed ("lookup", "invalidate").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// ComputationError reports a seed accessor or step function failure.
// Every caller waiting on the same computation receives the same value.
type ComputationError struct {
	// Node is the node whose function failed.
	Node string
	// Kind is the node kind.
	Kind Kind
	// Err is what the function returned, or a *PanicError.
	Err error
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Node, e.Err)
}

// Unwrap exposes both ErrComputation and the function's own error.
func (e *ComputationError) Unwrap() []error {
	return []error{ErrComputation, e.Err}
}

// DependencyFailedError reports a step that never ran because one of its
// sources failed.
type DependencyFailedError struct {
	// Node is the step that could not run.
	Node string
	// Source is the direct source that failed.
	Source string
	// Err is the source's own error.
	Err error
}

// Error implements the error interface.
func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("step %s: source %s failed: %v", e.Node, e.Source, e.Err)
}

// Unwrap exposes both ErrDependencyFailed and the source's error.
func (e *DependencyFailedError) Unwrap() []error {
	return []error{ErrDependencyFailed, e.Err}
}

// Origin returns the node whose failure started the chain.
func (e *DependencyFailedError) Origin() string {
	origin := e.Source
	err := e.Err
	for {
		var dep *DependencyFailedError
		if !errors.As(err, &dep) {
			return origin
		}
		origin = dep.Source
		err = dep.Err
	}
}

// PanicError captures a panic raised by a seed accessor or step function.
type PanicError = pool.PanicError

// CancellationError is returned to a caller that stopped waiting.
// The computation it was waiting on keeps running for any other callers.
type CancellationError struct {
	// Node is the node the caller was waiting on.
	Node string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("stopped waiting for node %s: %v", e.Node, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// WorkspaceError wraps a workspace failure that was configured to fail the node.
type WorkspaceError struct {
	// Node is the node being stored or loaded.
	Node string
	// Op is the workspace operation ("get", "put", "delete").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s for node %s: %v", e.Op, e.Node, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *WorkspaceError) Unwrap() error {
	return e.Err
}
