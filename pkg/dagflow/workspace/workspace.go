// Package workspace stores computed node values keyed by (workflow id, node name).
package workspace

import (
	"context"
	"errors"
	"time"
)

// Workspace is the cache the resolver reads before computing a node and
// writes after a node succeeds. Implementations must be safe for concurrent use.
type Workspace interface {
	// Get returns the value stored for (workflowID, node).
	// ok is false when nothing is stored; err reports storage failures only.
	Get(ctx context.Context, workflowID, node string) (value any, ok bool, err error)

	// Put stores value for (workflowID, node) if nothing is stored yet.
	// A second Put for the same key leaves the first value in place and
	// returns nil.
	Put(ctx context.Context, workflowID, node string, value any) error
}

// Deleter is implemented by workspaces that support explicit invalidation.
type Deleter interface {
	// Delete removes the value for (workflowID, node). Missing keys are not an error.
	Delete(ctx context.Context, workflowID, node string) error

	// DeleteRun removes every value stored for workflowID.
	DeleteRun(ctx context.Context, workflowID string) error
}

// Lister is implemented by workspaces that can enumerate a run's values.
type Lister interface {
	// List returns metadata for every value stored for workflowID, oldest first.
	// A run with nothing stored yields an empty slice.
	List(ctx context.Context, workflowID string) ([]Info, error)
}

// Info describes a stored value without loading it.
type Info struct {
	WorkflowID string
	Node       string
	StoredAt   time.Time
	// Size is the encoded size in bytes, or 0 for in-memory values.
	Size int64
}

// ErrClosed indicates the workspace has been closed.
var ErrClosed = errors.New("workspace closed")

// Store is a Workspace with invalidation, listing, and a lifecycle.
// Both bundled implementations satisfy it.
type Store interface {
	Workspace
	Deleter
	Lister
	Close() error
}
