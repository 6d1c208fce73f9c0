package workspace

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryWorkspace keeps values in process memory, unencoded.
// Values are lost when the process exits.
type MemoryWorkspace struct {
	mu     sync.RWMutex
	runs   map[string]map[string]memoryEntry // workflowID -> node -> entry
	seq    int64
	closed bool
}

type memoryEntry struct {
	value    any
	storedAt time.Time
	seq      int64
}

var (
	_ Workspace = (*MemoryWorkspace)(nil)
	_ Deleter   = (*MemoryWorkspace)(nil)
	_ Lister    = (*MemoryWorkspace)(nil)
	_ Store     = (*MemoryWorkspace)(nil)
)

// NewMemoryWorkspace creates an empty in-memory workspace.
func NewMemoryWorkspace() *MemoryWorkspace {
	return &MemoryWorkspace{
		runs: make(map[string]map[string]memoryEntry),
	}
}

// Get implements Workspace.
func (m *MemoryWorkspace) Get(_ context.Context, workflowID, node string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}

	e, ok := m.runs[workflowID][node]
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put implements Workspace. The first value stored for a key wins.
func (m *MemoryWorkspace) Put(_ context.Context, workflowID, node string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	run := m.runs[workflowID]
	if run == nil {
		run = make(map[string]memoryEntry)
		m.runs[workflowID] = run
	}
	if _, exists := run[node]; exists {
		return nil
	}

	m.seq++
	run[node] = memoryEntry{value: value, storedAt: time.Now().UTC(), seq: m.seq}
	return nil
}

// Delete implements Deleter.
func (m *MemoryWorkspace) Delete(_ context.Context, workflowID, node string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if run, ok := m.runs[workflowID]; ok {
		delete(run, node)
		if len(run) == 0 {
			delete(m.runs, workflowID)
		}
	}
	return nil
}

// DeleteRun implements Deleter.
func (m *MemoryWorkspace) DeleteRun(_ context.Context, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.runs, workflowID)
	return nil
}

// List implements Lister.
func (m *MemoryWorkspace) List(_ context.Context, workflowID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	run := m.runs[workflowID]
	type ordered struct {
		info Info
		seq  int64
	}
	entries := make([]ordered, 0, len(run))
	for node, e := range run {
		entries = append(entries, ordered{
			info: Info{WorkflowID: workflowID, Node: node, StoredAt: e.storedAt},
			seq:  e.seq,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	infos := make([]Info, len(entries))
	for i, e := range entries {
		infos[i] = e.info
	}
	return infos, nil
}

// Close releases the stored values. Further calls return ErrClosed.
func (m *MemoryWorkspace) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}

// Len returns the number of stored values across all runs.
func (m *MemoryWorkspace) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, run := range m.runs {
		n += len(run)
	}
	return n
}
