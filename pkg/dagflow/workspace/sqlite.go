package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteWorkspace persists values to SQLite, one versioned Record per key.
// It is suitable for single-host use; several processes may share one file
// because writes never overwrite a committed value.
type SQLiteWorkspace struct {
	db     *sql.DB
	codec  Codec
	mu     sync.RWMutex
	closed bool
}

var (
	_ Workspace = (*SQLiteWorkspace)(nil)
	_ Deleter   = (*SQLiteWorkspace)(nil)
	_ Lister    = (*SQLiteWorkspace)(nil)
	_ Store     = (*SQLiteWorkspace)(nil)
)

// SQLiteOption configures a SQLiteWorkspace.
type SQLiteOption func(*SQLiteWorkspace)

// WithCodec sets the value codec. Default: JSONCodec.
func WithCodec(c Codec) SQLiteOption {
	return func(s *SQLiteWorkspace) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewSQLiteWorkspace opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func NewSQLiteWorkspace(path string, opts ...SQLiteOption) (*SQLiteWorkspace, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS node_values (
			workflow_id TEXT NOT NULL,
			node TEXT NOT NULL,
			stored_at TEXT NOT NULL,
			record BLOB NOT NULL,
			PRIMARY KEY (workflow_id, node)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	s := &SQLiteWorkspace{db: db, codec: JSONCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get implements Workspace.
func (s *SQLiteWorkspace) Get(ctx context.Context, workflowID, node string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM node_values
		WHERE workflow_id = ? AND node = ?
	`, workflowID, node).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load value: %w", err)
	}

	rec, err := UnmarshalRecord(data)
	if err != nil {
		return nil, false, err
	}
	value, err := s.codec.Decode(rec.Value)
	if err != nil {
		return nil, false, fmt.Errorf("decode value: %w", err)
	}
	return value, true, nil
}

// Put implements Workspace. Existing rows are never replaced.
func (s *SQLiteWorkspace) Put(ctx context.Context, workflowID, node string, value any) error {
	encoded, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	rec := NewRecord(workflowID, node, encoded)
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO node_values (workflow_id, node, stored_at, record)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workflow_id, node) DO NOTHING
	`, workflowID, node, rec.StoredAt.Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("save value: %w", err)
	}
	return nil
}

// List implements Lister.
func (s *SQLiteWorkspace) List(ctx context.Context, workflowID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT node, stored_at, LENGTH(record)
		FROM node_values
		WHERE workflow_id = ?
		ORDER BY rowid
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		info := Info{WorkflowID: workflowID}
		var storedAt string
		if err := rows.Scan(&info.Node, &storedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan value info: %w", err)
		}
		info.StoredAt, _ = time.Parse(time.RFC3339Nano, storedAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return infos, nil
}

// Delete implements Deleter.
func (s *SQLiteWorkspace) Delete(ctx context.Context, workflowID, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM node_values WHERE workflow_id = ? AND node = ?
	`, workflowID, node); err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	return nil
}

// DeleteRun implements Deleter.
func (s *SQLiteWorkspace) DeleteRun(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM node_values WHERE workflow_id = ?
	`, workflowID); err != nil {
		return fmt.Errorf("delete run values: %w", err)
	}
	return nil
}

// Close closes the database. Closing twice is safe.
func (s *SQLiteWorkspace) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
