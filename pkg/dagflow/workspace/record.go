package workspace

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordVersion is the current stored-record format version.
// Increment when making breaking changes to Record.
const RecordVersion = 1

// Record is the envelope persisted for each value by encoding workspaces.
type Record struct {
	Version    int             `json:"version"`
	WorkflowID string          `json:"workflow_id"`
	Node       string          `json:"node"`
	StoredAt   time.Time       `json:"stored_at"`
	Value      json.RawMessage `json:"value"`
}

// Codec converts values to and from their stored form.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec encodes values as JSON. Decoded values are the generic JSON
// shapes (float64, string, bool, []any, map[string]any), so callers that
// need concrete types convert them after loading.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewRecord wraps an encoded value.
func NewRecord(workflowID, node string, value []byte) *Record {
	return &Record{
		Version:    RecordVersion,
		WorkflowID: workflowID,
		Node:       node,
		StoredAt:   time.Now().UTC(),
		Value:      value,
	}
}

// Marshal serializes the record.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord deserializes a record and checks its version.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if r.Version != RecordVersion {
		return nil, fmt.Errorf("record version %d, want %d", r.Version, RecordVersion)
	}
	return &r, nil
}
