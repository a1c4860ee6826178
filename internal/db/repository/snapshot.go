// Package repository implements the domain persistence ports on the SQLite
// session store. Writes go through the single-connection write pool; reads
// use the read pool.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"schemabridge/internal/domain"
)

// SnapshotRepo persists schema snapshots as JSON payloads keyed by session
// and dataset.
type SnapshotRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewSnapshotRepo creates a SnapshotRepo over a write/read pool pair.
func NewSnapshotRepo(write, read *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{write: write, read: read}
}

// Put stores the snapshot, replacing any previous capture for the same
// session and dataset wholesale.
func (r *SnapshotRepo) Put(ctx context.Context, s *domain.SchemaSnapshot) error {
	payload, err := json.Marshal(s.Tables)
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}

	_, err = r.write.ExecContext(ctx, `
		INSERT INTO schema_snapshots (session_id, dataset_name, payload, captured_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, dataset_name)
		DO UPDATE SET payload = excluded.payload, captured_at = excluded.captured_at`,
		s.SessionID, s.DatasetName, string(payload), s.CapturedAt)
	return err
}

// Get loads a captured snapshot.
func (r *SnapshotRepo) Get(ctx context.Context, sessionID, datasetName string) (*domain.SchemaSnapshot, error) {
	s := &domain.SchemaSnapshot{SessionID: sessionID, DatasetName: datasetName}

	var payload string
	err := r.read.QueryRowContext(ctx, `
		SELECT payload, captured_at
		FROM schema_snapshots
		WHERE session_id = ? AND dataset_name = ?`,
		sessionID, datasetName).Scan(&payload, &s.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("snapshot for dataset %q not found", datasetName)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &s.Tables); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot payload: %w", err)
	}
	return s, nil
}

var _ domain.SnapshotRepository = (*SnapshotRepo)(nil)
