package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"schemabridge/internal/domain"
)

// MappingSetRepo persists mapping sets. Columns needed by lookups and the
// state machine are materialized; the candidate and rejection history lives
// in a JSON payload.
type MappingSetRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewMappingSetRepo creates a MappingSetRepo over a write/read pool pair.
func NewMappingSetRepo(write, read *sql.DB) *MappingSetRepo {
	return &MappingSetRepo{write: write, read: read}
}

// mappingPayload is the JSON-encoded mutable body of a set.
type mappingPayload struct {
	Candidates     []domain.MappingCandidate `json:"candidates"`
	Rejected       []domain.MappingCandidate `json:"rejected,omitempty"`
	UnmappedTarget []string                  `json:"unmapped_target,omitempty"`
	ClassifiedAt   *time.Time                `json:"classified_at,omitempty"`
}

func encodePayload(m *domain.MappingSet) (string, error) {
	b, err := json.Marshal(mappingPayload{
		Candidates:     m.Candidates,
		Rejected:       m.Rejected,
		UnmappedTarget: m.UnmappedTarget,
		ClassifiedAt:   m.ClassifiedAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal mapping set payload: %w", err)
	}
	return string(b), nil
}

// Create inserts a new set. A duplicate id is a conflict.
func (r *MappingSetRepo) Create(ctx context.Context, m *domain.MappingSet) error {
	payload, err := encodePayload(m)
	if err != nil {
		return err
	}

	_, err = r.write.ExecContext(ctx, `
		INSERT INTO mapping_sets (id, session_id, source_dataset, source_table, target_dataset, target_table, state, payload, created_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.SourceDataset, m.SourceTable, m.TargetDataset, m.TargetTable, m.State, payload, m.CreatedAt, m.DecidedAt)
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return domain.ErrConflict("mapping set %q already exists", m.ID)
	}
	return err
}

// Update rewrites the payload and state of an existing set.
func (r *MappingSetRepo) Update(ctx context.Context, m *domain.MappingSet) error {
	payload, err := encodePayload(m)
	if err != nil {
		return err
	}

	res, err := r.write.ExecContext(ctx, `
		UPDATE mapping_sets
		SET state = ?, payload = ?, decided_at = ?
		WHERE id = ? AND session_id = ?`,
		m.State, payload, m.DecidedAt, m.ID, m.SessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("mapping set %q not found", m.ID)
	}
	return nil
}

// GetByID loads one set.
func (r *MappingSetRepo) GetByID(ctx context.Context, sessionID, id string) (*domain.MappingSet, error) {
	return r.scanOne(ctx, `
		SELECT id, session_id, source_dataset, source_table, target_dataset, target_table, state, payload, created_at, decided_at
		FROM mapping_sets
		WHERE id = ? AND session_id = ?`,
		id, sessionID)
}

// GetLatest returns the most recently created set for a table pair.
func (r *MappingSetRepo) GetLatest(ctx context.Context, sessionID, sourceTable, targetTable string) (*domain.MappingSet, error) {
	return r.scanOne(ctx, `
		SELECT id, session_id, source_dataset, source_table, target_dataset, target_table, state, payload, created_at, decided_at
		FROM mapping_sets
		WHERE session_id = ? AND source_table = ? AND target_table = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		sessionID, sourceTable, targetTable)
}

func (r *MappingSetRepo) scanOne(ctx context.Context, query string, args ...interface{}) (*domain.MappingSet, error) {
	m := &domain.MappingSet{}
	var payload string
	var decidedAt sql.NullTime

	err := r.read.QueryRowContext(ctx, query, args...).Scan(
		&m.ID, &m.SessionID, &m.SourceDataset, &m.SourceTable, &m.TargetDataset, &m.TargetTable,
		&m.State, &payload, &m.CreatedAt, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("mapping set not found")
	}
	if err != nil {
		return nil, err
	}

	var body mappingPayload
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, fmt.Errorf("unmarshal mapping set payload: %w", err)
	}
	m.Candidates = body.Candidates
	m.Rejected = body.Rejected
	m.UnmappedTarget = body.UnmappedTarget
	m.ClassifiedAt = body.ClassifiedAt
	if decidedAt.Valid {
		t := decidedAt.Time
		m.DecidedAt = &t
	}
	return m, nil
}

// Transition moves a set between states with a guarded update: the row must
// still be in fromState, so exactly one of two racing transitions wins.
func (r *MappingSetRepo) Transition(ctx context.Context, sessionID, id, fromState, toState string, decidedAt *time.Time) error {
	res, err := r.write.ExecContext(ctx, `
		UPDATE mapping_sets
		SET state = ?, decided_at = ?
		WHERE id = ? AND session_id = ? AND state = ?`,
		toState, decidedAt, id, sessionID, fromState)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var state string
	err = r.read.QueryRowContext(ctx,
		`SELECT state FROM mapping_sets WHERE id = ? AND session_id = ?`,
		id, sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("mapping set %q not found", id)
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict("mapping set %q is %s, expected %s", id, state, fromState)
}

var _ domain.MappingSetRepository = (*MappingSetRepo)(nil)
