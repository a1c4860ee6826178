package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"schemabridge/internal/domain"
)

// AuditRepo persists the append-only audit stream. There is no update path;
// the only delete is PruneExpired, run by the retention sweeper.
type AuditRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewAuditRepo creates an AuditRepo over a write/read pool pair.
func NewAuditRepo(write, read *sql.DB) *AuditRepo {
	return &AuditRepo{write: write, read: read}
}

// Append inserts one event, assigning an id if the caller did not.
func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.write.ExecContext(ctx, `
		INSERT INTO audit_events (id, session_id, event_type, action, risk_level, details, retention_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.EventType, e.Action, e.RiskLevel, e.Details, e.RetentionDays, e.CreatedAt)
	return err
}

// List returns events matching the filter, newest first, plus the unpaged
// total.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	where, args := buildAuditWhere(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM audit_events" + where
	if err := r.read.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT id, session_id, event_type, action, risk_level, details, retention_days, created_at
		FROM audit_events` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	listArgs := append(append([]interface{}{}, args...), filter.Page.Limit(), filter.Page.Offset())

	rows, err := r.read.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Action, &e.RiskLevel, &e.Details, &e.RetentionDays, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func buildAuditWhere(filter domain.AuditFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.SessionID != nil {
		conds = append(conds, "session_id = ?")
		args = append(args, *filter.SessionID)
	}
	if filter.EventType != nil {
		conds = append(conds, "event_type = ?")
		args = append(args, *filter.EventType)
	}
	if filter.Action != nil {
		conds = append(conds, "action = ?")
		args = append(args, *filter.Action)
	}
	if filter.RiskLevel != nil {
		conds = append(conds, "risk_level = ?")
		args = append(args, *filter.RiskLevel)
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// PruneExpired deletes events whose retention window elapsed before now.
// Only the retention sweeper calls this; nothing else deletes audit rows.
func (r *AuditRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.write.ExecContext(ctx, `
		DELETE FROM audit_events
		WHERE datetime(created_at, '+' || retention_days || ' days') <= datetime(?)`,
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ domain.AuditRepository = (*AuditRepo)(nil)
