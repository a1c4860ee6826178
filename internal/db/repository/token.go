package repository

import (
	"context"
	"database/sql"
	"errors"

	"schemabridge/internal/domain"
)

// TokenRepo persists execution tokens.
type TokenRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewTokenRepo creates a TokenRepo over a write/read pool pair.
func NewTokenRepo(write, read *sql.DB) *TokenRepo {
	return &TokenRepo{write: write, read: read}
}

// Insert stores a freshly issued token.
func (r *TokenRepo) Insert(ctx context.Context, t *domain.ExecutionToken) error {
	_, err := r.write.ExecContext(ctx, `
		INSERT INTO execution_tokens (id, session_id, mapping_set_id, sql_fingerprint, issued_at, expires_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.MappingSetID, t.SQLFingerprint, t.IssuedAt, t.ExpiresAt, t.Consumed)
	return err
}

// GetByID loads one token.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (*domain.ExecutionToken, error) {
	t := &domain.ExecutionToken{}
	err := r.read.QueryRowContext(ctx, `
		SELECT id, session_id, mapping_set_id, sql_fingerprint, issued_at, expires_at, consumed
		FROM execution_tokens
		WHERE id = ?`, id).Scan(
		&t.ID, &t.SessionID, &t.MappingSetID, &t.SQLFingerprint, &t.IssuedAt, &t.ExpiresAt, &t.Consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("execution token %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Consume marks the token consumed with a guarded update. If two callers race
// on the same token, the second one loses here.
func (r *TokenRepo) Consume(ctx context.Context, id string) error {
	res, err := r.write.ExecContext(ctx,
		`UPDATE execution_tokens SET consumed = 1 WHERE id = ? AND consumed = 0`, id)
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

	var exists int
	err = r.read.QueryRowContext(ctx,
		`SELECT 1 FROM execution_tokens WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("execution token %q not found", id)
	}
	if err != nil {
		return err
	}
	return &domain.TokenInvalidError{TokenID: id, Reason: "token already consumed"}
}

var _ domain.TokenRepository = (*TokenRepo)(nil)
