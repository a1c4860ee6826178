package transform

import (
	"context"
	"errors"
	"sync"
	"time"

	"schemabridge/internal/domain"
	"schemabridge/internal/service/auditutil"
	"schemabridge/internal/sqlsafe"
)

// Controller enforces the two-phase execution protocol: every statement is
// dry-run first, a successful dry-run issues a single-use TTL'd token bound
// to the statement's fingerprint, and only that token authorizes the live run.
// Per-statement state lives in memory keyed by fingerprint; the tokens
// themselves are persisted.
type Controller struct {
	tokens    domain.TokenRepository
	warehouse domain.Warehouse
	audit     domain.AuditRepository
	clock     domain.Clock
	ids       domain.IDGenerator
	ttl       time.Duration

	mu     sync.Mutex
	states map[string]string // fingerprint -> statement state
}

// NewController creates a Controller issuing tokens with the given TTL.
func NewController(tokens domain.TokenRepository, warehouse domain.Warehouse, audit domain.AuditRepository, clock domain.Clock, ids domain.IDGenerator, ttl time.Duration) *Controller {
	return &Controller{
		tokens:    tokens,
		warehouse: warehouse,
		audit:     audit,
		clock:     clock,
		ids:       ids,
		ttl:       ttl,
		states:    map[string]string{},
	}
}

// State returns the tracked state of a statement, defaulting to GENERATED for
// statements the controller has never seen.
func (c *Controller) State(sqlText string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[Fingerprint(sqlText)]; ok {
		return s
	}
	return domain.StmtGenerated
}

func (c *Controller) setState(fingerprint, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[fingerprint] = state
}

// DryRun screens the statement, validates it against the warehouse without
// effect, and on success issues an execution token. Warehouse rejections are
// surfaced verbatim and never retried here.
func (c *Controller) DryRun(ctx context.Context, sessionID, mappingSetID, sqlText string) (*domain.ExecutionToken, error) {
	fingerprint := Fingerprint(sqlText)

	warnings, err := sqlsafe.CheckStatement(sqlText)
	if err != nil {
		auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSecurity, "SQL_BLOCKED", domain.RiskHigh, map[string]interface{}{
			"mapping_set_id": mappingSetID,
			"reason":         err.Error(),
		}))
		return nil, err
	}

	res, err := c.warehouse.DryRunQuery(ctx, sqlText)
	if err != nil {
		c.setState(fingerprint, domain.StmtDryRunFailed)
		c.auditDryRunFailed(ctx, sessionID, mappingSetID, err.Error())
		return nil, &domain.DryRunError{Statement: sqlText, Cause: err.Error()}
	}
	if !res.Valid {
		c.setState(fingerprint, domain.StmtDryRunFailed)
		c.auditDryRunFailed(ctx, sessionID, mappingSetID, res.Error)
		return nil, &domain.DryRunError{Statement: sqlText, Cause: res.Error}
	}

	now := c.clock.Now().UTC()
	token := &domain.ExecutionToken{
		ID:             c.ids.New(),
		SessionID:      sessionID,
		MappingSetID:   mappingSetID,
		SQLFingerprint: fingerprint,
		IssuedAt:       now,
		ExpiresAt:      now.Add(c.ttl),
	}
	if err := c.tokens.Insert(ctx, token); err != nil {
		return nil, err
	}
	c.setState(fingerprint, domain.StmtValidated)

	auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSQLExecution, "DRY_RUN_PASSED", domain.RiskLow, map[string]interface{}{
		"mapping_set_id": mappingSetID,
		"token_id":       token.ID,
		"bytes_estimate": res.BytesEstimate,
		"expires_at":     token.ExpiresAt,
		"warnings":       warnings,
	}))
	return token, nil
}

// Execute runs a dry-run-validated statement. The token must match the
// statement's fingerprint, be unexpired, and be unconsumed; any violation
// refuses execution and leaves the statement VALIDATED. The token is consumed
// whether the run succeeds or fails, so a failed run requires a fresh dry-run.
func (c *Controller) Execute(ctx context.Context, sessionID, sqlText, tokenID string) (*domain.ExecutionResult, error) {
	fingerprint := Fingerprint(sqlText)

	if c.State(sqlText) != domain.StmtValidated {
		auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSecurity, "EXECUTION_ORDER_VIOLATION", domain.RiskHigh, map[string]interface{}{
			"statement_state": c.State(sqlText),
		}))
		return nil, domain.ErrConflict("statement is %s, execution requires a successful dry-run first", c.State(sqlText))
	}

	token, err := c.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.SessionID != sessionID {
		return nil, c.refuse(ctx, sessionID, tokenID, "token belongs to a different session")
	}
	if token.SQLFingerprint != fingerprint {
		return nil, c.refuse(ctx, sessionID, tokenID, "statement fingerprint does not match the dry-run that issued the token")
	}
	if token.Expired(c.clock.Now()) {
		return nil, c.refuse(ctx, sessionID, tokenID, "token expired")
	}
	// Guarded consume: exactly one caller wins a double-spend race.
	if err := c.tokens.Consume(ctx, tokenID); err != nil {
		var tierr *domain.TokenInvalidError
		if errors.As(err, &tierr) {
			return nil, c.refuse(ctx, sessionID, tokenID, tierr.Reason)
		}
		return nil, err
	}

	start := c.clock.Now()
	res, err := c.warehouse.RunQuery(ctx, sqlText)
	if err != nil {
		c.setState(fingerprint, domain.StmtExecutionFailed)
		auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSQLExecution, "EXECUTION_FAILED", domain.RiskCritical, map[string]interface{}{
			"token_id": tokenID,
			"error":    err.Error(),
		}))
		return nil, &domain.ExecutionError{Statement: sqlText, Cause: err.Error()}
	}
	if res.Duration == 0 {
		res.Duration = c.clock.Now().Sub(start)
	}
	c.setState(fingerprint, domain.StmtExecuted)

	auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSQLExecution, "SQL_EXECUTED", domain.RiskHigh, map[string]interface{}{
		"token_id":      tokenID,
		"rows_affected": res.RowsAffected,
		"job_id":        res.JobID,
		"duration_ms":   res.Duration.Milliseconds(),
	}))
	return res, nil
}

// refuse audits and returns a token violation. The statement state is left
// untouched so a fresh dry-run can re-validate it.
func (c *Controller) refuse(ctx context.Context, sessionID, tokenID, reason string) error {
	auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSecurity, "TOKEN_REJECTED", domain.RiskHigh, map[string]interface{}{
		"token_id": tokenID,
		"reason":   reason,
	}))
	return &domain.TokenInvalidError{TokenID: tokenID, Reason: reason}
}

func (c *Controller) auditDryRunFailed(ctx context.Context, sessionID, mappingSetID, cause string) {
	auditutil.Append(ctx, c.audit, auditutil.Event(sessionID, domain.EventSQLExecution, "DRY_RUN_FAILED", domain.RiskHigh, map[string]interface{}{
		"mapping_set_id": mappingSetID,
		"error":          cause,
	}))
}
