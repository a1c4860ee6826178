// Package auditutil provides best-effort audit event appending. Audit sink
// failures never abort the business operation — they degrade to the local
// structured log.
package auditutil

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"schemabridge/internal/domain"
)

// Append records an audit event, deriving the retention period from the risk
// level. Sink errors are logged and swallowed.
func Append(ctx context.Context, audit domain.AuditRepository, e *domain.AuditEvent) {
	if audit == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.RiskLevel == "" {
		e.RiskLevel = domain.RiskLow
	}
	if e.RetentionDays == 0 {
		e.RetentionDays = domain.RetentionDaysFor(e.RiskLevel)
	}
	if err := audit.Append(ctx, e); err != nil {
		slog.Error("audit append failed, falling back to local log",
			"error", err,
			"event_type", e.EventType,
			"action", e.Action,
			"risk_level", e.RiskLevel,
			"session_id", e.SessionID,
			"details", e.Details)
	}
}

// Event builds an audit event with JSON-encoded details. Unserializable
// details degrade to their Go string representation rather than failing.
func Event(sessionID, eventType, action, riskLevel string, details map[string]interface{}) *domain.AuditEvent {
	var encoded string
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			encoded = string(b)
		} else {
			encoded = `{"error":"unserializable details"}`
		}
	}
	return &domain.AuditEvent{
		SessionID: sessionID,
		EventType: eventType,
		Action:    action,
		RiskLevel: riskLevel,
		Details:   encoded,
	}
}
