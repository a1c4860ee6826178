package domain

import "time"

// Audit event types.
const (
	EventSchemaAccess  = "SCHEMA_ACCESS"
	EventMapping       = "MAPPING"
	EventValidation    = "VALIDATION"
	EventSQLGeneration = "SQL_GENERATION"
	EventSQLExecution  = "SQL_EXECUTION"
	EventSecurity      = "SECURITY"
	EventConsistency   = "CONSISTENCY"
)

// AuditEvent is one append-only audit record. The core never mutates or
// deletes events; retention sweeping is an external collaborator's job,
// driven by RetentionDays.
type AuditEvent struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	EventType     string    `json:"event_type"`
	Action        string    `json:"action"`
	RiskLevel     string    `json:"risk_level"`
	Details       string    `json:"details,omitempty"` // JSON-encoded context
	RetentionDays int       `json:"retention_days"`
	CreatedAt     time.Time `json:"timestamp"`
}

// RetentionDaysFor maps a risk level to its audit retention period.
// Critical events are kept for a year.
func RetentionDaysFor(riskLevel string) int {
	switch riskLevel {
	case RiskHigh:
		return 90
	case RiskCritical:
		return 365
	default:
		return 30
	}
}

// AuditFilter holds filter parameters for querying audit events.
type AuditFilter struct {
	SessionID *string
	EventType *string
	Action    *string
	RiskLevel *string
	Since     *time.Time
	Page      PageRequest
}
