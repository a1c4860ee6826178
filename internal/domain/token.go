package domain

import "time"

// ExecutionToken is a single-use, time-limited credential produced by a
// successful dry-run. Execution requires an unexpired, unconsumed token whose
// fingerprint matches the statement being run.
type ExecutionToken struct {
	ID             string    `json:"token_id"`
	SessionID      string    `json:"session_id"`
	MappingSetID   string    `json:"mapping_set_ref"`
	SQLFingerprint string    `json:"sql_fingerprint"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Consumed       bool      `json:"consumed"`
}

// Expired reports whether the token's TTL has elapsed at the given instant.
// Expiry is checked lazily at execute time; there is no background timer.
func (t *ExecutionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ExecutionResult records the outcome of a live execution.
type ExecutionResult struct {
	RowsAffected int64         `json:"rows_affected"`
	JobID        string        `json:"job_id,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// DryRunResult records the outcome of a warehouse dry-run validation.
type DryRunResult struct {
	Valid         bool   `json:"valid"`
	BytesEstimate int64  `json:"bytes_estimate"`
	Error         string `json:"error,omitempty"`
}
