// Package domain defines core types, interfaces, and errors for the mapping engine.
package domain

import "fmt"

// Risk levels attached to errors and audit events.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input (bad identifier, malformed request).
// Always caller-fixable and never retried automatically.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflicting state transition (e.g., deciding an
// already-decided mapping set).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// HallucinationError indicates a mapping candidate referenced a column that does
// not exist in the captured schema snapshot.
type HallucinationError struct {
	Column  string
	Table   string
	Message string
}

func (e *HallucinationError) Error() string { return e.Message }

// RiskLevel returns the risk classification for hallucinated candidates.
func (e *HallucinationError) RiskLevel() string { return RiskMedium }

// DryRunError indicates the warehouse rejected the SQL before execution.
// The statement returns to GENERATED for regeneration; no automatic retry.
type DryRunError struct {
	Statement string
	Cause     string
}

func (e *DryRunError) Error() string {
	return fmt.Sprintf("dry-run rejected by warehouse: %s", e.Cause)
}

// RiskLevel returns the risk classification for dry-run failures.
func (e *DryRunError) RiskLevel() string { return RiskHigh }

// TokenInvalidError indicates an expired, mismatched, or already-consumed
// execution token. Execution is refused and the statement stays VALIDATED.
type TokenInvalidError struct {
	TokenID string
	Reason  string
}

func (e *TokenInvalidError) Error() string {
	return fmt.Sprintf("execution token %s rejected: %s", e.TokenID, e.Reason)
}

// RiskLevel returns the risk classification for token violations.
func (e *TokenInvalidError) RiskLevel() string { return RiskHigh }

// ExecutionError indicates the warehouse failed during a live run. No rollback
// is attempted here; partial writes are the warehouse's transactional concern.
type ExecutionError struct {
	Statement string
	Cause     string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s", e.Cause)
}

// RiskLevel returns the risk classification for execution failures.
func (e *ExecutionError) RiskLevel() string { return RiskCritical }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
