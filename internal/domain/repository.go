package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotRepository persists captured schema snapshots, keyed by session and
// dataset. Put replaces any previous snapshot wholesale.
type SnapshotRepository interface {
	Put(ctx context.Context, s *SchemaSnapshot) error
	Get(ctx context.Context, sessionID, datasetName string) (*SchemaSnapshot, error)
}

// MappingSetRepository persists mapping sets with their full candidate and
// rejection history.
type MappingSetRepository interface {
	Create(ctx context.Context, m *MappingSet) error
	Update(ctx context.Context, m *MappingSet) error
	GetByID(ctx context.Context, sessionID, id string) (*MappingSet, error)
	// GetLatest returns the most recent set for a (source, target) pair,
	// used for drift detection across re-suggestions.
	GetLatest(ctx context.Context, sessionID, sourceTable, targetTable string) (*MappingSet, error)
	// Transition moves a set from one state to another atomically. Returns
	// ConflictError if the set is no longer in the expected state.
	Transition(ctx context.Context, sessionID, id, fromState, toState string, decidedAt *time.Time) error
}

// TokenRepository persists execution tokens.
type TokenRepository interface {
	Insert(ctx context.Context, t *ExecutionToken) error
	GetByID(ctx context.Context, id string) (*ExecutionToken, error)
	// Consume marks the token consumed. Returns TokenInvalidError if it was
	// already consumed — exactly one caller wins a double-spend race.
	Consume(ctx context.Context, id string) error
}

// AuditRepository provides append and filtered read access to audit events.
// Append must never block business logic: callers treat failures as
// best-effort and fall back to local logging.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, int64, error)
}

// Warehouse is the external warehouse connector: schema/data provider and SQL
// executor. Implementations are the only blocking collaborators of the core.
type Warehouse interface {
	GetTableColumns(ctx context.Context, dataset, table string) ([]ColumnDescriptor, error)
	ListTables(ctx context.Context, dataset string) ([]string, error)
	SampleRows(ctx context.Context, dataset, table string, limit int) (columns []string, rows [][]interface{}, err error)
	DryRunQuery(ctx context.Context, sqlText string) (*DryRunResult, error)
	RunQuery(ctx context.Context, sqlText string) (*ExecutionResult, error)
}

// Clock abstracts time retrieval so token TTL logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

// New implements IDGenerator.
func (UUIDGenerator) New() string { return uuid.NewString() }
