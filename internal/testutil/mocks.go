// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schemabridge/internal/domain"
)

// === Snapshot Repository Mock ===

// MockSnapshotRepo implements domain.SnapshotRepository backed by a map.
type MockSnapshotRepo struct {
	PutFn func(ctx context.Context, s *domain.SchemaSnapshot) error
	GetFn func(ctx context.Context, sessionID, datasetName string) (*domain.SchemaSnapshot, error)

	mu        sync.Mutex
	snapshots map[string]*domain.SchemaSnapshot
}

func (m *MockSnapshotRepo) key(sessionID, dataset string) string {
	return sessionID + "/" + dataset
}

// Put implements the interface method for testing.
func (m *MockSnapshotRepo) Put(ctx context.Context, s *domain.SchemaSnapshot) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshots == nil {
		m.snapshots = map[string]*domain.SchemaSnapshot{}
	}
	m.snapshots[m.key(s.SessionID, s.DatasetName)] = s
	return nil
}

// Get implements the interface method for testing.
func (m *MockSnapshotRepo) Get(ctx context.Context, sessionID, datasetName string) (*domain.SchemaSnapshot, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, sessionID, datasetName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[m.key(sessionID, datasetName)]
	if !ok {
		return nil, domain.ErrNotFound("snapshot for dataset %q not found", datasetName)
	}
	return s, nil
}

var _ domain.SnapshotRepository = (*MockSnapshotRepo)(nil)

// === Mapping Set Repository Mock ===

// MockMappingSetRepo implements domain.MappingSetRepository backed by a map.
type MockMappingSetRepo struct {
	CreateFn     func(ctx context.Context, s *domain.MappingSet) error
	UpdateFn     func(ctx context.Context, s *domain.MappingSet) error
	GetByIDFn    func(ctx context.Context, sessionID, id string) (*domain.MappingSet, error)
	GetLatestFn  func(ctx context.Context, sessionID, sourceTable, targetTable string) (*domain.MappingSet, error)
	TransitionFn func(ctx context.Context, sessionID, id, fromState, toState string, decidedAt *time.Time) error

	mu   sync.Mutex
	sets map[string]*domain.MappingSet
	// order of creation, newest last, for GetLatest.
	created []string
}

// Create implements the interface method for testing.
func (m *MockMappingSetRepo) Create(ctx context.Context, s *domain.MappingSet) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets == nil {
		m.sets = map[string]*domain.MappingSet{}
	}
	if _, ok := m.sets[s.ID]; ok {
		return domain.ErrConflict("mapping set %q already exists", s.ID)
	}
	cp := *s
	m.sets[s.ID] = &cp
	m.created = append(m.created, s.ID)
	return nil
}

// Update implements the interface method for testing.
func (m *MockMappingSetRepo) Update(ctx context.Context, s *domain.MappingSet) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[s.ID]; !ok {
		return domain.ErrNotFound("mapping set %q not found", s.ID)
	}
	cp := *s
	m.sets[s.ID] = &cp
	return nil
}

// GetByID implements the interface method for testing.
func (m *MockMappingSetRepo) GetByID(ctx context.Context, sessionID, id string) (*domain.MappingSet, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, sessionID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[id]
	if !ok || s.SessionID != sessionID {
		return nil, domain.ErrNotFound("mapping set %q not found", id)
	}
	cp := *s
	return &cp, nil
}

// GetLatest implements the interface method for testing.
func (m *MockMappingSetRepo) GetLatest(ctx context.Context, sessionID, sourceTable, targetTable string) (*domain.MappingSet, error) {
	if m.GetLatestFn != nil {
		return m.GetLatestFn(ctx, sessionID, sourceTable, targetTable)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.created) - 1; i >= 0; i-- {
		s := m.sets[m.created[i]]
		if s.SessionID == sessionID && s.SourceTable == sourceTable && s.TargetTable == targetTable {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("no mapping set for %s -> %s", sourceTable, targetTable)
}

// Transition implements the interface method for testing.
func (m *MockMappingSetRepo) Transition(ctx context.Context, sessionID, id, fromState, toState string, decidedAt *time.Time) error {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, sessionID, id, fromState, toState, decidedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[id]
	if !ok || s.SessionID != sessionID {
		return domain.ErrNotFound("mapping set %q not found", id)
	}
	if s.State != fromState {
		return domain.ErrConflict("mapping set %q is %s, expected %s", id, s.State, fromState)
	}
	s.State = toState
	s.DecidedAt = decidedAt
	return nil
}

var _ domain.MappingSetRepository = (*MockMappingSetRepo)(nil)

// === Token Repository Mock ===

// MockTokenRepo implements domain.TokenRepository backed by a map.
type MockTokenRepo struct {
	InsertFn  func(ctx context.Context, t *domain.ExecutionToken) error
	GetByIDFn func(ctx context.Context, id string) (*domain.ExecutionToken, error)
	ConsumeFn func(ctx context.Context, id string) error

	mu     sync.Mutex
	tokens map[string]*domain.ExecutionToken
}

// Insert implements the interface method for testing.
func (m *MockTokenRepo) Insert(ctx context.Context, t *domain.ExecutionToken) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]*domain.ExecutionToken{}
	}
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

// GetByID implements the interface method for testing.
func (m *MockTokenRepo) GetByID(ctx context.Context, id string) (*domain.ExecutionToken, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, domain.ErrNotFound("execution token %q not found", id)
	}
	cp := *t
	return &cp, nil
}

// Consume implements the interface method for testing.
func (m *MockTokenRepo) Consume(ctx context.Context, id string) error {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return domain.ErrNotFound("execution token %q not found", id)
	}
	if t.Consumed {
		return &domain.TokenInvalidError{TokenID: id, Reason: "token already consumed"}
	}
	t.Consumed = true
	return nil
}

var _ domain.TokenRepository = (*MockTokenRepo)(nil)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository, collecting appended events
// for assertions.
type MockAuditRepo struct {
	AppendFn func(ctx context.Context, e *domain.AuditEvent) error
	ListFn   func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error)

	mu     sync.Mutex
	Events []*domain.AuditEvent
}

// Append implements the interface method for testing.
func (m *MockAuditRepo) Append(ctx context.Context, e *domain.AuditEvent) error {
	if m.AppendFn != nil {
		if err := m.AppendFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

// List implements the interface method for testing.
func (m *MockAuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockAuditRepo.List")
}

// LastEvent returns the last collected audit event, or nil if none.
func (m *MockAuditRepo) LastEvent() *domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Events) == 0 {
		return nil
	}
	return m.Events[len(m.Events)-1]
}

// HasAction returns true if any collected event has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.Action == action {
			return true
		}
	}
	return false
}

var _ domain.AuditRepository = (*MockAuditRepo)(nil)

// === Warehouse Mock ===

// MockWarehouse implements domain.Warehouse with function fields.
type MockWarehouse struct {
	GetTableColumnsFn func(ctx context.Context, dataset, table string) ([]domain.ColumnDescriptor, error)
	ListTablesFn      func(ctx context.Context, dataset string) ([]string, error)
	SampleRowsFn      func(ctx context.Context, dataset, table string, limit int) ([]string, [][]interface{}, error)
	DryRunQueryFn     func(ctx context.Context, sqlText string) (*domain.DryRunResult, error)
	RunQueryFn        func(ctx context.Context, sqlText string) (*domain.ExecutionResult, error)
}

// GetTableColumns implements the interface method for testing.
func (m *MockWarehouse) GetTableColumns(ctx context.Context, dataset, table string) ([]domain.ColumnDescriptor, error) {
	if m.GetTableColumnsFn != nil {
		return m.GetTableColumnsFn(ctx, dataset, table)
	}
	panic("unexpected call to MockWarehouse.GetTableColumns")
}

// ListTables implements the interface method for testing.
func (m *MockWarehouse) ListTables(ctx context.Context, dataset string) ([]string, error) {
	if m.ListTablesFn != nil {
		return m.ListTablesFn(ctx, dataset)
	}
	panic("unexpected call to MockWarehouse.ListTables")
}

// SampleRows implements the interface method for testing.
func (m *MockWarehouse) SampleRows(ctx context.Context, dataset, table string, limit int) ([]string, [][]interface{}, error) {
	if m.SampleRowsFn != nil {
		return m.SampleRowsFn(ctx, dataset, table, limit)
	}
	panic("unexpected call to MockWarehouse.SampleRows")
}

// DryRunQuery implements the interface method for testing.
func (m *MockWarehouse) DryRunQuery(ctx context.Context, sqlText string) (*domain.DryRunResult, error) {
	if m.DryRunQueryFn != nil {
		return m.DryRunQueryFn(ctx, sqlText)
	}
	panic("unexpected call to MockWarehouse.DryRunQuery")
}

// RunQuery implements the interface method for testing.
func (m *MockWarehouse) RunQuery(ctx context.Context, sqlText string) (*domain.ExecutionResult, error) {
	if m.RunQueryFn != nil {
		return m.RunQueryFn(ctx, sqlText)
	}
	panic("unexpected call to MockWarehouse.RunQuery")
}

var _ domain.Warehouse = (*MockWarehouse)(nil)

// === Deterministic Clock and ID Generator ===

// FixedClock returns a preset time, advanceable from tests.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock returns a clock pinned at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now implements domain.Clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var _ domain.Clock = (*FixedClock)(nil)

// SeqIDGenerator yields id-1, id-2, ... for stable assertions.
type SeqIDGenerator struct {
	mu sync.Mutex
	n  int
}

// New implements domain.IDGenerator.
func (g *SeqIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

var _ domain.IDGenerator = (*SeqIDGenerator)(nil)
