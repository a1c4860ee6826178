// Package snapshot captures warehouse schemas into immutable per-session
// snapshots. A snapshot is the ground truth every later mapping and
// validation step checks against.
package snapshot

import (
	"context"

	"schemabridge/internal/domain"
	"schemabridge/internal/service/auditutil"
	"schemabridge/internal/sqlsafe"
)

// Sample row limits.
const (
	defaultSampleLimit = 10
	maxSampleLimit     = 100
)

// Service captures and serves schema snapshots.
type Service struct {
	warehouse domain.Warehouse
	snapshots domain.SnapshotRepository
	audit     domain.AuditRepository
	clock     domain.Clock
}

// NewService creates a snapshot Service.
func NewService(warehouse domain.Warehouse, snapshots domain.SnapshotRepository, audit domain.AuditRepository, clock domain.Clock) *Service {
	return &Service{
		warehouse: warehouse,
		snapshots: snapshots,
		audit:     audit,
		clock:     clock,
	}
}

// Capture introspects every table of the dataset and stores the result,
// replacing any previous snapshot for the session wholesale. Snapshots never
// refresh implicitly; callers re-capture when they want current state.
func (s *Service) Capture(ctx context.Context, sessionID, dataset string) (*domain.SchemaSnapshot, error) {
	if err := sqlsafe.ValidateIdentifier(dataset); err != nil {
		return nil, err
	}

	tables, err := s.warehouse.ListTables(ctx, dataset)
	if err != nil {
		return nil, err
	}

	snap := &domain.SchemaSnapshot{
		SessionID:   sessionID,
		DatasetName: dataset,
		CapturedAt:  s.clock.Now().UTC(),
	}
	for _, table := range tables {
		cols, err := s.warehouse.GetTableColumns(ctx, dataset, table)
		if err != nil {
			return nil, err
		}
		snap.Tables = append(snap.Tables, domain.TableSchema{Name: table, Columns: cols})
	}

	if err := s.snapshots.Put(ctx, snap); err != nil {
		return nil, err
	}

	auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventSchemaAccess, "SCHEMA_CAPTURED", domain.RiskLow, map[string]interface{}{
		"dataset":     dataset,
		"table_count": len(snap.Tables),
	}))
	return snap, nil
}

// Get returns the captured snapshot for a dataset.
func (s *Service) Get(ctx context.Context, sessionID, dataset string) (*domain.SchemaSnapshot, error) {
	return s.snapshots.Get(ctx, sessionID, dataset)
}

// Sample reads up to limit rows from a captured table for preview. The table
// must appear in the session's snapshot: sampling is gated on the same ground
// truth as mapping, so a fabricated table name fails before touching the
// warehouse.
func (s *Service) Sample(ctx context.Context, sessionID, dataset, table string, limit int) ([]string, [][]interface{}, error) {
	if err := sqlsafe.ValidateIdentifier(dataset); err != nil {
		return nil, nil, err
	}
	if err := sqlsafe.ValidateIdentifier(table); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	if limit > maxSampleLimit {
		limit = maxSampleLimit
	}

	snap, err := s.snapshots.Get(ctx, sessionID, dataset)
	if err != nil {
		return nil, nil, err
	}
	if snap.Table(table) == nil {
		auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventSecurity, "SAMPLE_BLOCKED", domain.RiskMedium, map[string]interface{}{
			"dataset": dataset,
			"table":   table,
			"reason":  "table not in captured schema",
		}))
		return nil, nil, domain.ErrNotFound("table %q not found in captured schema for dataset %q", table, dataset)
	}

	cols, rows, err := s.warehouse.SampleRows(ctx, dataset, table, limit)
	if err != nil {
		return nil, nil, err
	}

	auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventSchemaAccess, "SAMPLE_ROWS_READ", domain.RiskLow, map[string]interface{}{
		"dataset":   dataset,
		"table":     table,
		"row_count": len(rows),
	}))
	return cols, rows, nil
}
