package transform

import (
	"context"

	"schemabridge/internal/domain"
	"schemabridge/internal/service/auditutil"
)

// Service is the SQL generation entry point: it resolves the approved mapping
// set and the target's captured schema, then delegates to the Generator.
type Service struct {
	snapshots domain.SnapshotRepository
	sets      domain.MappingSetRepository
	audit     domain.AuditRepository
	gen       *Generator
}

// NewService creates a transform Service.
func NewService(snapshots domain.SnapshotRepository, sets domain.MappingSetRepository, audit domain.AuditRepository, gen *Generator) *Service {
	return &Service{
		snapshots: snapshots,
		sets:      sets,
		audit:     audit,
		gen:       gen,
	}
}

// GenerateSQL renders an INSERT or MERGE statement for an approved mapping
// set. The target column order comes from the captured snapshot, not from the
// set, so columns the scorer never saw still appear in the statement.
func (s *Service) GenerateSQL(ctx context.Context, sessionID, setID, mode, keyColumn string) (*domain.GeneratedSQL, error) {
	set, err := s.sets.GetByID(ctx, sessionID, setID)
	if err != nil {
		return nil, err
	}

	targetSnap, err := s.snapshots.Get(ctx, sessionID, set.TargetDataset)
	if err != nil {
		return nil, err
	}
	target := targetSnap.Table(set.TargetTable)
	if target == nil {
		return nil, domain.ErrNotFound("target table %q not found in captured schema for dataset %q", set.TargetTable, set.TargetDataset)
	}

	out, err := s.gen.Generate(GenerateInput{
		Set:       set,
		Target:    target,
		Mode:      mode,
		KeyColumn: keyColumn,
	})
	if err != nil {
		return nil, err
	}

	auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventSQLGeneration, "SQL_GENERATED", domain.RiskMedium, map[string]interface{}{
		"mapping_set_id": setID,
		"mode":           mode,
		"fingerprint":    out.Fingerprint,
		"risk_notes":     out.RiskNotes,
	}))
	return out, nil
}
