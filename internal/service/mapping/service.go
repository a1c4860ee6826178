package mapping

import (
	"context"
	"strings"

	"schemabridge/internal/domain"
	"schemabridge/internal/service/auditutil"
	"schemabridge/internal/sqlsafe"
)

// Service drives the mapping lifecycle: suggest, validate, classify, decide.
// Mapping-set transitions are a single-writer state machine — conflicting
// transitions on the same set fail with a ConflictError instead of
// interleaving.
type Service struct {
	snapshots domain.SnapshotRepository
	sets      domain.MappingSetRepository
	audit     domain.AuditRepository
	clock     domain.Clock
	ids       domain.IDGenerator

	scorer     *Scorer
	validator  *Validator
	classifier *Classifier
}

// NewService creates a mapping Service.
func NewService(snapshots domain.SnapshotRepository, sets domain.MappingSetRepository, audit domain.AuditRepository, clock domain.Clock, ids domain.IDGenerator, scorer *Scorer, validator *Validator, classifier *Classifier) *Service {
	return &Service{
		snapshots:  snapshots,
		sets:       sets,
		audit:      audit,
		clock:      clock,
		ids:        ids,
		scorer:     scorer,
		validator:  validator,
		classifier: classifier,
	}
}

// SuggestRequest names the table pair to map.
type SuggestRequest struct {
	SessionID     string
	SourceDataset string
	SourceTable   string
	TargetDataset string
	TargetTable   string
}

// SuggestResult is a suggested mapping set plus summary statistics and any
// drift against the previously suggested set for the same pair.
type SuggestResult struct {
	Set               *domain.MappingSet    `json:"set"`
	MappedCount       int                   `json:"mapped_count"`
	UnmappedCount     int                   `json:"unmapped_count"`
	AverageConfidence int                   `json:"average_confidence"`
	Drift             []domain.MappingDrift `json:"drift,omitempty"`
}

// Suggest scores the table pair against the captured snapshots and persists a
// new SUGGESTED mapping set. Both snapshots must have been captured first.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	for _, name := range []string{req.SourceDataset, req.SourceTable, req.TargetDataset, req.TargetTable} {
		if err := sqlsafe.ValidateIdentifier(name); err != nil {
			return nil, err
		}
	}

	sourceSnap, err := s.snapshots.Get(ctx, req.SessionID, req.SourceDataset)
	if err != nil {
		return nil, err
	}
	targetSnap, err := s.snapshots.Get(ctx, req.SessionID, req.TargetDataset)
	if err != nil {
		return nil, err
	}

	source := sourceSnap.Table(req.SourceTable)
	if source == nil {
		return nil, domain.ErrNotFound("source table %q not found in captured schema for dataset %q", req.SourceTable, req.SourceDataset)
	}
	target := targetSnap.Table(req.TargetTable)
	if target == nil {
		return nil, domain.ErrNotFound("target table %q not found in captured schema for dataset %q", req.TargetTable, req.TargetDataset)
	}

	candidates, unmapped := s.scorer.Suggest(source, target)

	// Drift check against the previously suggested set for this pair.
	var drift []domain.MappingDrift
	if prev, err := s.sets.GetLatest(ctx, req.SessionID, req.SourceTable, req.TargetTable); err == nil && prev != nil {
		drift = detectDrift(prev.Candidates, candidates)
	}

	set := &domain.MappingSet{
		ID:             s.ids.New(),
		SessionID:      req.SessionID,
		SourceDataset:  req.SourceDataset,
		SourceTable:    req.SourceTable,
		TargetDataset:  req.TargetDataset,
		TargetTable:    req.TargetTable,
		Candidates:     candidates,
		UnmappedTarget: unmapped,
		State:          domain.SetSuggested,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.sets.Create(ctx, set); err != nil {
		return nil, err
	}

	auditutil.Append(ctx, s.audit, auditutil.Event(req.SessionID, domain.EventMapping, "MAPPINGS_SUGGESTED", domain.RiskLow, map[string]interface{}{
		"mapping_set_id": set.ID,
		"source_table":   req.SourceTable,
		"target_table":   req.TargetTable,
		"mapped_count":   len(candidates),
		"unmapped_count": len(unmapped),
		"avg_confidence": set.AverageConfidence(),
	}))
	if len(drift) > 0 {
		auditutil.Append(ctx, s.audit, auditutil.Event(req.SessionID, domain.EventConsistency, "MAPPING_DRIFT_DETECTED", domain.RiskMedium, map[string]interface{}{
			"mapping_set_id": set.ID,
			"drift_count":    len(drift),
		}))
	}

	return &SuggestResult{
		Set:               set,
		MappedCount:       len(candidates),
		UnmappedCount:     len(unmapped),
		AverageConfidence: set.AverageConfidence(),
		Drift:             drift,
	}, nil
}

// Validate runs the hallucination guard over a suggested set, moving failing
// candidates into the set's rejected history and advancing it to REVIEWED.
func (s *Service) Validate(ctx context.Context, sessionID, setID string) (*domain.MappingSet, []domain.MappingCandidate, error) {
	set, err := s.sets.GetByID(ctx, sessionID, setID)
	if err != nil {
		return nil, nil, err
	}
	if set.Decided() {
		return nil, nil, domain.ErrConflict("mapping set %s is already %s", setID, set.State)
	}

	sourceSnap, err := s.snapshots.Get(ctx, sessionID, set.SourceDataset)
	if err != nil {
		return nil, nil, err
	}
	targetSnap, err := s.snapshots.Get(ctx, sessionID, set.TargetDataset)
	if err != nil {
		return nil, nil, err
	}

	valid, cleaned, rejected := s.validator.Validate(set, sourceSnap, targetSnap)

	set.Candidates = cleaned
	set.Rejected = append(set.Rejected, rejected...)
	set.State = domain.SetReviewed
	if err := s.sets.Update(ctx, set); err != nil {
		return nil, nil, err
	}

	if len(rejected) > 0 {
		auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventValidation, "HALLUCINATION_DETECTED", domain.RiskMedium, map[string]interface{}{
			"mapping_set_id": setID,
			"rejected_count": len(rejected),
		}))
	}

	if !valid {
		return set, rejected, &domain.HallucinationError{
			Message: "no candidates survived validation: every proposed mapping referenced nonexistent columns",
		}
	}
	return set, rejected, nil
}

// Classify runs the risk classifier over a validated set and records the
// verdict. Candidates below the rejection threshold are moved into the set's
// rejected history, and the set is stamped as classified; a decision cannot
// be recorded until this has run.
func (s *Service) Classify(ctx context.Context, sessionID, setID string) (*domain.ConfidenceAnalysis, error) {
	set, err := s.sets.GetByID(ctx, sessionID, setID)
	if err != nil {
		return nil, err
	}
	if set.Decided() {
		return nil, domain.ErrConflict("mapping set %s is already %s", setID, set.State)
	}
	if set.State != domain.SetReviewed {
		return nil, domain.ErrConflict("mapping set %s is %s, it must be validated before classification", setID, set.State)
	}

	analysis := s.classifier.Classify(set, ClassifyInput{Operation: OpSuggest})

	if len(analysis.Rejected) > 0 {
		dropped := make(map[string]bool, len(analysis.Rejected))
		for _, cand := range analysis.Rejected {
			dropped[cand.SourceColumn+"\x00"+cand.TargetColumn] = true
			cand.RejectReason = domain.RejectReasonLowConfidence
			set.Rejected = append(set.Rejected, cand)
		}
		kept := set.Candidates[:0]
		for _, cand := range set.Candidates {
			if !dropped[cand.SourceColumn+"\x00"+cand.TargetColumn] {
				kept = append(kept, cand)
			}
		}
		set.Candidates = kept
	}
	classifiedAt := s.clock.Now().UTC()
	set.ClassifiedAt = &classifiedAt
	if err := s.sets.Update(ctx, set); err != nil {
		return nil, err
	}

	auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventMapping, "MAPPINGS_CLASSIFIED", analysis.OverallRisk, map[string]interface{}{
		"mapping_set_id": setID,
		"auto_approved":  len(analysis.AutoApproved),
		"needs_review":   len(analysis.NeedsReview),
		"rejected":       len(analysis.Rejected),
		"recommendation": analysis.Recommendation,
	}))
	return analysis, nil
}

// RecordDecision applies the human decision. Only a REVIEWED set that has
// been through classification can be decided, so the hallucination guard and
// risk classifier cannot be skipped. Approval is terminal — the set is frozen
// for SQL generation. Deciding an already-decided set is a conflict.
func (s *Service) RecordDecision(ctx context.Context, sessionID, setID, decision string) (*domain.MappingSet, error) {
	decision = strings.ToUpper(strings.TrimSpace(decision))
	if decision != domain.DecisionApproved && decision != domain.DecisionRejected {
		return nil, domain.ErrValidation("decision must be APPROVED or REJECTED, got %q", decision)
	}

	set, err := s.sets.GetByID(ctx, sessionID, setID)
	if err != nil {
		return nil, err
	}
	if set.Decided() {
		return nil, domain.ErrConflict("mapping set %s is already %s", setID, set.State)
	}
	if set.State != domain.SetReviewed {
		return nil, domain.ErrConflict("mapping set %s is %s, it must be validated before a decision", setID, set.State)
	}
	if set.ClassifiedAt == nil {
		return nil, domain.ErrConflict("mapping set %s has not been classified, a decision requires a risk verdict", setID)
	}

	toState := domain.SetApproved
	action := "MAPPINGS_APPROVED"
	if decision == domain.DecisionRejected {
		toState = domain.SetRejected
		action = "MAPPINGS_REJECTED"
	}

	decidedAt := s.clock.Now().UTC()
	if err := s.sets.Transition(ctx, sessionID, setID, set.State, toState, &decidedAt); err != nil {
		return nil, err
	}
	set.State = toState
	set.DecidedAt = &decidedAt

	auditutil.Append(ctx, s.audit, auditutil.Event(sessionID, domain.EventMapping, action, domain.RiskLow, map[string]interface{}{
		"mapping_set_id": setID,
		"source_table":   set.SourceTable,
		"target_table":   set.TargetTable,
		"mapped_count":   len(set.Candidates),
		"avg_confidence": set.AverageConfidence(),
	}))
	return set, nil
}

// GetSet returns a mapping set by id.
func (s *Service) GetSet(ctx context.Context, sessionID, setID string) (*domain.MappingSet, error) {
	return s.sets.GetByID(ctx, sessionID, setID)
}

// detectDrift reports target columns whose proposed source column changed
// between two suggestion runs.
func detectDrift(previous, current []domain.MappingCandidate) []domain.MappingDrift {
	prev := make(map[string]string, len(previous))
	for _, c := range previous {
		prev[c.TargetColumn] = c.SourceColumn
	}

	var drift []domain.MappingDrift
	for _, c := range current {
		if old, ok := prev[c.TargetColumn]; ok && old != c.SourceColumn {
			drift = append(drift, domain.MappingDrift{
				TargetColumn:   c.TargetColumn,
				PreviousSource: old,
				NewSource:      c.SourceColumn,
			})
		}
	}
	return drift
}
