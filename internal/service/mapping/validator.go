package mapping

import (
	"fmt"

	"schemabridge/internal/domain"
)

// Validator is the hallucination guard: it cross-checks every proposed
// candidate against the ground-truth schema snapshot. It is deliberately
// independent of the Scorer's logic — it exists to catch generation bugs and
// future scorers that might fabricate column names.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that every candidate's source and target columns exist in
// the snapshot. Failing candidates move to rejected with reason
// "hallucinated_column" and are excluded from the cleaned set. Partial
// rejection is normal; valid is false only when nothing survives filtering.
func (v *Validator) Validate(set *domain.MappingSet, snapshot, targetSnapshot *domain.SchemaSnapshot) (valid bool, cleaned []domain.MappingCandidate, rejected []domain.MappingCandidate) {
	for _, cand := range set.Candidates {
		if reason := v.check(cand, snapshot, targetSnapshot); reason != "" {
			cand.RejectReason = domain.RejectReasonHallucinated
			cand.RiskNote = reason
			rejected = append(rejected, cand)
			continue
		}
		cleaned = append(cleaned, cand)
	}
	return len(cleaned) > 0, cleaned, rejected
}

// check returns a non-empty description when the candidate references a
// column absent from the snapshot.
func (v *Validator) check(cand domain.MappingCandidate, source, target *domain.SchemaSnapshot) string {
	st := source.Table(cand.SourceTable)
	if st == nil {
		return fmt.Sprintf("source table %q not in captured schema", cand.SourceTable)
	}
	if !st.HasColumn(cand.SourceColumn) {
		return fmt.Sprintf("source column %q does not exist in table %q", cand.SourceColumn, cand.SourceTable)
	}

	tt := target.Table(cand.TargetTable)
	if tt == nil {
		return fmt.Sprintf("target table %q not in captured schema", cand.TargetTable)
	}
	if !tt.HasColumn(cand.TargetColumn) {
		return fmt.Sprintf("target column %q does not exist in table %q", cand.TargetColumn, cand.TargetTable)
	}
	return ""
}
