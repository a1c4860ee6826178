// Package mapping implements column mapping suggestion, hallucination
// guarding, and risk classification over captured schema snapshots.
package mapping

import (
	"fmt"
	"strings"

	"schemabridge/internal/config"
	"schemabridge/internal/domain"
)

// Affixes stripped by the third matching rule. A suffix is only stripped when
// BOTH names carry it, so borrower_id never pairs with borrower_key.
var (
	strippablePrefixes = []string{"src_", "tgt_", "dim_", "fact_", "stg_"}
	strippableSuffixes = []string{"_id", "_key", "_code", "_date", "_amt", "_amount"}
)

// Scorer proposes column mappings between a source and a target table.
// Scoring is pure and deterministic: the same two schemas always produce
// byte-identical output. Candidate evaluation walks target columns in schema
// order and, within each rule tier, source columns in schema order.
type Scorer struct {
	policy config.ScoringPolicy
}

// NewScorer creates a Scorer with the given scoring policy.
func NewScorer(policy config.ScoringPolicy) *Scorer {
	return &Scorer{policy: policy}
}

// Suggest proposes a best-candidate mapping per target column. Target columns
// no rule can map are returned in the unmapped list. Every candidate carries a
// non-empty explanation naming the rule that fired.
func (s *Scorer) Suggest(source, target *domain.TableSchema) (candidates []domain.MappingCandidate, unmapped []string) {
	for _, tcol := range target.Columns {
		cand := s.bestCandidate(source, target.Name, tcol)
		if cand == nil {
			unmapped = append(unmapped, tcol.Name)
			continue
		}
		candidates = append(candidates, *cand)
	}
	return candidates, unmapped
}

// bestCandidate evaluates the matching rules in tie-broken order and stops at
// the first rule that fires.
func (s *Scorer) bestCandidate(source *domain.TableSchema, targetTable string, tcol domain.ColumnDescriptor) *domain.MappingCandidate {
	// Rule 1: exact name match (case-insensitive).
	for _, scol := range source.Columns {
		if strings.EqualFold(scol.Name, tcol.Name) {
			return s.finish(source.Name, scol, targetTable, tcol,
				s.policy.ExactScore, domain.MatchExact,
				fmt.Sprintf("exact name match: %q = %q (case-insensitive)", scol.Name, tcol.Name))
		}
	}

	// Rule 2: substring match after separator normalization.
	for _, scol := range source.Columns {
		if containsEither(normalize(scol.Name), normalize(tcol.Name)) {
			return s.finish(source.Name, scol, targetTable, tcol,
				s.policy.PartialScore, domain.MatchPartial,
				fmt.Sprintf("partial name match: %q and %q share a common substring", scol.Name, tcol.Name))
		}
	}

	// Rule 3: retry exact/partial after stripping common affixes, at a
	// reduced score.
	for _, scol := range source.Columns {
		sn, tn := stripAffixes(scol.Name, tcol.Name)
		switch {
		case sn == tn:
			return s.finish(source.Name, scol, targetTable, tcol,
				s.policy.ExactScore-s.policy.StripPenalty, domain.MatchSemanticHint,
				fmt.Sprintf("names match after stripping common affixes: %q ~ %q", scol.Name, tcol.Name))
		case containsEither(sn, tn):
			return s.finish(source.Name, scol, targetTable, tcol,
				s.policy.PartialScore-s.policy.StripPenalty, domain.MatchSemanticHint,
				fmt.Sprintf("partial match after stripping common affixes: %q ~ %q", scol.Name, tcol.Name))
		}
	}

	return nil
}

// finish applies the type compatibility adjustment, clamps the score, and
// assembles the candidate.
func (s *Scorer) finish(sourceTable string, scol domain.ColumnDescriptor, targetTable string, tcol domain.ColumnDescriptor, confidence int, method, reason string) *domain.MappingCandidate {
	cand := &domain.MappingCandidate{
		SourceTable:  sourceTable,
		SourceColumn: scol.Name,
		SourceType:   scol.DataType,
		TargetTable:  targetTable,
		TargetColumn: tcol.Name,
		TargetType:   tcol.DataType,
		Confidence:   confidence,
		MatchMethod:  method,
		Explanation:  reason,
	}

	if !strings.EqualFold(scol.DataType, tcol.DataType) {
		cand.Confidence -= s.policy.TypeMismatchPenalty
		cand.Transform = fmt.Sprintf("CAST({source} AS %s)", tcol.DataType)
		cand.Explanation += fmt.Sprintf("; declared types differ (%s vs %s), cast required",
			scol.DataType, tcol.DataType)
	}

	if cand.Confidence < 0 {
		cand.Confidence = 0
	}
	if cand.Confidence > 100 {
		cand.Confidence = 100
	}
	return cand
}

// normalize lowercases a name and removes separator characters so that
// loan_amount and LoanAmount compare equal.
func normalize(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

// containsEither reports whether either normalized name contains the other.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// stripAffixes removes well-known prefixes from both names, and a suffix only
// when both names end with the same one.
func stripAffixes(a, b string) (string, string) {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	for _, p := range strippablePrefixes {
		a = strings.TrimPrefix(a, p)
		b = strings.TrimPrefix(b, p)
	}
	for _, suf := range strippableSuffixes {
		if strings.HasSuffix(a, suf) && strings.HasSuffix(b, suf) {
			a = strings.TrimSuffix(a, suf)
			b = strings.TrimSuffix(b, suf)
			break
		}
	}
	return a, b
}
