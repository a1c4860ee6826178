package mapping

import (
	"fmt"

	"schemabridge/internal/config"
	"schemabridge/internal/domain"
)

// Operation kinds considered by the risk classifier.
const (
	OpSuggest = "SUGGEST" // read-only suggestion
	OpExecute = "EXECUTE" // writes to the warehouse
)

// Classifier buckets candidates into confidence tiers and derives an overall
// risk level and recommendation. It is the single source of truth for the
// threshold constants — no other component branches on confidence values.
type Classifier struct {
	thresholds config.Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(t config.Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// ClassifyInput describes the operation being classified beyond the mapping
// set itself.
type ClassifyInput struct {
	Operation    string
	MultiTable   bool
	Irreversible bool
}

// Classify buckets each candidate and computes the overall verdict.
// Candidates below the reject threshold are excluded from the set presented
// to the human. The recommendation is AUTO_APPROVE only when nothing needs
// review, nothing was rejected, and overall risk is LOW.
func (c *Classifier) Classify(set *domain.MappingSet, in ClassifyInput) *domain.ConfidenceAnalysis {
	out := &domain.ConfidenceAnalysis{
		AutoApproved: []domain.MappingCandidate{},
		NeedsReview:  []domain.MappingCandidate{},
		Rejected:     []domain.MappingCandidate{},
	}

	hasCast := false
	for _, cand := range set.Candidates {
		if cand.Transform != "" {
			hasCast = true
		}
		switch {
		case cand.Confidence > c.thresholds.AutoApproveAbove:
			cand.RiskNote = fmt.Sprintf("confidence %d exceeds auto-approval threshold %d",
				cand.Confidence, c.thresholds.AutoApproveAbove)
			out.AutoApproved = append(out.AutoApproved, cand)
		case cand.Confidence >= c.thresholds.RejectBelow:
			cand.RiskNote = fmt.Sprintf("confidence %d within human review band [%d, %d]",
				cand.Confidence, c.thresholds.RejectBelow, c.thresholds.AutoApproveAbove)
			out.NeedsReview = append(out.NeedsReview, cand)
		default:
			cand.RiskNote = fmt.Sprintf("confidence %d below rejection threshold %d",
				cand.Confidence, c.thresholds.RejectBelow)
			out.Rejected = append(out.Rejected, cand)
		}
	}

	out.OverallRisk = c.overallRisk(in, hasCast, len(out.NeedsReview) > 0)

	if len(out.NeedsReview) == 0 && len(out.Rejected) == 0 && out.OverallRisk == domain.RiskLow {
		out.Recommendation = domain.RecommendAutoApprove
	} else {
		out.Recommendation = domain.RecommendHumanReview
	}
	return out
}

// overallRisk escalates the risk level; it never de-escalates.
func (c *Classifier) overallRisk(in ClassifyInput, hasCast, hasReview bool) string {
	risk := domain.RiskLow
	if hasCast || hasReview {
		risk = domain.RiskMedium
	}
	if in.Operation == OpExecute {
		risk = domain.RiskHigh
	}
	if in.MultiTable || in.Irreversible {
		risk = domain.RiskCritical
	}
	return risk
}
