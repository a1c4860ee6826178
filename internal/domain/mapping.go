package domain

import "time"

// Match methods recorded on a MappingCandidate.
const (
	MatchExact        = "EXACT"
	MatchPartial      = "PARTIAL"
	MatchSemanticHint = "SEMANTIC_HINT"
)

// Mapping set lifecycle states. Approval is terminal and session-scoped;
// once approved the set is frozen for SQL generation.
const (
	SetSuggested = "SUGGESTED"
	SetReviewed  = "REVIEWED"
	SetApproved  = "APPROVED"
	SetRejected  = "REJECTED"
)

// Decision values accepted by RecordDecision.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// Reasons recorded on rejected candidates.
const (
	// RejectReasonHallucinated marks candidates dropped by the hallucination guard.
	RejectReasonHallucinated = "hallucinated_column"
	// RejectReasonLowConfidence marks candidates dropped by the risk classifier.
	RejectReasonLowConfidence = "below_confidence_threshold"
)

// MappingCandidate is one proposed source-column-to-target-column
// correspondence. Explanation is a hard contract: it is the sole
// audit artifact for why the mapping was suggested.
type MappingCandidate struct {
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	SourceType   string `json:"source_type,omitempty"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
	TargetType   string `json:"target_type,omitempty"`
	Confidence   int    `json:"confidence"` // 0–100
	MatchMethod  string `json:"match_method"`
	Transform    string `json:"transform,omitempty"` // minimal SQL cast expression, "{source}" placeholder
	Explanation  string `json:"explanation"`
	RejectReason string `json:"reject_reason,omitempty"`
	RiskNote     string `json:"risk_note,omitempty"`
}

// MappingSet is an ordered sequence of candidates for one (source table,
// target table) pair, plus the target columns no rule could map.
type MappingSet struct {
	ID             string             `json:"id"`
	SessionID      string             `json:"session_id"`
	SourceDataset  string             `json:"source_dataset"`
	SourceTable    string             `json:"source_table"`
	TargetDataset  string             `json:"target_dataset"`
	TargetTable    string             `json:"target_table"`
	Candidates     []MappingCandidate `json:"candidates"`
	Rejected       []MappingCandidate `json:"rejected,omitempty"`
	UnmappedTarget []string           `json:"unmapped_target,omitempty"`
	State          string             `json:"state"`
	CreatedAt      time.Time          `json:"created_at"`
	ClassifiedAt   *time.Time         `json:"classified_at,omitempty"`
	DecidedAt      *time.Time         `json:"decided_at,omitempty"`
}

// AverageConfidence returns the mean candidate confidence, or 0 for an empty set.
func (m *MappingSet) AverageConfidence() int {
	if len(m.Candidates) == 0 {
		return 0
	}
	sum := 0
	for _, c := range m.Candidates {
		sum += c.Confidence
	}
	return sum / len(m.Candidates)
}

// HasTransform reports whether any candidate carries a cast expression.
func (m *MappingSet) HasTransform() bool {
	for _, c := range m.Candidates {
		if c.Transform != "" {
			return true
		}
	}
	return false
}

// Decided reports whether the set has reached a terminal state.
func (m *MappingSet) Decided() bool {
	return m.State == SetApproved || m.State == SetRejected
}

// Classifier recommendations.
const (
	RecommendAutoApprove = "AUTO_APPROVE"
	RecommendHumanReview = "HUMAN_REVIEW_REQUIRED"
)

// ConfidenceAnalysis is the risk classifier's verdict over a mapping set.
type ConfidenceAnalysis struct {
	AutoApproved   []MappingCandidate `json:"auto_approved"`
	NeedsReview    []MappingCandidate `json:"needs_review"`
	Rejected       []MappingCandidate `json:"rejected"`
	OverallRisk    string             `json:"overall_risk"`
	Recommendation string             `json:"recommendation"`
}

// MappingDrift reports a source-column change between two suggestions for the
// same target column. Used to detect scorer inconsistency across re-runs.
type MappingDrift struct {
	TargetColumn   string `json:"target_column"`
	PreviousSource string `json:"previous_source"`
	NewSource      string `json:"new_source"`
}
