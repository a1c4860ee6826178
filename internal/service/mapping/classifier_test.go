package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/config"
	"schemabridge/internal/domain"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier(config.DefaultThresholds())

	t.Run("buckets_by_confidence", func(t *testing.T) {
		set := &domain.MappingSet{
			Candidates: []domain.MappingCandidate{
				{TargetColumn: "a", Confidence: 95},
				{TargetColumn: "b", Confidence: 80}, // boundary: review, not auto
				{TargetColumn: "c", Confidence: 55},
				{TargetColumn: "d", Confidence: 40}, // boundary: review, not reject
				{TargetColumn: "e", Confidence: 39},
			},
		}
		out := classifier.Classify(set, ClassifyInput{Operation: OpSuggest})
		require.Len(t, out.AutoApproved, 1)
		assert.Equal(t, "a", out.AutoApproved[0].TargetColumn)
		require.Len(t, out.NeedsReview, 3)
		require.Len(t, out.Rejected, 1)
		assert.Equal(t, "e", out.Rejected[0].TargetColumn)
		assert.Equal(t, domain.RecommendHumanReview, out.Recommendation)
	})

	t.Run("high_confidence_suggest_auto_approves", func(t *testing.T) {
		set := &domain.MappingSet{
			Candidates: []domain.MappingCandidate{
				{TargetColumn: "a", Confidence: 95},
				{TargetColumn: "b", Confidence: 90},
			},
		}
		out := classifier.Classify(set, ClassifyInput{Operation: OpSuggest})
		assert.Equal(t, domain.RiskLow, out.OverallRisk)
		assert.Equal(t, domain.RecommendAutoApprove, out.Recommendation)
	})

	t.Run("cast_escalates_to_medium", func(t *testing.T) {
		set := &domain.MappingSet{
			Candidates: []domain.MappingCandidate{
				{TargetColumn: "a", Confidence: 95, Transform: "CAST({source} AS BIGINT)"},
			},
		}
		out := classifier.Classify(set, ClassifyInput{Operation: OpSuggest})
		assert.Equal(t, domain.RiskMedium, out.OverallRisk)
		assert.Equal(t, domain.RecommendHumanReview, out.Recommendation)
	})

	t.Run("execute_is_high_risk", func(t *testing.T) {
		set := &domain.MappingSet{
			Candidates: []domain.MappingCandidate{{TargetColumn: "a", Confidence: 95}},
		}
		out := classifier.Classify(set, ClassifyInput{Operation: OpExecute})
		assert.Equal(t, domain.RiskHigh, out.OverallRisk)
		assert.Equal(t, domain.RecommendHumanReview, out.Recommendation)
	})

	t.Run("multi_table_execute_is_critical", func(t *testing.T) {
		set := &domain.MappingSet{
			Candidates: []domain.MappingCandidate{{TargetColumn: "a", Confidence: 95}},
		}
		out := classifier.Classify(set, ClassifyInput{Operation: OpExecute, MultiTable: true})
		assert.Equal(t, domain.RiskCritical, out.OverallRisk)
	})

	t.Run("every_bucketed_candidate_has_risk_note", func(t *testing.T) {
		set := &domain.MappingSet{
			Candidates: []domain.MappingCandidate{
				{TargetColumn: "a", Confidence: 95},
				{TargetColumn: "b", Confidence: 55},
				{TargetColumn: "c", Confidence: 10},
			},
		}
		out := classifier.Classify(set, ClassifyInput{Operation: OpSuggest})
		for _, bucket := range [][]domain.MappingCandidate{out.AutoApproved, out.NeedsReview, out.Rejected} {
			for _, c := range bucket {
				assert.NotEmpty(t, c.RiskNote, "candidate %s", c.TargetColumn)
			}
		}
	})
}
