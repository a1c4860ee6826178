package transform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/domain"
)

func approvedLoanSet() *domain.MappingSet {
	return &domain.MappingSet{
		ID:            "set-1",
		SessionID:     "sess-1",
		SourceDataset: "lending",
		SourceTable:   "loans",
		TargetDataset: "warehouse",
		TargetTable:   "fact_loans",
		State:         domain.SetApproved,
		Candidates: []domain.MappingCandidate{
			{
				SourceTable: "loans", SourceColumn: "loan_id", SourceType: "BIGINT",
				TargetTable: "fact_loans", TargetColumn: "loan_id", TargetType: "BIGINT",
				Confidence: 95, MatchMethod: domain.MatchExact,
				Explanation: `exact name match: "loan_id" = "loan_id" (case-insensitive)`,
			},
			{
				SourceTable: "loans", SourceColumn: "amount", SourceType: "STRING",
				TargetTable: "fact_loans", TargetColumn: "amount", TargetType: "NUMERIC",
				Confidence: 85, MatchMethod: domain.MatchExact,
				Transform:   "CAST({source} AS NUMERIC)",
				Explanation: "exact name match; declared types differ (STRING vs NUMERIC), cast required",
			},
		},
		UnmappedTarget: []string{"loan_key", "load_ts"},
	}
}

func factLoans() *domain.TableSchema {
	return &domain.TableSchema{
		Name: "fact_loans",
		Columns: []domain.ColumnDescriptor{
			{Name: "loan_id", DataType: "BIGINT"},
			{Name: "amount", DataType: "NUMERIC"},
			{Name: "loan_key", DataType: "STRING"},
			{Name: "load_ts", DataType: "TIMESTAMP"},
		},
	}
}

func TestGenerator_Insert(t *testing.T) {
	t.Run("cast_and_confidence_comment", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		out, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeInsert})
		require.NoError(t, err)
		assert.Equal(t, domain.ModeInsert, out.Mode)
		assert.Contains(t, out.StatementText, "CAST(\"amount\" AS NUMERIC)")
		assert.Contains(t, out.StatementText, "-- amount: confidence 85")
		assert.Contains(t, out.StatementText, "-- loan_id: confidence 95")
		assert.Contains(t, out.StatementText, "INSERT INTO \"warehouse\".\"fact_loans\"")
		assert.Contains(t, out.StatementText, "FROM \"lending\".\"loans\";")
		assert.Equal(t, Fingerprint(out.StatementText), out.Fingerprint)
	})

	t.Run("unmapped_columns_load_null_unless_declared", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{Columns: map[string]string{"load_ts": "CURRENT_TIMESTAMP"}})
		out, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeInsert})
		require.NoError(t, err)
		assert.Contains(t, out.StatementText, "NULL AS \"loan_key\"")
		assert.Contains(t, out.StatementText, "CURRENT_TIMESTAMP AS \"load_ts\"")
		assert.Contains(t, out.ColumnComments["loan_key"], "manual attention")
		assert.Contains(t, out.ColumnComments["load_ts"], "synthesized")

		var hasUnmappedNote bool
		for _, n := range out.RiskNotes {
			if n == "column loan_key is unmapped and loads as NULL" {
				hasUnmappedNote = true
			}
		}
		assert.True(t, hasUnmappedNote)
	})

	t.Run("columns_follow_target_schema_order", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		out, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeInsert})
		require.NoError(t, err)

		idxID := strings.Index(out.StatementText, "\"loan_id\" AS")
		idxAmt := strings.Index(out.StatementText, "AS \"amount\"")
		idxKey := strings.Index(out.StatementText, "NULL AS \"loan_key\"")
		assert.True(t, idxID >= 0 && idxAmt > idxID && idxKey > idxAmt)
	})

	t.Run("requires_approved_state", func(t *testing.T) {
		set := approvedLoanSet()
		set.State = domain.SetReviewed
		gen := NewGenerator(SynthesisRules{})

		_, err := gen.Generate(GenerateInput{Set: set, Target: factLoans(), Mode: domain.ModeInsert})
		var cerr *domain.ConflictError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("revalidates_identifiers", func(t *testing.T) {
		set := approvedLoanSet()
		set.Candidates[0].SourceColumn = "loan_id; DROP TABLE loans"
		gen := NewGenerator(SynthesisRules{})

		_, err := gen.Generate(GenerateInput{Set: set, Target: factLoans(), Mode: domain.ModeInsert})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("unsupported_mode", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		_, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: "UPSERT"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("deterministic_output", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		a, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeInsert})
		require.NoError(t, err)
		b, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeInsert})
		require.NoError(t, err)
		assert.Equal(t, a.StatementText, b.StatementText)
	})
}

func TestGenerator_Merge(t *testing.T) {
	t.Run("renders_keyed_merge", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		out, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeMerge, KeyColumn: "loan_id"})
		require.NoError(t, err)
		assert.Contains(t, out.StatementText, "MERGE INTO \"warehouse\".\"fact_loans\" AS t")
		assert.Contains(t, out.StatementText, "ON t.\"loan_id\" = s.\"loan_id\"")
		assert.Contains(t, out.StatementText, "WHEN MATCHED THEN UPDATE SET")
		assert.Contains(t, out.StatementText, "\"amount\" = s.\"amount\"")
		assert.NotContains(t, out.StatementText, "\"loan_key\" = s.\"loan_key\"")
		assert.Contains(t, out.StatementText, "WHEN NOT MATCHED THEN INSERT (")
	})

	t.Run("missing_key_is_hard_error", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		_, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeMerge})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("unmapped_key_is_hard_error", func(t *testing.T) {
		gen := NewGenerator(SynthesisRules{})
		_, err := gen.Generate(GenerateInput{Set: approvedLoanSet(), Target: factLoans(), Mode: domain.ModeMerge, KeyColumn: "loan_key"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestLoadSynthesisRules(t *testing.T) {
	t.Run("loads_declared_columns", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("columns:\n  loan_key: GEN_RANDOM_UUID()\n  load_ts: CURRENT_TIMESTAMP\n"), 0o600))

		rules, err := LoadSynthesisRules(path)
		require.NoError(t, err)
		expr, ok := rules.Expression("loan_key")
		assert.True(t, ok)
		assert.Equal(t, "GEN_RANDOM_UUID()", expr)
		_, ok = rules.Expression("other")
		assert.False(t, ok)
	})

	t.Run("empty_path_is_empty_rules", func(t *testing.T) {
		rules, err := LoadSynthesisRules("")
		require.NoError(t, err)
		_, ok := rules.Expression("anything")
		assert.False(t, ok)
	})

	t.Run("empty_expression_rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("columns:\n  loan_key: \"\"\n"), 0o600))

		_, err := LoadSynthesisRules(path)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("missing_file_errors", func(t *testing.T) {
		_, err := LoadSynthesisRules(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
