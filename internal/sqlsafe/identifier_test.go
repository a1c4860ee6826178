package sqlsafe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/domain"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		// Valid cases
		{name: "simple", input: "borrower"},
		{name: "underscore_prefix", input: "_staging"},
		{name: "mixed_case", input: "DimBorrower"},
		{name: "with_digits", input: "loan2024"},
		{name: "snake_case", input: "borrower_id"},
		{name: "max_length", input: strings.Repeat("a", 128)},

		// Invalid cases
		{name: "empty", input: "", wantErr: "identifier is required"},
		{name: "too_long", input: strings.Repeat("a", 129), wantErr: "at most 128 characters"},
		{name: "starts_with_digit", input: "1loan", wantErr: "must match"},
		{name: "contains_space", input: "my table", wantErr: "must match"},
		{name: "contains_hyphen", input: "my-table", wantErr: "must match"},
		{name: "contains_dot", input: "dataset.table", wantErr: "must match"},
		{name: "contains_semicolon", input: "foo;bar", wantErr: "must match"},
		{name: "contains_quote", input: `foo"bar`, wantErr: "must match"},
		{name: "sql_injection", input: "foo; DROP TABLE", wantErr: "must match"},
		{name: "keyword_select", input: "select", wantErr: "reserved SQL keyword"},
		{name: "keyword_drop_upper", input: "DROP", wantErr: "reserved SQL keyword"},
		{name: "keyword_union_mixed", input: "Union", wantErr: "reserved SQL keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				var verr *domain.ValidationError
				assert.ErrorAs(t, err, &verr)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "borrower", want: `"borrower"`},
		{name: "uppercase", input: "Borrower", want: `"Borrower"`},
		{name: "escapes_embedded_quote", input: `bor"rower`, want: `"bor""rower"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "hello", want: "'hello'"},
		{name: "with_single_quote", input: "it's", want: "'it''s'"},
		{name: "multiple_quotes", input: "a'b'c", want: "'a''b''c'"},
		{name: "empty", input: "", want: "''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteLiteral(tt.input))
		})
	}
}

func TestCheckStatement(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		wantErr      string
		wantWarnings int
	}{
		{name: "plain_insert", sql: "INSERT INTO t (a) SELECT a FROM s"},
		{name: "merge", sql: "MERGE `t` AS target USING (SELECT a FROM s) AS source ON target.a = source.a WHEN MATCHED THEN UPDATE SET target.a = source.a"},
		{name: "select_star_warning", sql: "INSERT INTO t SELECT * FROM s", wantWarnings: 1},
		{name: "many_joins_warning", sql: "INSERT INTO t SELECT a FROM s JOIN b ON 1=1 JOIN c ON 1=1 JOIN d ON 1=1 JOIN e ON 1=1", wantWarnings: 1},
		{name: "empty", sql: "   ", wantErr: "empty"},
		{name: "drop_table", sql: "DROP TABLE borrower", wantErr: "DROP statements"},
		{name: "truncate", sql: "TRUNCATE TABLE borrower", wantErr: "TRUNCATE statements"},
		{name: "bare_delete", sql: "DELETE FROM borrower", wantErr: "DELETE without WHERE"},
		{name: "chained_drop", sql: "INSERT INTO t SELECT 1; DROP TABLE t", wantErr: "chained statements"},
		{name: "outfile", sql: "SELECT a INTO OUTFILE '/tmp/x' FROM s", wantErr: "file export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := CheckStatement(tt.sql)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Len(t, warnings, tt.wantWarnings)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
