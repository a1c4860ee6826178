package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/domain"
)

func openTestWarehouse(t *testing.T) *DuckDB {
	t.Helper()
	wh, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })

	ctx := context.Background()
	stmts := []string{
		`CREATE SCHEMA lending`,
		`CREATE TABLE lending.borrower (
			borrower_id BIGINT NOT NULL,
			borrower_name VARCHAR,
			industry VARCHAR
		)`,
		`INSERT INTO lending.borrower VALUES
			(1, 'Acme Corp', 'manufacturing'),
			(2, 'Globex', 'energy'),
			(3, 'Initech', 'software')`,
		`CREATE SCHEMA warehouse`,
		`CREATE TABLE warehouse.dim_borrower (
			borrower_id BIGINT,
			borrower_name VARCHAR,
			industry_code VARCHAR
		)`,
	}
	for _, s := range stmts {
		_, err := wh.DB().ExecContext(ctx, s)
		require.NoError(t, err)
	}
	return wh
}

func TestGetTableColumns(t *testing.T) {
	wh := openTestWarehouse(t)
	ctx := context.Background()

	t.Run("returns_columns_in_ordinal_order", func(t *testing.T) {
		cols, err := wh.GetTableColumns(ctx, "lending", "borrower")
		require.NoError(t, err)
		require.Len(t, cols, 3)
		assert.Equal(t, "borrower_id", cols[0].Name)
		assert.Equal(t, "BIGINT", cols[0].DataType)
		assert.False(t, cols[0].Nullable)
		assert.Equal(t, "borrower_name", cols[1].Name)
		assert.True(t, cols[1].Nullable)
		assert.Equal(t, "industry", cols[2].Name)
	})

	t.Run("unknown_table_is_not_found", func(t *testing.T) {
		_, err := wh.GetTableColumns(ctx, "lending", "nope")
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("rejects_invalid_identifier", func(t *testing.T) {
		_, err := wh.GetTableColumns(ctx, "lending", "borrower; DROP TABLE x")
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

func TestListTables(t *testing.T) {
	wh := openTestWarehouse(t)
	ctx := context.Background()

	t.Run("lists_dataset_tables", func(t *testing.T) {
		names, err := wh.ListTables(ctx, "lending")
		require.NoError(t, err)
		assert.Equal(t, []string{"borrower"}, names)
	})

	t.Run("unknown_dataset_is_empty", func(t *testing.T) {
		names, err := wh.ListTables(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestSampleRows(t *testing.T) {
	wh := openTestWarehouse(t)
	ctx := context.Background()

	t.Run("reads_rows_up_to_limit", func(t *testing.T) {
		columns, rows, err := wh.SampleRows(ctx, "lending", "borrower", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"borrower_id", "borrower_name", "industry"}, columns)
		require.Len(t, rows, 2)
		require.Len(t, rows[0], 3)
	})

	t.Run("limit_beyond_row_count_returns_all", func(t *testing.T) {
		_, rows, err := wh.SampleRows(ctx, "lending", "borrower", 50)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("rejects_non_positive_limit", func(t *testing.T) {
		_, _, err := wh.SampleRows(ctx, "lending", "borrower", 0)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("rejects_invalid_identifier", func(t *testing.T) {
		_, _, err := wh.SampleRows(ctx, "lending", "borrower--", 5)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

func TestDryRunQuery(t *testing.T) {
	wh := openTestWarehouse(t)
	ctx := context.Background()

	t.Run("valid_statement_passes", func(t *testing.T) {
		res, err := wh.DryRunQuery(ctx, `INSERT INTO warehouse.dim_borrower (borrower_id, borrower_name) SELECT borrower_id, borrower_name FROM lending.borrower`)
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Empty(t, res.Error)
	})

	t.Run("unknown_column_fails_without_executing", func(t *testing.T) {
		res, err := wh.DryRunQuery(ctx, `INSERT INTO warehouse.dim_borrower (no_such_col) SELECT borrower_id FROM lending.borrower`)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Error)

		var n int64
		require.NoError(t, wh.DB().QueryRowContext(ctx, `SELECT count(*) FROM warehouse.dim_borrower`).Scan(&n))
		assert.Zero(t, n)
	})

	t.Run("syntax_error_fails", func(t *testing.T) {
		res, err := wh.DryRunQuery(ctx, `INSERT INTOO garbage`)
		require.NoError(t, err)
		assert.False(t, res.Valid)
	})
}

func TestRunQuery(t *testing.T) {
	wh := openTestWarehouse(t)
	ctx := context.Background()

	t.Run("reports_rows_affected", func(t *testing.T) {
		res, err := wh.RunQuery(ctx, `INSERT INTO warehouse.dim_borrower (borrower_id, borrower_name, industry_code) SELECT borrower_id, borrower_name, industry FROM lending.borrower`)
		require.NoError(t, err)
		assert.EqualValues(t, 3, res.RowsAffected)
		assert.GreaterOrEqual(t, res.Duration.Nanoseconds(), int64(0))
	})

	t.Run("surfaces_execution_error", func(t *testing.T) {
		_, err := wh.RunQuery(ctx, `INSERT INTO warehouse.no_such_table VALUES (1)`)
		require.Error(t, err)
	})
}
