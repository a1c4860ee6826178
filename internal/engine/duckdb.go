// Package engine implements the warehouse connector on DuckDB. Datasets map
// to DuckDB schemas; introspection goes through information_schema so the
// connector stays close to what other ANSI warehouses expose.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"schemabridge/internal/domain"
	"schemabridge/internal/sqlsafe"
)

// DuckDB implements domain.Warehouse against an embedded DuckDB database.
type DuckDB struct {
	db *sql.DB
}

var _ domain.Warehouse = (*DuckDB)(nil)

// Open opens a DuckDB database at path. An empty path opens an in-memory
// database, which is useful for tests and throwaway sessions.
func Open(path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &DuckDB{db: db}, nil
}

// New wraps an existing DuckDB connection pool.
func New(db *sql.DB) *DuckDB {
	return &DuckDB{db: db}
}

// Close releases the underlying connection pool.
func (d *DuckDB) Close() error {
	return d.db.Close()
}

// DB exposes the underlying pool for setup code such as schema bootstrap.
func (d *DuckDB) DB() *sql.DB {
	return d.db
}

// GetTableColumns returns the ordered column list of one table. Returns
// NotFoundError if the table does not exist in the dataset.
func (d *DuckDB) GetTableColumns(ctx context.Context, dataset, table string) ([]domain.ColumnDescriptor, error) {
	if err := sqlsafe.ValidateIdentifier(dataset); err != nil {
		return nil, err
	}
	if err := sqlsafe.ValidateIdentifier(table); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, dataset, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s.%s: %w", dataset, table, err)
	}
	defer rows.Close()

	var cols []domain.ColumnDescriptor
	for rows.Next() {
		var c domain.ColumnDescriptor
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column of %s.%s: %w", dataset, table, err)
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %s.%s not found", dataset, table)
	}
	return cols, nil
}

// ListTables returns the base table names of a dataset, sorted by name. An
// unknown dataset yields an empty list, not an error.
func (d *DuckDB) ListTables(ctx context.Context, dataset string) ([]string, error) {
	if err := sqlsafe.ValidateIdentifier(dataset); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, dataset)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", dataset, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name of %s: %w", dataset, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SampleRows reads up to limit rows from a table. Identifiers are validated
// and quoted; limit is bound as a parameter.
func (d *DuckDB) SampleRows(ctx context.Context, dataset, table string, limit int) ([]string, [][]interface{}, error) {
	if err := sqlsafe.ValidateIdentifier(dataset); err != nil {
		return nil, nil, err
	}
	if err := sqlsafe.ValidateIdentifier(table); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		return nil, nil, domain.ErrValidation("sample limit must be positive, got %d", limit)
	}

	q := fmt.Sprintf("SELECT * FROM %s.%s LIMIT ?",
		sqlsafe.QuoteIdentifier(dataset), sqlsafe.QuoteIdentifier(table))
	rows, err := d.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("sample %s.%s: %w", dataset, table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan sample row of %s.%s: %w", dataset, table, err)
		}
		out = append(out, values)
	}
	return columns, out, rows.Err()
}

// DryRunQuery validates a statement without executing it by asking DuckDB to
// plan it. Planner rejections come back as an invalid result, not an error;
// errors are reserved for connector failures.
func (d *DuckDB) DryRunQuery(ctx context.Context, sqlText string) (*domain.DryRunResult, error) {
	rows, err := d.db.QueryContext(ctx, "EXPLAIN "+sqlText)
	if err != nil {
		return &domain.DryRunResult{Valid: false, Error: err.Error()}, nil
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return &domain.DryRunResult{Valid: false, Error: err.Error()}, nil
	}
	return &domain.DryRunResult{Valid: true}, nil
}

// RunQuery executes a statement and reports affected rows and wall time.
func (d *DuckDB) RunQuery(ctx context.Context, sqlText string) (*domain.ExecutionResult, error) {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &domain.ExecutionResult{
		RowsAffected: affected,
		Duration:     time.Since(start),
	}, nil
}
