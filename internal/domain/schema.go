package domain

import "time"

// ColumnDescriptor describes one column of a warehouse table.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// TableSchema is the ordered column list of one table.
type TableSchema struct {
	Name    string             `json:"name"`
	Columns []ColumnDescriptor `json:"columns"`
}

// SchemaSnapshot is the captured schema of one dataset: table name to ordered
// column list. Immutable once captured for a session; replaced wholesale on
// re-capture. Callers must explicitly re-capture — there is no implicit refresh.
type SchemaSnapshot struct {
	SessionID   string        `json:"session_id"`
	DatasetName string        `json:"dataset_name"`
	Tables      []TableSchema `json:"tables"`
	CapturedAt  time.Time     `json:"captured_at"`
}

// Table returns the schema for the named table, or nil if absent.
func (s *SchemaSnapshot) Table(name string) *TableSchema {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the descriptor for name, or nil if the table has no such column.
func (t *TableSchema) Column(name string) *ColumnDescriptor {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether the table declares the named column.
func (t *TableSchema) HasColumn(name string) bool {
	return t.Column(name) != nil
}
