package domain

// SQL generation modes.
const (
	ModeInsert = "INSERT"
	ModeMerge  = "MERGE"
)

// Statement lifecycle states tracked by the execution controller.
const (
	StmtGenerated       = "GENERATED"
	StmtValidated       = "VALIDATED"
	StmtExecuted        = "EXECUTED"
	StmtDryRunFailed    = "DRY_RUN_FAILED"
	StmtExecutionFailed = "EXECUTION_FAILED"
)

// GeneratedSQL is a rendered statement plus the per-column provenance that
// compliance reviews read. Every mapped column's confidence and explanation
// appear both here and as inline comments in the statement text.
type GeneratedSQL struct {
	StatementText  string            `json:"statement_text"`
	Mode           string            `json:"mode"`
	Fingerprint    string            `json:"fingerprint"`
	ColumnComments map[string]string `json:"column_comments"`
	RiskNotes      []string          `json:"risk_notes,omitempty"`
}
