package transform

import (
	"fmt"
	"strings"

	"schemabridge/internal/domain"
	"schemabridge/internal/sqlsafe"
)

// Generator renders INSERT and MERGE statements from an approved mapping set.
// Rendering is pure: identical input always yields identical SQL text.
type Generator struct {
	rules SynthesisRules
}

// NewGenerator creates a Generator with the given synthesis rules.
func NewGenerator(rules SynthesisRules) *Generator {
	return &Generator{rules: rules}
}

// GenerateInput is one rendering request. Target supplies the authoritative
// column order; KeyColumn is required in MERGE mode and must be a mapped
// target column.
type GenerateInput struct {
	Set       *domain.MappingSet
	Target    *domain.TableSchema
	Mode      string
	KeyColumn string
}

// Generate renders the statement. The set must be APPROVED, and every
// identifier it carries is re-validated here: upstream state is never trusted
// alone.
func (g *Generator) Generate(in GenerateInput) (*domain.GeneratedSQL, error) {
	if in.Set.State != domain.SetApproved {
		return nil, domain.ErrConflict("mapping set %s is %s, SQL generation requires APPROVED", in.Set.ID, in.Set.State)
	}
	if err := g.revalidate(in.Set); err != nil {
		return nil, err
	}

	cols, notes := g.renderColumns(in.Set, in.Target)

	var text string
	var err error
	switch in.Mode {
	case domain.ModeInsert:
		text = g.renderInsert(in.Set, cols)
	case domain.ModeMerge:
		text, err = g.renderMerge(in.Set, cols, in.KeyColumn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.ErrValidation("unsupported SQL mode %q, want INSERT or MERGE", in.Mode)
	}

	out := &domain.GeneratedSQL{
		StatementText:  text,
		Mode:           in.Mode,
		Fingerprint:    Fingerprint(text),
		ColumnComments: map[string]string{},
		RiskNotes:      notes,
	}
	for _, c := range cols {
		out.ColumnComments[c.name] = c.comment
	}
	return out, nil
}

// revalidate re-runs identifier validation over everything the set names.
func (g *Generator) revalidate(set *domain.MappingSet) error {
	names := []string{set.SourceDataset, set.SourceTable, set.TargetDataset, set.TargetTable}
	for _, c := range set.Candidates {
		names = append(names, c.SourceColumn, c.TargetColumn)
	}
	for _, name := range names {
		if err := sqlsafe.ValidateIdentifier(name); err != nil {
			return err
		}
	}
	return nil
}

// renderedColumn is one target column's select expression with provenance.
type renderedColumn struct {
	name    string
	expr    string
	comment string
	mapped  bool
}

// renderColumns walks the target's columns in schema order and resolves each
// one to a mapped expression, a declared synthesis expression, or NULL.
func (g *Generator) renderColumns(set *domain.MappingSet, target *domain.TableSchema) ([]renderedColumn, []string) {
	byTarget := map[string]domain.MappingCandidate{}
	for _, c := range set.Candidates {
		byTarget[c.TargetColumn] = c
	}

	var cols []renderedColumn
	var notes []string
	for _, tcol := range target.Columns {
		cand, ok := byTarget[tcol.Name]
		switch {
		case ok:
			expr := sqlsafe.QuoteIdentifier(cand.SourceColumn)
			if cand.Transform != "" {
				expr = strings.ReplaceAll(cand.Transform, "{source}", expr)
				notes = append(notes, fmt.Sprintf("column %s requires a type cast (%s to %s)",
					tcol.Name, cand.SourceType, cand.TargetType))
			}
			cols = append(cols, renderedColumn{
				name:    tcol.Name,
				expr:    expr,
				comment: fmt.Sprintf("confidence %d (%s): %s", cand.Confidence, cand.MatchMethod, cand.Explanation),
				mapped:  true,
			})
		default:
			if expr, declared := g.rules.Expression(tcol.Name); declared {
				cols = append(cols, renderedColumn{
					name:    tcol.Name,
					expr:    expr,
					comment: fmt.Sprintf("synthesized by declared rule: %s", expr),
				})
				continue
			}
			cols = append(cols, renderedColumn{
				name:    tcol.Name,
				expr:    "NULL",
				comment: "unmapped target column, needs manual attention",
			})
			notes = append(notes, fmt.Sprintf("column %s is unmapped and loads as NULL", tcol.Name))
		}
	}
	return cols, notes
}

func qualified(dataset, table string) string {
	return sqlsafe.QuoteIdentifier(dataset) + "." + sqlsafe.QuoteIdentifier(table)
}

// selectList renders the commented SELECT body shared by both modes.
func selectList(cols []renderedColumn, indent string) string {
	var b strings.Builder
	for i, c := range cols {
		fmt.Fprintf(&b, "%s-- %s: %s\n", indent, c.name, c.comment)
		fmt.Fprintf(&b, "%s%s AS %s", indent, c.expr, sqlsafe.QuoteIdentifier(c.name))
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (g *Generator) renderInsert(set *domain.MappingSet, cols []renderedColumn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (\n", qualified(set.TargetDataset, set.TargetTable))
	for i, c := range cols {
		fmt.Fprintf(&b, "    %s", sqlsafe.QuoteIdentifier(c.name))
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")\nSELECT\n")
	b.WriteString(selectList(cols, "    "))
	fmt.Fprintf(&b, "FROM %s;", qualified(set.SourceDataset, set.SourceTable))
	return b.String()
}

func (g *Generator) renderMerge(set *domain.MappingSet, cols []renderedColumn, keyColumn string) (string, error) {
	if keyColumn == "" {
		return "", domain.ErrValidation("MERGE mode requires an explicit key column")
	}
	if err := sqlsafe.ValidateIdentifier(keyColumn); err != nil {
		return "", err
	}
	keyMapped := false
	for _, c := range cols {
		if c.name == keyColumn && c.mapped {
			keyMapped = true
		}
	}
	if !keyMapped {
		return "", domain.ErrValidation("MERGE key column %q is not a mapped target column", keyColumn)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s AS t\nUSING (\n    SELECT\n", qualified(set.TargetDataset, set.TargetTable))
	b.WriteString(selectList(cols, "        "))
	fmt.Fprintf(&b, "    FROM %s\n) AS s\n", qualified(set.SourceDataset, set.SourceTable))
	key := sqlsafe.QuoteIdentifier(keyColumn)
	fmt.Fprintf(&b, "ON t.%s = s.%s\n", key, key)

	// Only mapped non-key columns are updated: a MERGE must never overwrite
	// existing values with NULL placeholders.
	var updates []string
	for _, c := range cols {
		if c.mapped && c.name != keyColumn {
			q := sqlsafe.QuoteIdentifier(c.name)
			updates = append(updates, fmt.Sprintf("    %s = s.%s", q, q))
		}
	}
	if len(updates) > 0 {
		b.WriteString("WHEN MATCHED THEN UPDATE SET\n")
		b.WriteString(strings.Join(updates, ",\n"))
		b.WriteString("\n")
	}

	b.WriteString("WHEN NOT MATCHED THEN INSERT (\n")
	for i, c := range cols {
		fmt.Fprintf(&b, "    %s", sqlsafe.QuoteIdentifier(c.name))
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(") VALUES (\n")
	for i, c := range cols {
		fmt.Fprintf(&b, "    s.%s", sqlsafe.QuoteIdentifier(c.name))
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String(), nil
}
