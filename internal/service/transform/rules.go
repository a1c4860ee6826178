// Package transform renders SQL from approved mapping sets and drives the
// two-phase dry-run/execute protocol against the warehouse.
package transform

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"schemabridge/internal/domain"
)

// SynthesisRules declares value expressions for target columns no source
// column maps to. Only explicitly declared columns are synthesized; everything
// else renders as NULL flagged for manual attention.
type SynthesisRules struct {
	// Columns maps a target column name to the SQL expression that fills it,
	// e.g. surrogate keys or load timestamps.
	Columns map[string]string `yaml:"columns"`
}

// Expression returns the declared synthesis expression for a column, if any.
func (r SynthesisRules) Expression(column string) (string, bool) {
	expr, ok := r.Columns[column]
	return expr, ok
}

// LoadSynthesisRules reads a YAML rules file. An empty path yields empty
// rules, which is a valid configuration.
func LoadSynthesisRules(path string) (SynthesisRules, error) {
	var rules SynthesisRules
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read synthesis rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse synthesis rules: %w", err)
	}

	for column, expr := range rules.Columns {
		if strings.TrimSpace(expr) == "" {
			return SynthesisRules{}, domain.ErrValidation("synthesis rule for column %q has an empty expression", column)
		}
	}
	return rules, nil
}
