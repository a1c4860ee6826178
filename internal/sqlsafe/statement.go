package sqlsafe

import (
	"regexp"
	"strings"

	"schemabridge/internal/domain"
)

// dangerousPatterns block generated SQL outright before it ever reaches the
// warehouse dry-run. The engine only emits INSERT and MERGE, so anything
// matching here indicates a generation bug or tampered statement text.
var dangerousPatterns = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`(?i);\s*(DROP|DELETE|TRUNCATE|UPDATE)\b`), "chained statements are not allowed"},
	{regexp.MustCompile(`(?i)\bDROP\s+(TABLE|DATABASE|SCHEMA)\b`), "DROP statements are not allowed"},
	{regexp.MustCompile(`(?i)\bTRUNCATE\s+TABLE\b`), "TRUNCATE statements are not allowed"},
	{regexp.MustCompile(`(?is)\bDELETE\s+FROM\s+\S+\s*;?\s*$`), "DELETE without WHERE clause is not allowed"},
	{regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`), "file export is not allowed"},
}

// CheckStatement screens sqlText for dangerous patterns and returns advisory
// warnings for constructs worth a human look. A non-nil error means the
// statement must not be dry-run or executed.
func CheckStatement(sqlText string) (warnings []string, err error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, domain.ErrValidation("sql statement is empty")
	}

	for _, p := range dangerousPatterns {
		if p.re.MatchString(sqlText) {
			return nil, domain.ErrValidation("%s", p.message)
		}
	}

	upper := strings.ToUpper(sqlText)
	if strings.Contains(upper, "SELECT *") {
		warnings = append(warnings, "SELECT * detected - consider specifying columns explicitly")
	}
	if strings.Count(upper, "JOIN") > 3 {
		warnings = append(warnings, "multiple JOINs detected - review for performance")
	}
	return warnings, nil
}
