// Package sqlsafe validates identifiers and generated SQL before anything is
// interpolated into statement text or used to index a schema snapshot.
package sqlsafe

import (
	"regexp"
	"strings"

	"schemabridge/internal/domain"
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentifierLen is the maximum length allowed for a SQL identifier.
const maxIdentifierLen = 128

// reservedWords are SQL keywords rejected as standalone identifiers. An
// identifier matching one of these would change statement semantics when
// interpolated unquoted.
var reservedWords = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {}, "merge": {},
	"drop": {}, "truncate": {}, "alter": {}, "create": {}, "grant": {},
	"from": {}, "where": {}, "join": {}, "union": {}, "into": {},
	"table": {}, "values": {}, "set": {}, "and": {}, "or": {}, "not": {},
	"null": {}, "cast": {}, "as": {}, "on": {}, "using": {},
}

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most 128 characters
//   - Matches [A-Za-z_][A-Za-z0-9_]*
//   - Not an SQL keyword
//
// The regex already excludes whitespace, quotes, and semicolons. Callers must
// refuse to proceed on error — never substitute a default.
func ValidateIdentifier(name string) error {
	if name == "" {
		return domain.ErrValidation("identifier is required")
	}
	if len(name) > maxIdentifierLen {
		return domain.ErrValidation("identifier must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return domain.ErrValidation("identifier %q must match [A-Za-z_][A-Za-z0-9_]*", name)
	}
	if _, reserved := reservedWords[strings.ToLower(name)]; reserved {
		return domain.ErrValidation("identifier %q is a reserved SQL keyword", name)
	}
	return nil
}

// QuoteIdentifier unconditionally wraps a SQL identifier in ANSI double
// quotes, escaping embedded quotes by doubling them. The caller should
// validate first; quoting is not a substitute for validation.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any embedded
// single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
