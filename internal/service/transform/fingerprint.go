package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes the normalized SQL text. Tokens are bound to this value,
// so any edit to the statement after dry-run invalidates the token.
// Normalization drops line comments and collapses whitespace: reformatting or
// re-commenting the same statement does not change its fingerprint.
func Fingerprint(sqlText string) string {
	sum := sha256.Sum256([]byte(normalizeSQL(sqlText)))
	return hex.EncodeToString(sum[:])
}

func normalizeSQL(sqlText string) string {
	var parts []string
	for _, line := range strings.Split(sqlText, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		for _, field := range strings.Fields(line) {
			parts = append(parts, field)
		}
	}
	return strings.TrimSuffix(strings.Join(parts, " "), ";")
}
