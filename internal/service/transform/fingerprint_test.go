package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Run("stable_across_calls", func(t *testing.T) {
		sql := "INSERT INTO \"t\" (\"a\") SELECT \"a\" FROM \"s\";"
		assert.Equal(t, Fingerprint(sql), Fingerprint(sql))
	})

	t.Run("ignores_comments_and_whitespace", func(t *testing.T) {
		plain := "INSERT INTO \"t\" (\"a\") SELECT \"a\" FROM \"s\";"
		commented := "INSERT INTO \"t\" (\"a\")\nSELECT\n    -- a: confidence 95\n    \"a\"\nFROM \"s\";"
		assert.Equal(t, Fingerprint(plain), Fingerprint(commented))
	})

	t.Run("ignores_trailing_semicolon", func(t *testing.T) {
		assert.Equal(t,
			Fingerprint("SELECT 1"),
			Fingerprint("SELECT 1;"))
	})

	t.Run("differs_for_edited_sql", func(t *testing.T) {
		assert.NotEqual(t,
			Fingerprint("INSERT INTO \"t\" (\"a\") SELECT \"a\" FROM \"s\""),
			Fingerprint("INSERT INTO \"t\" (\"a\") SELECT \"b\" FROM \"s\""))
	})
}
