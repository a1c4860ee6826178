package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("SESSION_DB_PATH", "")
	t.Setenv("WAREHOUSE_PATH", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "schemabridge_sessions.sqlite", cfg.SessionDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultScoringPolicy(), cfg.Scoring)
	assert.Equal(t, DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)

	// In-memory warehouse produces a warning, not an error.
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	t.Setenv("SESSION_DB_PATH", "/tmp/sessions.sqlite")
	t.Setenv("WAREHOUSE_PATH", "/tmp/warehouse.duckdb")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("TOKEN_TTL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCORE_EXACT", "90")
	t.Setenv("THRESHOLD_AUTO_APPROVE", "85")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sessions.sqlite", cfg.SessionDBPath)
	assert.Equal(t, "/tmp/warehouse.duckdb", cfg.WarehousePath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 90, cfg.Scoring.ExactScore)
	assert.Equal(t, 85, cfg.Thresholds.AutoApproveAbove)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_InvalidTokenTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "not-a-duration")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}

func TestLoadFromEnv_NegativeTokenTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "-1m")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive")
}

func TestLoadFromEnv_ThresholdOrdering(t *testing.T) {
	t.Setenv("THRESHOLD_AUTO_APPROVE", "40")
	t.Setenv("THRESHOLD_REJECT", "80")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "THRESHOLD_REJECT")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nDOTENV_TEST_A=hello\nDOTENV_TEST_B=\"quoted value\"\n\nmalformed line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DOTENV_TEST_A", "")
	t.Setenv("DOTENV_TEST_B", "")
	// Pre-set values must win over the .env file.
	t.Setenv("DOTENV_TEST_C", "preset")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "hello", os.Getenv("DOTENV_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("DOTENV_TEST_B"))
	assert.Equal(t, "preset", os.Getenv("DOTENV_TEST_C"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
