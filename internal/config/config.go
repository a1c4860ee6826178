// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ScoringPolicy holds the confidence heuristics used by the mapping scorer.
// These are tunable policy, not algorithmic necessity — the defaults mirror
// the heuristics the engine shipped with.
type ScoringPolicy struct {
	ExactScore          int // exact case-insensitive name match
	PartialScore        int // substring match after separator normalization
	StripPenalty        int // subtracted when a match only fires after affix stripping
	TypeMismatchPenalty int // subtracted when declared types differ (adds a CAST)
}

// DefaultScoringPolicy returns the stock scoring constants.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		ExactScore:          95,
		PartialScore:        75,
		StripPenalty:        5,
		TypeMismatchPenalty: 10,
	}
}

// Thresholds holds the classification cut-offs. Fixed for the lifetime of a
// session — the classifier is the single source of truth for these values.
type Thresholds struct {
	AutoApproveAbove int // strictly greater → auto-approved
	RejectBelow      int // strictly lower → rejected outright
}

// DefaultThresholds returns the stock classification cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoApproveAbove: 80, RejectBelow: 40}
}

// Config holds configuration for the mapping engine, its session store, the
// warehouse connection, and the HTTP API.
type Config struct {
	SessionDBPath string // path to SQLite session store file
	WarehousePath string // DuckDB database path ("" for in-memory)
	ListenAddr    string // HTTP listen address (default ":8080")
	LogLevel      string // log level: debug, info, warn, error (default "info")

	// TokenTTL bounds how long a dry-run token stays valid.
	TokenTTL time.Duration

	// SynthesisRulesPath points to the YAML file declaring per-column
	// synthesis rules for unmapped target columns. Optional.
	SynthesisRulesPath string

	// RetentionSweepSchedule is the cron expression for the audit retention
	// sweeper. Empty disables sweeping.
	RetentionSweepSchedule string

	Scoring    ScoringPolicy
	Thresholds Thresholds

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		SessionDBPath:          os.Getenv("SESSION_DB_PATH"),
		WarehousePath:          os.Getenv("WAREHOUSE_PATH"),
		ListenAddr:             os.Getenv("LISTEN_ADDR"),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		SynthesisRulesPath:     os.Getenv("SYNTHESIS_RULES_PATH"),
		RetentionSweepSchedule: os.Getenv("RETENTION_SWEEP_SCHEDULE"),
		Scoring:                DefaultScoringPolicy(),
		Thresholds:             DefaultThresholds(),
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("TOKEN_TTL must be positive, got %q", v)
		}
		cfg.TokenTTL = d
	}

	// Scoring policy overrides
	if err := intEnv("SCORE_EXACT", &cfg.Scoring.ExactScore); err != nil {
		return nil, err
	}
	if err := intEnv("SCORE_PARTIAL", &cfg.Scoring.PartialScore); err != nil {
		return nil, err
	}
	if err := intEnv("SCORE_STRIP_PENALTY", &cfg.Scoring.StripPenalty); err != nil {
		return nil, err
	}
	if err := intEnv("SCORE_TYPE_MISMATCH_PENALTY", &cfg.Scoring.TypeMismatchPenalty); err != nil {
		return nil, err
	}
	if err := intEnv("THRESHOLD_AUTO_APPROVE", &cfg.Thresholds.AutoApproveAbove); err != nil {
		return nil, err
	}
	if err := intEnv("THRESHOLD_REJECT", &cfg.Thresholds.RejectBelow); err != nil {
		return nil, err
	}
	if cfg.Thresholds.RejectBelow > cfg.Thresholds.AutoApproveAbove {
		return nil, fmt.Errorf("THRESHOLD_REJECT (%d) must not exceed THRESHOLD_AUTO_APPROVE (%d)",
			cfg.Thresholds.RejectBelow, cfg.Thresholds.AutoApproveAbove)
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = "schemabridge_sessions.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.WarehousePath == "" {
		cfg.Warnings = append(cfg.Warnings, "WAREHOUSE_PATH not set — using in-memory DuckDB (data is lost on restart)")
	}

	return cfg, nil
}

// intEnv overwrites *dst when key is set, erroring on non-numeric values.
func intEnv(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over .env entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
