// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config holding every default.
// - Load layers a YAML file and environment variables on top of New().
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":7272".
	Addr string `koanf:"addr"`

	// AdminToken authorizes forced recomputes. Empty disables them.
	AdminToken string `koanf:"admin_token"`

	// Retention is how many of the newest items are eligible for ranking.
	Retention int `koanf:"retention"`

	// ScoreWeight is the seconds-of-recency worth of each e-fold of votes.
	ScoreWeight float64 `koanf:"score_weight"`

	// RateLimit, RateWindowSeconds and RateReseed shape the per-submitter gate.
	RateLimit         int `koanf:"rate_limit"`
	RateWindowSeconds int `koanf:"rate_window_seconds"`
	RateReseed        int `koanf:"rate_reseed"`

	// SubmitWeight, VoteWeight and RecomputeThreshold drive automatic recomputes.
	SubmitWeight       int `koanf:"submit_weight"`
	VoteWeight         int `koanf:"vote_weight"`
	RecomputeThreshold int `koanf:"recompute_threshold"`

	// ThrottleRPS and ThrottleBurst bound mutating requests per address.
	ThrottleRPS   float64 `koanf:"throttle_rps"`
	ThrottleBurst int     `koanf:"throttle_burst"`

	// BackupDriver is none, file or sqlite.
	BackupDriver          string `koanf:"backup_driver"`
	BackupPath            string `koanf:"backup_path"`
	BackupIntervalSeconds int    `koanf:"backup_interval_seconds"`
	BackupKeep            int    `koanf:"backup_keep"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":7272",
		Retention:             500,
		ScoreWeight:           3600,
		RateLimit:             10,
		RateWindowSeconds:     3600,
		RateReseed:            3,
		SubmitWeight:          5,
		VoteWeight:            1,
		RecomputeThreshold:    2,
		ThrottleRPS:           5,
		ThrottleBurst:         10,
		BackupDriver:          "file",
		BackupPath:            "data/rebar.json",
		BackupIntervalSeconds: 300,
		BackupKeep:            5,
	}
}

// RateWindow returns the rate gate window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

// BackupInterval returns the periodic backup interval as a duration.
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.BackupIntervalSeconds) * time.Second
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Retention <= 0:
		return fmt.Errorf("%w: retention must be positive, got %d", ErrInvalidConfig, c.Retention)
	case c.ScoreWeight <= 0:
		return fmt.Errorf("%w: score_weight must be positive, got %g", ErrInvalidConfig, c.ScoreWeight)
	case c.RateLimit <= 0:
		return fmt.Errorf("%w: rate_limit must be positive, got %d", ErrInvalidConfig, c.RateLimit)
	case c.RateWindowSeconds <= 0:
		return fmt.Errorf("%w: rate_window_seconds must be positive, got %d", ErrInvalidConfig, c.RateWindowSeconds)
	case c.RateReseed < 1 || c.RateReseed > c.RateLimit:
		return fmt.Errorf("%w: rate_reseed must be in [1, rate_limit], got %d", ErrInvalidConfig, c.RateReseed)
	case c.SubmitWeight < 0 || c.VoteWeight < 0:
		return fmt.Errorf("%w: submit_weight and vote_weight must not be negative", ErrInvalidConfig)
	case c.RecomputeThreshold <= 0:
		return fmt.Errorf("%w: recompute_threshold must be positive, got %d", ErrInvalidConfig, c.RecomputeThreshold)
	case c.ThrottleRPS <= 0 || c.ThrottleBurst <= 0:
		return fmt.Errorf("%w: throttle_rps and throttle_burst must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.BackupDriver) {
	case "none":
	case "file", "sqlite":
		if strings.TrimSpace(c.BackupPath) == "" {
			return fmt.Errorf("%w: backup_path required for driver %q", ErrInvalidConfig, c.BackupDriver)
		}
		if c.BackupIntervalSeconds <= 0 {
			return fmt.Errorf("%w: backup_interval_seconds must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backup_driver %q", ErrInvalidConfig, c.BackupDriver)
	}
	return nil
}
