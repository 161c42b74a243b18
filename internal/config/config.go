// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the DSN goes to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cortexq/cli/internal/completion"
	"cortexq/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel   string           `json:"log_level"`
	Completion CompletionConfig `json:"completion"`
	Retry      RetryConfig      `json:"retry"`
	// Concurrency caps statements in flight on the backend session.
	Concurrency int `json:"concurrency"`
	// RequestsPerSecond paces batch runs; 0 means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// CompletionConfig selects the model and the backend completion function.
type CompletionConfig struct {
	Model    string `json:"model"`
	Function string `json:"function"`
}

// RetryConfig controls the capacity retry policy.
type RetryConfig struct {
	MaxAttempts int `json:"max_attempts"`
	UnitMillis  int `json:"unit_ms"`
}

// Unit returns the base wait between attempts.
func (r RetryConfig) Unit() time.Duration {
	return time.Duration(r.UnitMillis) * time.Millisecond
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Completion: CompletionConfig{
			Model:    completion.DefaultModel,
			Function: completion.DefaultFunction,
		},
		Retry:       RetryConfig{MaxAttempts: 3, UnitMillis: 1000},
		Concurrency: 1,
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file returns defaults. Zero or missing fields in
// the file keep their defaults, and CORTEXQ_MODEL / CORTEXQ_FUNCTION override the file.
func Load() (Config, error) {
	c := Defaults()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	c.fill()
	c.applyEnv()
	return c, nil
}

func (c *Config) fill() {
	d := Defaults()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if strings.TrimSpace(c.Completion.Model) == "" {
		c.Completion.Model = d.Completion.Model
	}
	if strings.TrimSpace(c.Completion.Function) == "" {
		c.Completion.Function = d.Completion.Function
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.UnitMillis < 0 {
		c.Retry.UnitMillis = d.Retry.UnitMillis
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CORTEXQ_MODEL")); v != "" {
		c.Completion.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("CORTEXQ_FUNCTION")); v != "" {
		c.Completion.Function = v
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
