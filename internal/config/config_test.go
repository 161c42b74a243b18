package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CORTEXQ_MODEL", "")
	t.Setenv("CORTEXQ_FUNCTION", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Defaults(), c); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if got := c.Retry.Unit(); got != time.Second {
		t.Errorf("Retry.Unit() = %v, want 1s", got)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("CORTEXQ_MODEL", "")
	t.Setenv("CORTEXQ_FUNCTION", "")

	if err := os.MkdirAll(filepath.Join(dir, "cortexq"), 0o700); err != nil {
		t.Fatal(err)
	}
	raw := `{"completion": {"model": "mistral-large"}, "retry": {"max_attempts": 5}}`
	if err := os.WriteFile(filepath.Join(dir, "cortexq", "config.json"), []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Defaults()
	want.Completion.Model = "mistral-large"
	want.Retry.MaxAttempts = 5
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CORTEXQ_MODEL", "reka-flash")
	t.Setenv("CORTEXQ_FUNCTION", "ai.complete")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Completion.Model != "reka-flash" || c.Completion.Function != "ai.complete" {
		t.Errorf("env overrides not applied: %+v", c.Completion)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CORTEXQ_MODEL", "")
	t.Setenv("CORTEXQ_FUNCTION", "")

	c := Defaults()
	c.Concurrency = 2
	c.RequestsPerSecond = 0.5
	if err := Save(c); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
