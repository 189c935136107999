package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Fatalf("backend url = %q", cfg.BackendURL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.SettleDelay() != 3*time.Second {
		t.Fatalf("settle delay = %v", cfg.SettleDelay())
	}
	if cfg.HTTPTimeout() != 30*time.Second {
		t.Fatalf("http timeout = %v", cfg.HTTPTimeout())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SKETCHCHECK_BACKEND_URL", "https://api.example")
	t.Setenv("SKETCHCHECK_LOG_LEVEL", "debug")
	t.Setenv("SKETCHCHECK_SETTLE_DELAY_SECONDS", "7")
	t.Setenv("SKETCHCHECK_RATE_LIMIT_PER_SEC", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://api.example" {
		t.Fatalf("backend url = %q", cfg.BackendURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.SettleDelaySeconds != 7 {
		t.Fatalf("settle delay = %d", cfg.SettleDelaySeconds)
	}
	if cfg.RateLimitPerSec != 2.5 {
		t.Fatalf("rate limit = %v", cfg.RateLimitPerSec)
	}
}

func TestLoadInvalidNumberFallsBack(t *testing.T) {
	t.Setenv("SKETCHCHECK_RETRY_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("retry attempts = %d, want default 3", cfg.RetryMaxAttempts)
	}
}

func TestLoadYAMLFileLayeredUnderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend_url: https://file.example\nlog_level: warn\nsettle_delay_seconds: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SKETCHCHECK_CONFIG", path)
	t.Setenv("SKETCHCHECK_LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://file.example" {
		t.Fatalf("backend url = %q, want file value", cfg.BackendURL)
	}
	if cfg.SettleDelaySeconds != 5 {
		t.Fatalf("settle delay = %d, want file value", cfg.SettleDelaySeconds)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("log level = %q, env must win over file", cfg.LogLevel)
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Setenv("SKETCHCHECK_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
