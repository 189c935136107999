package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL string `yaml:"backend_url"`
	LogLevel   string `yaml:"log_level"`

	TokenPath string `yaml:"token_path"`

	OAuthClientID    string `yaml:"oauth_client_id"`
	OAuthRedirectURL string `yaml:"oauth_redirect_url"`

	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
	SettleDelaySeconds int `yaml:"settle_delay_seconds"`

	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`

	RetryMaxAttempts  int `yaml:"retry_max_attempts"`
	BreakerOpenSecs   int `yaml:"breaker_open_seconds"`
	BreakerMinSamples int `yaml:"breaker_min_samples"`

	MetricsPort string `yaml:"metrics_port"`
}

// Load reads configuration from the environment, optionally layered on
// top of a YAML file named by SKETCHCHECK_CONFIG. Environment values
// win over file values.
func Load() (Config, error) {
	cfg := Config{
		BackendURL: "http://localhost:8000",
		LogLevel:   "info",

		OAuthRedirectURL: "http://localhost:8000/auth/callback",

		HTTPTimeoutSeconds: 30,
		SettleDelaySeconds: 3,

		RateLimitPerSec: 5,
		RateLimitBurst:  10,

		RetryMaxAttempts:  3,
		BreakerOpenSecs:   20,
		BreakerMinSamples: 5,

		MetricsPort: "",
	}

	if path := os.Getenv("SKETCHCHECK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.BackendURL = mustEnv("SKETCHCHECK_BACKEND_URL", cfg.BackendURL)
	cfg.LogLevel = mustEnv("SKETCHCHECK_LOG_LEVEL", cfg.LogLevel)
	cfg.TokenPath = mustEnv("SKETCHCHECK_TOKEN_PATH", cfg.TokenPath)
	cfg.OAuthClientID = mustEnv("SKETCHCHECK_OAUTH_CLIENT_ID", cfg.OAuthClientID)
	cfg.OAuthRedirectURL = mustEnv("SKETCHCHECK_OAUTH_REDIRECT_URL", cfg.OAuthRedirectURL)
	cfg.HTTPTimeoutSeconds = mustEnvInt("SKETCHCHECK_HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeoutSeconds)
	cfg.SettleDelaySeconds = mustEnvInt("SKETCHCHECK_SETTLE_DELAY_SECONDS", cfg.SettleDelaySeconds)
	cfg.RateLimitPerSec = mustEnvFloat("SKETCHCHECK_RATE_LIMIT_PER_SEC", cfg.RateLimitPerSec)
	cfg.RateLimitBurst = mustEnvInt("SKETCHCHECK_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.RetryMaxAttempts = mustEnvInt("SKETCHCHECK_RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.BreakerOpenSecs = mustEnvInt("SKETCHCHECK_BREAKER_OPEN_SECONDS", cfg.BreakerOpenSecs)
	cfg.BreakerMinSamples = mustEnvInt("SKETCHCHECK_BREAKER_MIN_SAMPLES", cfg.BreakerMinSamples)
	cfg.MetricsPort = mustEnv("SKETCHCHECK_METRICS_PORT", cfg.MetricsPort)

	return cfg, nil
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
