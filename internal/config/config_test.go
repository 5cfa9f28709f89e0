package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8787", cfg.API.BaseURL)
	assert.Equal(t, "v1", cfg.API.Version)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 0.0, cfg.Retry.Jitter)
	assert.Equal(t, "./data/pulse.db", cfg.Storage.Path)
	assert.Equal(t, 30*time.Second, cfg.Agent.RefreshInterval)
	assert.Equal(t, 2, cfg.Agent.FailureThreshold)
	assert.Equal(t, "/metrics", cfg.Prometheus.MetricsPath)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.pulse.example.com/
  version: v2
  timeout: 5s
retry:
  max_attempts: 5
  base_delay: 250ms
  jitter: 0.2
storage:
  path: /tmp/pulse.db
agent:
  listen: ":9000"
  refresh_interval: 1m
prometheus:
  enabled: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.pulse.example.com", cfg.API.BaseURL)
	assert.Equal(t, "v2", cfg.API.Version)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 0.2, cfg.Retry.Jitter)
	assert.Equal(t, ":9000", cfg.Agent.Listen)
	assert.Equal(t, time.Minute, cfg.Agent.RefreshInterval)
	assert.True(t, cfg.Prometheus.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://staging.example.com")
	t.Setenv(EnvStoragePath, "/var/lib/pulse.db")
	t.Setenv(EnvLogLevel, "warn")

	path := writeConfig(t, "api:\n  base_url: https://prod.example.com\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.API.BaseURL)
	assert.Equal(t, "/var/lib/pulse.db", cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"relative base url", "api:\n  base_url: localhost:8787\n"},
		{"negative attempts", "retry:\n  max_attempts: -1\n"},
		{"too many attempts", "retry:\n  max_attempts: 40\n"},
		{"jitter too large", "retry:\n  jitter: 1.5\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"metrics path", "prometheus:\n  metrics_path: metrics\n"},
		{"refresh too fast", "agent:\n  refresh_interval: 10ms\n"},
		{"negative threshold", "agent:\n  failure_threshold: -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	assert.NoError(t, validate(cfg))
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "api: [unterminated"))
	assert.Error(t, err)
}
