// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API        APIConfig        `yaml:"api"`
	Retry      RetryConfig      `yaml:"retry"`
	Storage    StorageConfig    `yaml:"storage"`
	Agent      AgentConfig      `yaml:"agent"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Version   string        `yaml:"version"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	// Jitter adds up to this fraction of each delay at random. Zero disables it.
	Jitter float64 `yaml:"jitter"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type AgentConfig struct {
	Listen          string        `yaml:"listen"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	// FailureThreshold is how many consecutive snapshots must agree before an
	// endpoint counts as degraded or down. Recoveries apply immediately.
	FailureThreshold int `yaml:"failure_threshold"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	EnvAPIURL      = "PULSE_API_URL"
	EnvStoragePath = "PULSE_STORAGE_PATH"
	EnvLogLevel    = "PULSE_LOG_LEVEL"
)

// MaxRetryAttempts bounds retry.max_attempts.
const MaxRetryAttempts = 10

// Load reads filename when it exists, applies environment overrides and
// defaults, and validates the result. A missing file is not an error.
func Load(filename string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	applyEnv(config)
	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns a configuration built only from defaults. It is not
// validated; the defaults pass validate on their own.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadConfigFile(filename string) (*Config, error) {
	var config Config
	if filename == "" {
		return &config, nil
	}

	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
}

func setDefaults(cfg *Config) {
	// API defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8787"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.Version == "" {
		cfg.API.Version = "v1"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "pulse-cli"
	}

	// Retry defaults
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}

	// Storage defaults
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/pulse.db"
	}

	// Agent defaults
	if cfg.Agent.Listen == "" {
		cfg.Agent.Listen = ":8790"
	}
	if cfg.Agent.RefreshInterval == 0 {
		cfg.Agent.RefreshInterval = 30 * time.Second
	}
	if cfg.Agent.ReadTimeout == 0 {
		cfg.Agent.ReadTimeout = 15 * time.Second
	}
	if cfg.Agent.WriteTimeout == 0 {
		cfg.Agent.WriteTimeout = 15 * time.Second
	}
	if cfg.Agent.FailureThreshold == 0 {
		cfg.Agent.FailureThreshold = 2
	}

	// Prometheus defaults
	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if !isValidURL(cfg.API.BaseURL) {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL")
	}
	if strings.Contains(cfg.API.Version, "/") {
		return fmt.Errorf("api.version must not contain '/'")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if cfg.Retry.MaxAttempts < 1 || cfg.Retry.MaxAttempts > MaxRetryAttempts {
		return fmt.Errorf("retry.max_attempts must be between 1 and %d", MaxRetryAttempts)
	}
	if cfg.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative")
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0 and 1")
	}

	if cfg.Agent.RefreshInterval < time.Second {
		return fmt.Errorf("agent.refresh_interval must be at least 1s")
	}
	if cfg.Agent.FailureThreshold < 1 {
		return fmt.Errorf("agent.failure_threshold must be at least 1")
	}
	if !strings.HasPrefix(cfg.Prometheus.MetricsPath, "/") {
		return fmt.Errorf("prometheus.metrics_path must start with '/'")
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}

func isValidURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
