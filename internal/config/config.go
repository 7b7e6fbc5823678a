// Package config loads the relay configuration from YAML with
// environment expansion and optional hot reload.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dealscout/llmrelay/internal/registry"
)

// Mode selects the candidate-sequence behavior.
type Mode string

const (
	// ModeProduction routes to real backends with fallback.
	ModeProduction Mode = "production"
	// ModeDevelopment routes every request to the dry-run backend (or
	// the explicit preference) with no fallback and no network calls.
	ModeDevelopment Mode = "development"
)

// Config is the complete relay configuration.
type Config struct {
	Mode     Mode                     `yaml:"mode"`
	Redis    RedisConfig              `yaml:"redis"`
	Cache    CacheConfig              `yaml:"cache"`
	Limiter  LimiterConfig            `yaml:"limiter"`
	Backends []registry.BackendConfig `yaml:"backends"`
	Vault    VaultConfig              `yaml:"vault"`
	Logging  LoggingConfig            `yaml:"logging"`
	Tracing  TracingConfig            `yaml:"tracing"`
}

// VaultConfig enables vault:// credential references when Address is
// set.
type VaultConfig struct {
	Address  string `yaml:"address"`
	RoleID   string `yaml:"role_id"`
	SecretID string `yaml:"secret_id"`
}

// RedisConfig holds the shared-store connection settings. The same
// store backs both the limiter counters and the response cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	TTL       time.Duration `yaml:"ttl"`
	Namespace string        `yaml:"namespace"`
}

// LimiterConfig controls the fixed-window throughput limiter.
type LimiterConfig struct {
	Window time.Duration `yaml:"window"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	Insecure    bool    `yaml:"insecure"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeProduction,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			Enabled:   true,
			TTL:       time.Hour,
			Namespace: "llmrelay",
		},
		Limiter: LimiterConfig{
			Window: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "llmrelay",
			SampleRate:  1.0,
			Insecure:    true,
		},
	}
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnv replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadFromFile reads and parses a YAML configuration file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeProduction, ModeDevelopment:
	default:
		return fmt.Errorf("unknown mode: %q", c.Mode)
	}

	seen := make(map[registry.BackendID]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.ID == "" {
			return fmt.Errorf("backend %d: id is required", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("backend %d: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
		if b.ID != registry.BackendDryRun && b.Model == "" {
			return fmt.Errorf("backend %s: model is required", b.ID)
		}
		if b.RequestsPerMinute < 0 {
			return fmt.Errorf("backend %s: requests_per_minute must not be negative", b.ID)
		}
	}

	if c.Cache.Enabled && c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Limiter.Window < 0 {
		return fmt.Errorf("limiter window must not be negative")
	}
	if c.Limiter.Window > 0 && c.Limiter.Window < time.Second {
		return fmt.Errorf("limiter window must be at least one second")
	}
	return nil
}
