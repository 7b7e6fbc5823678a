package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/llmrelay/internal/registry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
mode: production
redis:
  addr: redis.internal:6379
cache:
  enabled: true
  ttl: 30m
limiter:
  window: 1m
backends:
  - id: openai
    model: gpt-4o-mini
    credential_ref: env://OPENAI_API_KEY
    temperature: 0.7
    max_tokens: 1024
    requests_per_minute: 60
  - id: anthropic
    model: claude-3-5-haiku-latest
    credential_ref: env://ANTHROPIC_API_KEY
    requests_per_minute: 50
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, registry.BackendOpenAI, cfg.Backends[0].ID)
	assert.Equal(t, int64(60), cfg.Backends[0].RequestsPerMinute)
	// Defaults survive partial configs.
	assert.Equal(t, "llmrelay", cfg.Cache.Namespace)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	t.Setenv("RELAY_REDIS_ADDR", "10.0.0.5:6379")
	path := writeConfig(t, `
redis:
  addr: ${RELAY_REDIS_ADDR}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:6379", cfg.Redis.Addr)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "staging" },
			wantErr: "unknown mode",
		},
		{
			name: "backend without id",
			mutate: func(c *Config) {
				c.Backends = []registry.BackendConfig{{Model: "gpt-4o"}}
			},
			wantErr: "id is required",
		},
		{
			name: "duplicate backend id",
			mutate: func(c *Config) {
				c.Backends = []registry.BackendConfig{
					{ID: registry.BackendOpenAI, Model: "gpt-4o"},
					{ID: registry.BackendOpenAI, Model: "gpt-4o-mini"},
				}
			},
			wantErr: "duplicate id",
		},
		{
			name: "real backend without model",
			mutate: func(c *Config) {
				c.Backends = []registry.BackendConfig{{ID: registry.BackendOpenAI}}
			},
			wantErr: "model is required",
		},
		{
			name: "dryrun needs no model",
			mutate: func(c *Config) {
				c.Backends = []registry.BackendConfig{{ID: registry.BackendDryRun}}
			},
		},
		{
			name: "negative rpm",
			mutate: func(c *Config) {
				c.Backends = []registry.BackendConfig{
					{ID: registry.BackendOpenAI, Model: "gpt-4o", RequestsPerMinute: -1},
				}
			},
			wantErr: "requests_per_minute",
		},
		{
			name: "sub-second limiter window",
			mutate: func(c *Config) {
				c.Limiter.Window = 500 * time.Millisecond
			},
			wantErr: "at least one second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestManager_GetAndReload(t *testing.T) {
	path := writeConfig(t, "mode: production\n")

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, m.Get().Mode)

	// Reload picks up a rewritten file.
	require.NoError(t, os.WriteFile(path, []byte("mode: development\n"), 0o600))
	m.reload()
	assert.Equal(t, ModeDevelopment, m.Get().Mode)
}

func TestManager_ReloadKeepsCurrentOnError(t *testing.T) {
	path := writeConfig(t, "mode: production\n")

	m, err := NewManager(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("mode: [broken\n"), 0o600))
	m.reload()
	assert.Equal(t, ModeProduction, m.Get().Mode)
}
