// Package registry holds the static table of backend configurations.
// The table is built once at process start and is read-only afterwards.
package registry

import (
	"time"

	relayerrors "github.com/dealscout/llmrelay/pkg/errors"
)

// BackendID identifies one language-model backend.
type BackendID string

const (
	// BackendOpenAI is the production primary backend.
	BackendOpenAI BackendID = "openai"
	// BackendAnthropic is the production secondary backend.
	BackendAnthropic BackendID = "anthropic"
	// BackendDryRun is the development backend. It never touches the
	// network and returns deterministic canned responses.
	BackendDryRun BackendID = "dryrun"
)

// BackendConfig is the immutable connection configuration for one
// backend. CredentialRef is a secret reference ("env://OPENAI_API_KEY",
// "vault://secret/data/openai"), resolved at client construction.
type BackendConfig struct {
	ID                BackendID     `yaml:"id"`
	Model             string        `yaml:"model"`
	CredentialRef     string        `yaml:"credential_ref"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	RequestsPerMinute int64         `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Registry is a pure lookup table of backend configurations.
// It has no mutation API; construct a new Registry to change the set.
type Registry struct {
	configs map[BackendID]BackendConfig
	order   []BackendID
}

// New builds a registry from the given configs. Later entries with a
// duplicate id overwrite earlier ones; iteration order follows first
// appearance.
func New(configs ...BackendConfig) *Registry {
	r := &Registry{
		configs: make(map[BackendID]BackendConfig, len(configs)),
	}
	for _, cfg := range configs {
		if _, seen := r.configs[cfg.ID]; !seen {
			r.order = append(r.order, cfg.ID)
		}
		r.configs[cfg.ID] = cfg
	}
	return r
}

// Get returns the configuration for id, or an UnknownBackendError when
// the id is not registered.
func (r *Registry) Get(id BackendID) (BackendConfig, error) {
	cfg, ok := r.configs[id]
	if !ok {
		return BackendConfig{}, relayerrors.NewUnknownBackendError(string(id))
	}
	return cfg, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id BackendID) bool {
	_, ok := r.configs[id]
	return ok
}

// All returns every registered configuration in registration order.
func (r *Registry) All() []BackendConfig {
	out := make([]BackendConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id])
	}
	return out
}
