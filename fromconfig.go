package llmrelay

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/backend/anthropic"
	"github.com/dealscout/llmrelay/internal/backend/dryrun"
	"github.com/dealscout/llmrelay/internal/backend/openai"
	"github.com/dealscout/llmrelay/internal/cache"
	"github.com/dealscout/llmrelay/internal/config"
	"github.com/dealscout/llmrelay/internal/limiter"
	"github.com/dealscout/llmrelay/internal/observability"
	"github.com/dealscout/llmrelay/internal/registry"
	"github.com/dealscout/llmrelay/internal/secret"
	secretenv "github.com/dealscout/llmrelay/internal/secret/env"
	secretvault "github.com/dealscout/llmrelay/internal/secret/vault"
)

// Config is the file-level relay configuration.
type Config = config.Config

// ConfigManager watches a configuration file and hot-reloads it.
type ConfigManager = config.Manager

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.LoadFromFile(path)
}

// NewFromConfig assembles a fully wired client from file configuration:
// logger, credential resolution, Redis-backed limiter and cache,
// backend adapters, and tracing. Development mode swaps the cache to
// process memory and guarantees the dry-run backend is available, so
// no external service is required.
func NewFromConfig(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format != "text",
	})

	secrets := secret.NewManager()
	secrets.Register("env", secretenv.New())
	if cfg.Vault.Address != "" {
		vp, err := secretvault.New(secretvault.Config{
			Address:  cfg.Vault.Address,
			RoleID:   cfg.Vault.RoleID,
			SecretID: cfg.Vault.SecretID,
		})
		if err != nil {
			return nil, fmt.Errorf("init vault secret provider: %w", err)
		}
		secrets.Register("vault", vp)
	}
	defer func() {
		// Credentials are resolved during construction only; the
		// manager is not needed afterwards.
		_ = secrets.Close()
	}()

	backendConfigs := effectiveBackendConfigs(cfg)

	adapters := make([]backend.Backend, 0, len(backendConfigs))
	for _, bc := range backendConfigs {
		adapter, err := buildAdapter(ctx, bc, secrets)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	baseOpts := []Option{
		WithMode(cfg.Mode),
		WithRegistry(registry.New(backendConfigs...)),
		WithLogger(logger),
	}
	for _, adapter := range adapters {
		baseOpts = append(baseOpts, WithBackend(adapter))
	}

	var shutdown []func(context.Context) error

	if cfg.Mode == config.ModeProduction {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		baseOpts = append(baseOpts, WithLimiter(limiter.NewRedisLimiter(redisClient, cfg.Limiter.Window, logger)))
		if cfg.Cache.Enabled {
			baseOpts = append(baseOpts, WithCache(
				cache.NewRedisStore(redisClient, cfg.Cache.Namespace, cfg.Cache.TTL),
				cfg.Cache.TTL,
			))
		} else {
			shutdown = append(shutdown, func(context.Context) error { return redisClient.Close() })
		}
	} else if cfg.Cache.Enabled {
		baseOpts = append(baseOpts, WithCache(cache.NewLocalStore(cfg.Cache.TTL), cfg.Cache.TTL))
	}

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			Enabled:     true,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			SampleRate:  cfg.Tracing.SampleRate,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		baseOpts = append(baseOpts, WithTracer(tp.Tracer()))
		shutdown = append(shutdown, tp.Shutdown)
	}

	client, err := New(append(baseOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	client.shutdown = append(client.shutdown, shutdown...)
	return client, nil
}

// NewManagedFromConfig builds a client from the file at path and keeps
// it synchronized with edits to that file: changes to throughput
// ceilings and sampling defaults reach the running client on the next
// call. Structural settings (the adapter set, stores, tracing) still
// require a rebuild. The watch stops when ctx is done; the returned
// manager exposes the current configuration snapshot.
func NewManagedFromConfig(ctx context.Context, path string, opts ...Option) (*Client, *ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	client, err := NewFromConfig(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	manager, err := config.NewManager(path, client.logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	manager.OnChange(func(next *config.Config) {
		client.UpdateRegistry(registry.New(effectiveBackendConfigs(next)...))
	})
	if err := manager.Watch(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("watch config %s: %w", path, err)
	}
	return client, manager, nil
}

// effectiveBackendConfigs guarantees the dry-run backend is registered
// in development mode, so a bare development config works offline.
func effectiveBackendConfigs(cfg *Config) []registry.BackendConfig {
	configs := cfg.Backends
	if cfg.Mode == config.ModeDevelopment && !hasBackend(configs, registry.BackendDryRun) {
		configs = append(configs, registry.BackendConfig{ID: registry.BackendDryRun})
	}
	return configs
}

func buildAdapter(ctx context.Context, bc registry.BackendConfig, secrets *secret.Manager) (backend.Backend, error) {
	if bc.ID == registry.BackendDryRun {
		return dryrun.New(), nil
	}

	apiKey, err := secrets.Resolve(ctx, bc.CredentialRef)
	if err != nil {
		return nil, fmt.Errorf("resolve credential for %s: %w", bc.ID, err)
	}

	switch bc.ID {
	case registry.BackendOpenAI:
		return openai.New(bc, apiKey), nil
	case registry.BackendAnthropic:
		return anthropic.New(bc, apiKey), nil
	default:
		return nil, fmt.Errorf("no adapter available for backend %s", bc.ID)
	}
}

func hasBackend(configs []registry.BackendConfig, id registry.BackendID) bool {
	for _, bc := range configs {
		if bc.ID == id {
			return true
		}
	}
	return false
}
