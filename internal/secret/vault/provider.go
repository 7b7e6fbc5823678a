// Package vault implements a secret provider backed by HashiCorp
// Vault's KV v2 engine.
package vault

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// Config holds configuration for the Vault provider.
type Config struct {
	Address  string
	RoleID   string
	SecretID string
}

// Provider implements the secret.Provider interface for Vault.
type Provider struct {
	client *vault.Client
}

// New creates a Vault provider and logs in via AppRole.
func New(cfg Config) (*Provider, error) {
	vConfig := vault.DefaultConfig()
	vConfig.Address = cfg.Address

	client, err := vault.NewClient(vConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}

	auth, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   cfg.RoleID,
		"secret_id": cfg.SecretID,
	})
	if err != nil {
		return nil, fmt.Errorf("vault approle login: %w", err)
	}
	if auth == nil || auth.Auth == nil {
		return nil, fmt.Errorf("vault login returned no auth info")
	}
	client.SetToken(auth.Auth.ClientToken)

	return &Provider{client: client}, nil
}

// Get reads a secret. The path may carry a field selector after "#",
// e.g. "secret/data/openai#api_key"; without one the field "value" is
// read.
func (p *Provider) Get(ctx context.Context, path string) (string, error) {
	secretPath, field, found := strings.Cut(path, "#")
	if !found {
		field = "value"
	}

	secret, err := p.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s not found", secretPath)
	}

	// KV v2 nests the payload under "data".
	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	val, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("vault secret %s has no string field %q", secretPath, field)
	}
	return val, nil
}

// Close is a no-op; the Vault client holds no persistent connection.
func (p *Provider) Close() error {
	return nil
}
