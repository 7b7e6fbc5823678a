package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrors "github.com/dealscout/llmrelay/pkg/errors"
)

func testConfigs() []BackendConfig {
	return []BackendConfig{
		{
			ID:                BackendOpenAI,
			Model:             "gpt-4o-mini",
			CredentialRef:     "env://OPENAI_API_KEY",
			Temperature:       0.7,
			MaxTokens:         1024,
			RequestsPerMinute: 60,
			Timeout:           30 * time.Second,
		},
		{
			ID:                BackendAnthropic,
			Model:             "claude-3-5-haiku-latest",
			CredentialRef:     "env://ANTHROPIC_API_KEY",
			Temperature:       0.7,
			MaxTokens:         1024,
			RequestsPerMinute: 50,
			Timeout:           30 * time.Second,
		},
	}
}

func TestRegistry_Get(t *testing.T) {
	r := New(testConfigs()...)

	cfg, err := r.Get(BackendOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, int64(60), cfg.RequestsPerMinute)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := New(testConfigs()...)

	_, err := r.Get("mistral")
	require.Error(t, err)

	var ube *relayerrors.UnknownBackendError
	require.ErrorAs(t, err, &ube)
	assert.Equal(t, "mistral", ube.Backend)
}

func TestRegistry_All_PreservesOrder(t *testing.T) {
	r := New(testConfigs()...)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, BackendOpenAI, all[0].ID)
	assert.Equal(t, BackendAnthropic, all[1].ID)
}

func TestRegistry_DuplicateIDOverwrites(t *testing.T) {
	r := New(
		BackendConfig{ID: BackendOpenAI, Model: "gpt-4o"},
		BackendConfig{ID: BackendOpenAI, Model: "gpt-4o-mini"},
	)

	cfg, err := r.Get(BackendOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Len(t, r.All(), 1)
}

func TestRegistry_Has(t *testing.T) {
	r := New(testConfigs()...)
	assert.True(t, r.Has(BackendAnthropic))
	assert.False(t, r.Has(BackendDryRun))
}
