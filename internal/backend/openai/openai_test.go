package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/registry"
	relayerrors "github.com/dealscout/llmrelay/pkg/errors"
)

func newAdapter(baseURL string) *Adapter {
	return New(registry.BackendConfig{
		ID:      registry.BackendOpenAI,
		Model:   "gpt-4o-mini",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, "test-key")
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "A sleek phone."}},
			},
			"usage": map[string]any{"total_tokens": 37},
		})
	}))
	defer srv.Close()

	res, err := newAdapter(srv.URL).Complete(context.Background(), backend.Request{
		Prompt:      "Generate a product description for a smartphone.",
		Temperature: 0.7,
		MaxTokens:   256,
	})
	require.NoError(t, err)
	assert.Equal(t, "A sleek phone.", res.Text)
	assert.Equal(t, 37, res.TokensUsed)
}

func TestComplete_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	_, err := newAdapter(srv.URL).Complete(context.Background(), backend.Request{Prompt: "hi"})
	require.Error(t, err)

	var be *relayerrors.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "openai", be.Backend)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newAdapter(srv.URL).Complete(context.Background(), backend.Request{Prompt: "hi"})
	require.Error(t, err)

	var be *relayerrors.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "openai", be.Backend)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	a := New(registry.BackendConfig{
		ID:      registry.BackendOpenAI,
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
	}, "test-key")

	_, err := a.Complete(context.Background(), backend.Request{Prompt: "hi"})
	require.Error(t, err)

	var be *relayerrors.BackendError
	assert.ErrorAs(t, err, &be)
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[],"usage":{"total_tokens":0}}`))
	}))
	defer srv.Close()

	_, err := newAdapter(srv.URL).Complete(context.Background(), backend.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
