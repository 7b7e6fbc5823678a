// Package openai implements the backend adapter for OpenAI-style
// chat-completion endpoints. It serves as the reference implementation
// for other adapters.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/registry"
	relayerrors "github.com/dealscout/llmrelay/pkg/errors"
)

// DefaultBaseURL is the default OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

const defaultTimeout = 30 * time.Second

// Adapter implements backend.Backend for the OpenAI API.
type Adapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ backend.Backend = (*Adapter)(nil)

// New creates an adapter from the backend configuration and a resolved
// API key. The adapter owns its timeout; cfg.Timeout of zero falls back
// to the package default.
func New(cfg registry.BackendConfig, apiKey string) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ID implements backend.Backend.
func (a *Adapter) ID() registry.BackendID {
	return registry.BackendOpenAI
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements backend.Backend.
func (a *Adapter) Complete(ctx context.Context, req backend.Request) (*backend.Result, error) {
	body, err := json.Marshal(chatRequest{
		Model:       a.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, relayerrors.NewBackendError(string(a.ID()), mapError(resp.StatusCode, respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("unmarshal response: %w", err))
	}
	if len(chatResp.Choices) == 0 {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("response contained no choices"))
	}

	return &backend.Result{
		Text:       chatResp.Choices[0].Message.Content,
		TokensUsed: chatResp.Usage.TotalTokens,
	}, nil
}

// mapError turns an upstream error body into a plain error carrying the
// status and upstream message.
func mapError(statusCode int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return fmt.Errorf("upstream status %d: %s", statusCode, er.Error.Message)
	}
	return fmt.Errorf("upstream status %d", statusCode)
}
