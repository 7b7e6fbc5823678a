// Package anthropic implements the backend adapter for the Anthropic
// Messages API.
package anthropic

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

// DefaultBaseURL is the default Anthropic API endpoint.
const DefaultBaseURL = "https://api.anthropic.com/v1"

// APIVersion is the anthropic-version header value.
const APIVersion = "2023-06-01"

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024
)

// Adapter implements backend.Backend for the Anthropic API.
type Adapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ backend.Backend = (*Adapter)(nil)

// New creates an adapter from the backend configuration and a resolved
// API key.
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
	return registry.BackendAnthropic
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements backend.Backend.
func (a *Adapter) Complete(ctx context.Context, req backend.Request) (*backend.Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// The Messages API rejects requests without max_tokens.
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(messagesRequest{
		Model:       a.model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

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

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("unmarshal response: %w", err))
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, relayerrors.NewBackendError(string(a.ID()), fmt.Errorf("response contained no text blocks"))
	}

	return &backend.Result{
		Text:       text.String(),
		TokensUsed: msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
	}, nil
}

func mapError(statusCode int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return fmt.Errorf("upstream status %d: %s", statusCode, er.Error.Message)
	}
	return fmt.Errorf("upstream status %d", statusCode)
}
