// Package backend defines the adapter contract between the relay core
// and individual language-model services. Adapters translate the
// neutral request shape into one backend's wire call and back, own
// their request timeout, and normalize every failure into a
// BackendError before it leaves the package boundary.
package backend

import (
	"context"

	"github.com/dealscout/llmrelay/internal/registry"
)

// Request is the neutral prompt shape handed to an adapter. The
// orchestrator resolves overrides against the backend defaults before
// the request reaches this point.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Result is the neutral response shape produced by an adapter.
type Result struct {
	Text       string
	TokensUsed int
}

// Backend is implemented by every adapter, including the development
// dry-run variant, which is indistinguishable from real ones at this
// interface.
type Backend interface {
	// ID returns the backend identifier this adapter serves.
	ID() registry.BackendID

	// Complete sends the prompt and returns the generated text with
	// its token count. Every failure is a *errors.BackendError.
	Complete(ctx context.Context, req Request) (*Result, error)
}
