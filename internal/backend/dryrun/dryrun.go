// Package dryrun implements the development backend. It satisfies the
// same adapter interface as the real variants so swapping it in needs
// no caller changes, and it never touches the network: the response is
// a deterministic function of the prompt with a fixed token count.
package dryrun

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dealscout/llmrelay/internal/backend"
	"github.com/dealscout/llmrelay/internal/registry"
)

// FixedTokens is the token count reported for every dry-run response.
const FixedTokens = 25

// Adapter implements backend.Backend without any network calls.
type Adapter struct{}

// Compile-time interface assertion.
var _ backend.Backend = (*Adapter)(nil)

// New creates a dry-run adapter.
func New() *Adapter {
	return &Adapter{}
}

// ID implements backend.Backend.
func (a *Adapter) ID() registry.BackendID {
	return registry.BackendDryRun
}

// Complete returns canned text derived from the prompt digest. Two
// calls with the same prompt produce byte-identical output.
func (a *Adapter) Complete(ctx context.Context, req backend.Request) (*backend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(req.Prompt))
	return &backend.Result{
		Text:       fmt.Sprintf("[dry-run] canned response %s", hex.EncodeToString(sum[:8])),
		TokensUsed: FixedTokens,
	}, nil
}
