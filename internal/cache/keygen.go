package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dealscout/llmrelay/internal/registry"
)

// KeyParams are the request attributes that participate in the
// fingerprint. Two requests with the same params map to the same key.
type KeyParams struct {
	Backend     registry.BackendID
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// KeyGenerator produces stable cache keys from request parameters.
type KeyGenerator interface {
	Generate(params KeyParams) string
}

// DefaultKeyGenerator hashes normalized parameters with SHA-256.
// The prompt is whitespace-normalized and the parameters are emitted in
// a fixed order, so semantically identical requests that differ only in
// spacing or parameter ordering collide on the same key.
type DefaultKeyGenerator struct {
	Prefix string
}

// NewKeyGenerator creates a DefaultKeyGenerator with the given prefix.
func NewKeyGenerator(prefix string) *DefaultKeyGenerator {
	return &DefaultKeyGenerator{Prefix: prefix}
}

// Generate implements KeyGenerator.
func (g *DefaultKeyGenerator) Generate(params KeyParams) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("backend:%s", params.Backend))
	sb.WriteString(fmt.Sprintf("|prompt:%s", normalizePrompt(params.Prompt)))
	sb.WriteString(fmt.Sprintf("|temp:%.2f", params.Temperature))
	sb.WriteString(fmt.Sprintf("|max_tokens:%d", params.MaxTokens))

	sum := sha256.Sum256([]byte(sb.String()))
	digest := hex.EncodeToString(sum[:])

	if g.Prefix == "" {
		return digest
	}
	return g.Prefix + ":" + digest
}

// normalizePrompt collapses runs of whitespace to single spaces and
// trims the ends, so formatting-only differences do not fragment the
// cache.
func normalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(prompt), " ")
}
