package llmrelay

import "time"

// GenerationRequest is the caller's prompt plus optional routing and
// sampling overrides. It is a value object: the relay never mutates it.
type GenerationRequest struct {
	// Prompt is the text sent to the backend. Required.
	Prompt string

	// Preferred, when set, is tried first; the secondary backend still
	// backs it up in production mode.
	Preferred BackendID

	// Temperature overrides the backend's default when non-nil.
	Temperature *float64

	// MaxTokens overrides the backend's default when non-nil.
	MaxTokens *int

	// Context carries free-form caller metadata. It is logged, never
	// interpreted.
	Context map[string]string
}

// GenerationResponse is the relay's answer. Backend always identifies
// the backend that produced Text, which after a fallback differs from
// the request's preference.
type GenerationResponse struct {
	Text           string
	Backend        BackendID
	TokensUsed     int
	ProcessingTime time.Duration
	CacheHit       bool
}
