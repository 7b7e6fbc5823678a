// Package errors defines the unified error types for the relay core.
// All backend-specific failures are normalized into these types before
// they cross an adapter boundary.
package errors

import (
	"fmt"
	"strings"
)

// UnknownBackendError is returned when a caller asks for a backend id
// that is not present in the registry. It is fatal to the call and is
// never retried against another backend.
type UnknownBackendError struct {
	Backend string `json:"backend"`
}

// Error implements the error interface.
func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend: %s", e.Backend)
}

// NewUnknownBackendError creates an UnknownBackendError for the given id.
func NewUnknownBackendError(backend string) *UnknownBackendError {
	return &UnknownBackendError{Backend: backend}
}

// BackendError wraps a single backend's failure. Transport errors,
// authentication failures, timeouts, and upstream-reported errors all
// arrive here; the orchestrator recovers locally by advancing to the
// next candidate.
type BackendError struct {
	Backend string `json:"backend"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("backend %s failed", e.Backend)
	}
	return fmt.Sprintf("backend %s failed: %v", e.Backend, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError normalizes cause into a BackendError for backend.
// If cause is already a BackendError for the same backend it is
// returned unchanged.
func NewBackendError(backend string, cause error) *BackendError {
	if be, ok := cause.(*BackendError); ok && be.Backend == backend {
		return be
	}
	return &BackendError{Backend: backend, Cause: cause}
}

// Attempt records one failed candidate during a generation call.
type Attempt struct {
	Backend string `json:"backend"`
	Err     error  `json:"-"`
}

// AllBackendsFailedError is surfaced to the caller only when every
// candidate in the computed sequence has failed. Attempts holds exactly
// one entry per candidate, in the order they were tried.
type AllBackendsFailedError struct {
	Attempts []Attempt `json:"attempts"`
}

// Error implements the error interface.
func (e *AllBackendsFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("all backends failed")
	if len(e.Attempts) > 0 {
		sb.WriteString(": ")
		for i, a := range e.Attempts {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s: %v", a.Backend, a.Err)
		}
	}
	return sb.String()
}

// NewAllBackendsFailedError creates the exhaustion error from the
// ordered attempt list.
func NewAllBackendsFailedError(attempts []Attempt) *AllBackendsFailedError {
	return &AllBackendsFailedError{Attempts: attempts}
}
