package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// EmbeddingError is returned when an embedding request fails.
type EmbeddingError struct {
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("embedding %s failed: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

func (e *EmbeddingError) IsTransient() bool {
	return e.Transient
}

// GenerationError is returned when a text generation request fails.
type GenerationError struct {
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation %s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) IsTransient() bool {
	return e.Transient
}

// transienter is implemented by errors that know whether a retry may help.
type transienter interface {
	IsTransient() bool
}

// IsTransient reports whether err, or an error it wraps, is worth retrying.
// Timeouts, rate limits and server-side failures are transient; auth errors,
// malformed input and cancellation are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var t transienter
	if errors.As(err, &t) {
		return t.IsTransient()
	}
	return isTransientCause(err)
}

// isTransientCause classifies an underlying transport or provider error.
func isTransientCause(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"resource_exhausted", "unavailable", "rate limit", "429", "503", "connection reset", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		code >= http.StatusInternalServerError
}
