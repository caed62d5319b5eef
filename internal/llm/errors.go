package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrProvider is matched by every *ProviderError through errors.Is.
var ErrProvider = errors.New("provider error")

// ProviderError is returned when a completion provider fails or times out.
type ProviderError struct {
	Provider string
	Model    string
	Message  string
	Code     int // HTTP-like status code (401, 429, 500, etc.)
	Err      error
}

func (e *ProviderError) Error() string {
	prefix := e.Provider
	if e.Model != "" {
		prefix += " (" + e.Model + ")"
	}
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", prefix, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Timeout reports whether the call ran out of time.
func (e *ProviderError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// AsProviderError wraps err as a *ProviderError unless it already is one.
func AsProviderError(provider, model string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timeout waiting for completion"
	}
	return &ProviderError{Provider: provider, Model: model, Message: msg, Err: err}
}

// IsRetryable reports whether the same request may succeed if sent again.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 408, 429, 500, 502, 503, 504, 529:
			return true
		case 400, 401, 403, 404:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset")
}
