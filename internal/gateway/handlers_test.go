package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/soyeahso/thecafe/internal/conversation"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestErrorShape(t *testing.T) {
	timeout := llm.AsProviderError("anthropic", "claude-sonnet-4", context.DeadlineExceeded)

	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"validation", &domain.ValidationError{Field: "role", Message: "is required"}, CodeValidation, false},
		{"wrapped not found", fmt.Errorf("loading: %w", domain.NotFound("agent", "a-1")), CodeNotFound, false},
		{"provider", timeout, CodeProvider, true},
		{"closed", conversation.ErrClosed, CodeUnavailable, true},
		{"other", errors.New("disk full"), CodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := errorShape(tt.err)
			assert.Equal(t, tt.code, shape.Code)
			assert.Equal(t, tt.retryable, shape.Retryable)
			assert.NotEmpty(t, shape.Message)
		})
	}
}

func TestErrorShape_Details(t *testing.T) {
	shape := errorShape(&domain.ValidationError{Field: "domain", Message: "unknown"})
	assert.Equal(t, map[string]string{"field": "domain"}, shape.Details)

	shape = errorShape(domain.NotFound("project", "p-9"))
	assert.Equal(t, map[string]string{"kind": "project", "id": "p-9"}, shape.Details)

	shape = errorShape(llm.AsProviderError("openai", "gpt-4o", context.DeadlineExceeded))
	assert.Equal(t, map[string]any{"provider": "openai", "model": "gpt-4o", "timeout": true}, shape.Details)
}

func TestNotFoundIDs(t *testing.T) {
	assert.Nil(t, notFoundIDs(nil))

	err := errors.Join(domain.NotFound("agent", "a-1"), domain.NotFound("agent", "a-2"))
	assert.Equal(t, []string{"a-1", "a-2"}, notFoundIDs(err))

	wrapped := fmt.Errorf("adding: %w", err)
	assert.Equal(t, []string{"a-1", "a-2"}, notFoundIDs(wrapped))

	assert.Empty(t, notFoundIDs(errors.New("unrelated")))
}
