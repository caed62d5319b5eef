package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EchoClient is an offline provider. It answers every request with a
// simulated reply naming the model and the agent persona, which keeps the
// chat flow usable without API keys.
type EchoClient struct {
	Delay time.Duration
}

// Name returns the provider name.
func (e *EchoClient) Name() string { return "echo" }

// Complete returns a canned reply after the configured delay.
func (e *EchoClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return nil, AsProviderError(e.Name(), req.Model, ctx.Err())
		}
	}

	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	content := fmt.Sprintf("[%s] This is a simulated response from %s. You said: %q",
		req.Model, persona(req.System), last)
	return &CompletionResponse{
		Content:    content,
		StopReason: "end_turn",
		Model:      req.Model,
		Usage:      Usage{InputTokens: len(strings.Fields(last)), OutputTokens: len(strings.Fields(content))},
	}, nil
}

// persona pulls the agent name from the first line of a system prompt.
func persona(system string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(system), "\n")
	if name, ok := strings.CutPrefix(first, "You are "); ok {
		return strings.TrimSuffix(name, ".")
	}
	return "your agent"
}
