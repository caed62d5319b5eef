package conversation

import (
	"context"
	"sync"

	"github.com/soyeahso/thecafe/internal/domain"
)

// Turn tracks one user message and the reply it is waiting for.
type Turn struct {
	ConversationID string
	Model          domain.ModelID

	text string
	done chan struct{}

	mu    sync.Mutex
	user  domain.Message
	first bool
	reply domain.Message
	err   error
}

func newTurn(conversationID, text string, model domain.ModelID) *Turn {
	return &Turn{
		ConversationID: conversationID,
		Model:          model,
		text:           text,
		done:           make(chan struct{}),
	}
}

// Done is closed once the turn has resolved.
func (t *Turn) Done() <-chan struct{} { return t.done }

// UserMessage returns the stored user message. It is zero while the turn
// is still queued behind an in-flight reply.
func (t *Turn) UserMessage() domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

// First reports whether the stored user message opened the conversation.
// It is false while the turn is still queued.
func (t *Turn) First() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.first
}

// Wait blocks until the reply is appended or the turn fails. Provider
// failures are returned as *llm.ProviderError.
func (t *Turn) Wait(ctx context.Context) (domain.Message, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.reply, t.err
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

func (t *Turn) setUser(m domain.Message, first bool) {
	t.mu.Lock()
	t.user, t.first = m, first
	t.mu.Unlock()
}

func (t *Turn) finish(reply domain.Message, err error) {
	t.mu.Lock()
	t.reply, t.err = reply, err
	t.mu.Unlock()
	close(t.done)
}
