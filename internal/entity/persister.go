package entity

import (
	"context"

	"github.com/soyeahso/thecafe/internal/domain"
)

// Snapshot is the full persisted state loaded at start-up.
type Snapshot struct {
	Agents        []domain.Agent
	Projects      []domain.Project
	Conversations []domain.Conversation
}

// Persister receives every mutation before it is applied in memory. A
// returned error aborts the mutation.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	SaveAgent(ctx context.Context, a domain.Agent) error
	// DeleteAgent must also drop the agent from every project membership.
	DeleteAgent(ctx context.Context, id string) error
	// SaveProject upserts the project and replaces its membership set.
	SaveProject(ctx context.Context, p domain.Project) error
	// DeleteProject must detach the project's conversations.
	DeleteProject(ctx context.Context, id string) error
	// SaveConversation upserts conversation metadata, never messages.
	SaveConversation(ctx context.Context, c domain.Conversation) error
	DeleteConversation(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, conversationID string, m domain.Message) error
}
