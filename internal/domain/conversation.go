package domain

import "time"

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is an immutable entry in a conversation transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Model     ModelID   `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a chat thread with a single agent.
type Conversation struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId,omitempty"`
	AgentID      string    `json:"agentId"`
	CurrentModel ModelID   `json:"currentModel"`
	Title        string    `json:"title,omitempty"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LastMessage returns the most recent message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ConversationInput holds the fields accepted when starting a conversation.
type ConversationInput struct {
	ProjectID string  `json:"projectId,omitempty"`
	AgentID   string  `json:"agentId"`
	Model     ModelID `json:"model,omitempty"`
	Title     string  `json:"title,omitempty"`
}
