package entity

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/hooks"
)

// CreateConversation starts a conversation with an agent. The model
// defaults to the agent's default model.
func (s *Store) CreateConversation(ctx context.Context, in domain.ConversationInput) (domain.Conversation, error) {
	s.mu.Lock()
	a, ok := s.agents[in.AgentID]
	if !ok {
		s.mu.Unlock()
		return domain.Conversation{}, domain.NotFound("agent", in.AgentID)
	}
	if in.ProjectID != "" {
		if _, ok := s.projects[in.ProjectID]; !ok {
			s.mu.Unlock()
			return domain.Conversation{}, domain.NotFound("project", in.ProjectID)
		}
	}
	model := in.Model
	if model == "" {
		model = a.DefaultModel
	}
	if !domain.IsKnownModel(model) {
		s.mu.Unlock()
		return domain.Conversation{}, &domain.ValidationError{Field: "model", Message: fmt.Sprintf("unknown model %q", model)}
	}

	now := s.now()
	c := domain.Conversation{
		ID:           s.newID(),
		ProjectID:    in.ProjectID,
		AgentID:      a.ID,
		CurrentModel: model,
		Title:        strings.TrimSpace(in.Title),
		Messages:     []domain.Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.persist != nil {
		if err := s.persist.SaveConversation(ctx, c); err != nil {
			s.mu.Unlock()
			return domain.Conversation{}, fmt.Errorf("persisting conversation: %w", err)
		}
	}
	s.conversations[c.ID] = c
	s.commit()
	s.mu.Unlock()

	s.log.Info().Str("conversation", c.ID).Str("agent", a.ID).Str("model", string(model)).Msg("conversation created")
	s.emit(ctx, hooks.EventConversationCreated, map[string]any{"id": c.ID, "conversation": cloneConversation(c)})
	return cloneConversation(c), nil
}

// SetConversationModel switches the model used for subsequent messages.
func (s *Store) SetConversationModel(ctx context.Context, id string, model domain.ModelID) (domain.Conversation, error) {
	if !domain.IsKnownModel(model) {
		return domain.Conversation{}, &domain.ValidationError{Field: "model", Message: fmt.Sprintf("unknown model %q", model)}
	}
	return s.updateConversation(ctx, id, func(c *domain.Conversation) { c.CurrentModel = model })
}

// SetConversationTitle renames a conversation.
func (s *Store) SetConversationTitle(ctx context.Context, id, title string) (domain.Conversation, error) {
	title = strings.TrimSpace(title)
	return s.updateConversation(ctx, id, func(c *domain.Conversation) { c.Title = title })
}

func (s *Store) updateConversation(ctx context.Context, id string, mutate func(*domain.Conversation)) (domain.Conversation, error) {
	s.mu.Lock()
	c, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return domain.Conversation{}, domain.NotFound("conversation", id)
	}
	mutate(&c)
	c.UpdatedAt = s.now()
	if s.persist != nil {
		if err := s.persist.SaveConversation(ctx, c); err != nil {
			s.mu.Unlock()
			return domain.Conversation{}, fmt.Errorf("persisting conversation: %w", err)
		}
	}
	s.conversations[id] = c
	s.commit()
	out := cloneConversation(c)
	s.mu.Unlock()

	s.emit(ctx, hooks.EventConversationUpdated, map[string]any{"id": id, "conversation": out})
	return out, nil
}

// DeleteConversation removes a conversation and its transcript.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return domain.NotFound("conversation", id)
	}
	if s.persist != nil {
		if err := s.persist.DeleteConversation(ctx, id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("deleting conversation: %w", err)
		}
	}
	delete(s.conversations, id)
	s.commit()
	s.mu.Unlock()

	s.log.Info().Str("conversation", id).Msg("conversation deleted")
	s.emit(ctx, hooks.EventConversationDeleted, map[string]any{"id": id})
	return nil
}

// AppendMessage adds an immutable message to the end of the transcript.
// The conversation's agent must still exist. Empty ids, models and
// timestamps are filled in.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, m domain.Message) (domain.Message, error) {
	if !m.Role.Valid() {
		return domain.Message{}, &domain.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", m.Role)}
	}
	if strings.TrimSpace(m.Content) == "" {
		return domain.Message{}, &domain.ValidationError{Field: "content", Message: "is required"}
	}

	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return domain.Message{}, domain.NotFound("conversation", conversationID)
	}
	if _, ok := s.agents[c.AgentID]; !ok {
		s.mu.Unlock()
		return domain.Message{}, domain.NotFound("agent", c.AgentID)
	}

	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Model == "" {
		m.Model = c.CurrentModel
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	if s.persist != nil {
		if err := s.persist.AppendMessage(ctx, conversationID, m); err != nil {
			s.mu.Unlock()
			return domain.Message{}, fmt.Errorf("persisting message: %w", err)
		}
	}
	c.Messages = append(slices.Clip(c.Messages), m)
	c.UpdatedAt = m.Timestamp
	s.conversations[conversationID] = c
	s.commit()
	s.mu.Unlock()

	s.log.Debug().
		Str("conversation", conversationID).
		Str("role", string(m.Role)).
		Str("model", string(m.Model)).
		Msg("message appended")
	s.emit(ctx, hooks.EventMessageAppended, map[string]any{
		"id":             m.ID,
		"conversationId": conversationID,
		"message":        m,
	})
	return m, nil
}

// Conversation returns the conversation with its full transcript.
func (s *Store) Conversation(id string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return domain.Conversation{}, domain.NotFound("conversation", id)
	}
	return cloneConversation(c), nil
}

// Conversations lists conversations, most recently updated first. A
// non-empty projectID restricts the list to that project.
func (s *Store) Conversations(projectID string) []domain.Conversation {
	s.mu.RLock()
	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		if projectID != "" && c.ProjectID != projectID {
			continue
		}
		out = append(out, cloneConversation(c))
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b domain.Conversation) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func cloneConversation(c domain.Conversation) domain.Conversation {
	c.Messages = slices.Clone(c.Messages)
	if c.Messages == nil {
		c.Messages = []domain.Message{}
	}
	return c
}
