// Package conversation runs chat sessions between a user and an agent:
// one provider call per user message, queued in order while a reply is in
// flight.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/hooks"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/soyeahso/thecafe/internal/logging"
)

// ErrClosed is returned for turns submitted to or queued in a closed manager.
var ErrClosed = errors.New("conversation manager closed")

// State is the reply state of a conversation.
type State string

const (
	StateEmpty         State = "empty"
	StateAwaitingReply State = "awaiting_reply"
	StateIdle          State = "idle"
)

// Store is the part of the entity store a session needs.
type Store interface {
	Conversation(id string) (domain.Conversation, error)
	Agent(id string) (domain.Agent, error)
	Project(id string) (domain.Project, error)
	AppendMessage(ctx context.Context, conversationID string, m domain.Message) (domain.Message, error)
	SetConversationModel(ctx context.Context, id string, model domain.ModelID) (domain.Conversation, error)
	SetConversationTitle(ctx context.Context, id, title string) (domain.Conversation, error)
}

// Topic is reported for the first user message of a conversation.
type Topic struct {
	ConversationID string `json:"conversationId"`
	ProjectID      string `json:"projectId,omitempty"`
	AgentID        string `json:"agentId"`
	Text           string `json:"text"`
}

// Config tunes reply handling.
type Config struct {
	ReplyTimeout time.Duration
	TitleLength  int
	MaxTokens    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithHooks sets the manager that receives topic events.
func WithHooks(h *hooks.Manager) Option {
	return func(m *Manager) { m.hooks = h }
}

// WithTopicHandler registers a callback for detected topics. It runs on
// the goroutine that stores the first message and must not block.
func WithTopicHandler(fn func(context.Context, Topic)) Option {
	return func(m *Manager) { m.onTopic = fn }
}

// WithClock overrides the time source used in prompts.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

type session struct {
	running bool
	queue   []*Turn
}

// Manager owns the reply workers of every conversation. A conversation
// has at most one provider call in flight; later messages wait in FIFO
// order and are appended to the transcript when they are dispatched.
type Manager struct {
	store   Store
	client  llm.Client
	cfg     Config
	hooks   *hooks.Manager
	onTopic func(context.Context, Topic)
	now     func() time.Time
	log     *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewManager creates a session manager.
func NewManager(store Store, client llm.Client, cfg Config, log *logging.Logger, opts ...Option) *Manager {
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 2 * time.Minute
	}
	if cfg.TitleLength <= 0 {
		cfg.TitleLength = 60
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    store,
		client:   client,
		cfg:      cfg,
		now:      time.Now,
		log:      log.Sub("conversation"),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AppendUserMessage submits text to the conversation and returns a turn
// that resolves with the assistant reply. When the conversation is idle
// the user message is stored before this returns; otherwise it is queued.
// The model is captured now, so a later SetModel does not affect it.
func (m *Manager) AppendUserMessage(ctx context.Context, conversationID, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &domain.ValidationError{Field: "content", Message: "is required"}
	}
	conv, err := m.store.Conversation(conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.Agent(conv.AgentID); err != nil {
		return nil, err
	}

	turn := newTurn(conversationID, text, conv.CurrentModel)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	sess, ok := m.sessions[conversationID]
	if !ok {
		sess = &session{}
		m.sessions[conversationID] = sess
	}
	if sess.running {
		sess.queue = append(sess.queue, turn)
		depth := len(sess.queue)
		m.mu.Unlock()
		m.log.Debug().Str("conversation", conversationID).Int("queued", depth).Msg("reply in flight, message queued")
		return turn, nil
	}
	sess.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if err := m.appendUser(ctx, turn); err != nil {
		go m.drain(conversationID, sess, nil)
		return nil, err
	}
	go m.drain(conversationID, sess, turn)
	return turn, nil
}

// appendUser stores the turn's message. Whether it opened the conversation
// is read back from the stored transcript, never from an earlier snapshot.
func (m *Manager) appendUser(ctx context.Context, t *Turn) error {
	msg, err := m.store.AppendMessage(ctx, t.ConversationID, domain.Message{
		Role:    domain.RoleUser,
		Content: t.text,
		Model:   t.Model,
	})
	if err != nil {
		return err
	}
	conv, err := m.store.Conversation(t.ConversationID)
	first := err == nil && len(conv.Messages) > 0 && conv.Messages[0].ID == msg.ID
	t.setUser(msg, first)
	if first {
		m.detectTopic(ctx, conv, t.text)
	}
	return nil
}

// drain resolves first, then every queued turn, until the queue is empty.
func (m *Manager) drain(conversationID string, sess *session, first *Turn) {
	defer m.wg.Done()

	t := first
	for {
		if t != nil {
			m.reply(t)
		}

		m.mu.Lock()
		if m.closed || len(sess.queue) == 0 {
			pending := sess.queue
			sess.queue = nil
			sess.running = false
			delete(m.sessions, conversationID)
			m.mu.Unlock()
			for _, q := range pending {
				q.finish(domain.Message{}, ErrClosed)
			}
			return
		}
		t = sess.queue[0]
		sess.queue = sess.queue[1:]
		m.mu.Unlock()

		if err := m.appendUser(m.ctx, t); err != nil {
			m.log.Warn().Err(err).Str("conversation", conversationID).Msg("queued message rejected")
			t.finish(domain.Message{}, err)
			t = nil
		}
	}
}

// reply makes the provider call for t and appends the assistant message.
// On failure the user message stays and nothing else is appended.
func (m *Manager) reply(t *Turn) {
	conv, err := m.store.Conversation(t.ConversationID)
	if err != nil {
		t.finish(domain.Message{}, err)
		return
	}
	agent, err := m.store.Agent(conv.AgentID)
	if err != nil {
		t.finish(domain.Message{}, err)
		return
	}
	var project *domain.Project
	if conv.ProjectID != "" {
		if p, err := m.store.Project(conv.ProjectID); err == nil {
			project = &p
		}
	}

	history := make([]llm.Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		history = append(history, llm.Message{Role: string(msg.Role), Content: msg.Content})
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.ReplyTimeout)
	defer cancel()

	start := time.Now()
	resp, err := m.client.Complete(ctx, llm.CompletionRequest{
		Model:     string(t.Model),
		System:    BuildSystemPrompt(PromptConfig{Agent: agent, Project: project, Model: t.Model, Now: m.now()}),
		Messages:  history,
		MaxTokens: m.cfg.MaxTokens,
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = &llm.ProviderError{Provider: m.client.Name(), Model: string(t.Model), Message: "empty completion"}
	}
	if err != nil {
		pe := llm.AsProviderError(m.client.Name(), string(t.Model), err)
		m.log.Warn().
			Err(pe).
			Str("conversation", t.ConversationID).
			Str("model", string(t.Model)).
			Bool("timeout", pe.Timeout()).
			Msg("reply failed")
		t.finish(domain.Message{}, pe)
		return
	}

	msg, err := m.store.AppendMessage(m.ctx, t.ConversationID, domain.Message{
		Role:    domain.RoleAssistant,
		Content: resp.Content,
		Model:   t.Model,
	})
	if err != nil {
		t.finish(domain.Message{}, fmt.Errorf("storing reply: %w", err))
		return
	}

	m.log.Info().
		Str("conversation", t.ConversationID).
		Str("agent", agent.ID).
		Str("model", string(t.Model)).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("reply appended")
	t.finish(msg, nil)
}

func (m *Manager) detectTopic(ctx context.Context, conv domain.Conversation, text string) {
	if conv.Title == "" {
		if _, err := m.store.SetConversationTitle(ctx, conv.ID, Title(text, m.cfg.TitleLength)); err != nil {
			m.log.Warn().Err(err).Str("conversation", conv.ID).Msg("failed to set title")
		}
	}
	topic := Topic{ConversationID: conv.ID, ProjectID: conv.ProjectID, AgentID: conv.AgentID, Text: text}
	if m.onTopic != nil {
		m.onTopic(ctx, topic)
	}
	m.hooks.Emit(ctx, hooks.EventTopicDetected, map[string]any{
		"id":             conv.ID,
		"conversationId": conv.ID,
		"projectId":      conv.ProjectID,
		"topic":          text,
	})
}

// Title shortens text to at most n runes, cutting at a word boundary.
func Title(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

// SetModel switches the model for messages submitted after this call.
func (m *Manager) SetModel(ctx context.Context, conversationID string, model domain.ModelID) (domain.Conversation, error) {
	conv, err := m.store.SetConversationModel(ctx, conversationID, model)
	if err != nil {
		return domain.Conversation{}, err
	}
	m.log.Info().Str("conversation", conversationID).Str("model", string(model)).Msg("model switched")
	return conv, nil
}

// State reports whether the conversation is empty, waiting for a reply or
// idle.
func (m *Manager) State(conversationID string) (State, error) {
	conv, err := m.store.Conversation(conversationID)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	sess, ok := m.sessions[conversationID]
	running := ok && sess.running
	m.mu.Unlock()

	switch {
	case running:
		return StateAwaitingReply, nil
	case len(conv.Messages) == 0:
		return StateEmpty, nil
	default:
		return StateIdle, nil
	}
}

// Pending returns how many messages wait behind the in-flight reply.
func (m *Manager) Pending(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[conversationID]; ok {
		return len(sess.queue)
	}
	return 0
}

// Close cancels in-flight replies, fails queued turns with ErrClosed and
// waits for the workers to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}
