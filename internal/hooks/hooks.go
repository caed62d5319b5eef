// Package hooks provides an event-driven hook system for entity lifecycle
// and server events.
package hooks

import (
	"context"
	"sync"

	"github.com/soyeahso/thecafe/internal/logging"
)

// Event names for the hook system.
const (
	EventAgentCreated        = "agent.created"
	EventAgentUpdated        = "agent.updated"
	EventAgentDeleted        = "agent.deleted"
	EventProjectCreated      = "project.created"
	EventProjectUpdated      = "project.updated"
	EventProjectDeleted      = "project.deleted"
	EventConversationCreated = "conversation.created"
	EventConversationUpdated = "conversation.updated"
	EventConversationDeleted = "conversation.deleted"
	EventMessageAppended     = "message.appended"
	EventTopicDetected       = "topic.detected"
	EventGatewayStart        = "gateway.start"
	EventGatewayStop         = "gateway.stop"
)

// AgentEvents are emitted whenever the agent catalog changes.
var AgentEvents = []string{EventAgentCreated, EventAgentUpdated, EventAgentDeleted}

// EntityEvents are emitted by every entity store mutation.
var EntityEvents = []string{
	EventAgentCreated,
	EventAgentUpdated,
	EventAgentDeleted,
	EventProjectCreated,
	EventProjectUpdated,
	EventProjectDeleted,
	EventConversationCreated,
	EventConversationUpdated,
	EventConversationDeleted,
	EventMessageAppended,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// ID returns the "id" entry of the payload data, if it is a string.
func (p Payload) ID() string {
	id, _ := p.Data["id"].(string)
	return id
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and for Off.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// OnEach registers the same handler for several events.
func (m *Manager) OnEach(events []string, name string, handler Handler) {
	for _, event := range events {
		m.On(event, name, handler)
	}
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

// OffEach removes the named handler from several events.
func (m *Manager) OffEach(events []string, name string) {
	for _, event := range events {
		m.Off(event, name)
	}
}

// Emit dispatches an event to all registered handlers synchronously, in
// registration order. Handler errors are logged and do not stop later
// handlers. A nil manager is a no-op.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	if m == nil {
		return
	}
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}
	for _, h := range handlers {
		if err := h.handler(ctx, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the list of events that have at least one handler registered.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	return events
}
