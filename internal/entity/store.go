// Package entity holds the in-memory source of truth for agents, projects
// and conversations, with optional write-through persistence.
package entity

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/hooks"
	"github.com/soyeahso/thecafe/internal/logging"
)

// Store owns every agent, project and conversation. All reads return
// copies; all mutations are atomic and emit a lifecycle event before they
// return.
type Store struct {
	mu            sync.RWMutex
	agents        map[string]domain.Agent
	projects      map[string]domain.Project
	conversations map[string]domain.Conversation
	version       uint64

	persist Persister
	hooks   *hooks.Manager
	log     *logging.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithPersister enables write-through persistence.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithHooks sets the manager that receives lifecycle events.
func WithHooks(h *hooks.Manager) Option {
	return func(s *Store) { s.hooks = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store.
func New(log *logging.Logger, opts ...Option) *Store {
	s := &Store{
		agents:        make(map[string]domain.Agent),
		projects:      make(map[string]domain.Project),
		conversations: make(map[string]domain.Conversation),
		log:           log.Sub("entity"),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persister's snapshot.
// Without a persister it is a no-op.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}

	s.mu.Lock()
	s.agents = make(map[string]domain.Agent, len(snap.Agents))
	for _, a := range snap.Agents {
		s.agents[a.ID] = a
	}
	s.projects = make(map[string]domain.Project, len(snap.Projects))
	for _, p := range snap.Projects {
		p.AgentIDs = sortedUnique(p.AgentIDs)
		s.projects[p.ID] = p
	}
	s.conversations = make(map[string]domain.Conversation, len(snap.Conversations))
	for _, c := range snap.Conversations {
		s.conversations[c.ID] = c
	}
	s.version++
	s.mu.Unlock()

	s.log.Info().
		Int("agents", len(snap.Agents)).
		Int("projects", len(snap.Projects)).
		Int("conversations", len(snap.Conversations)).
		Msg("entities loaded")
	return nil
}

// Version returns a counter that increases with every committed mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Stats summarizes the store contents.
type Stats struct {
	Agents        int `json:"agents"`
	Projects      int `json:"projects"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
}

// Stats returns entity counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Agents:        len(s.agents),
		Projects:      len(s.projects),
		Conversations: len(s.conversations),
	}
	for _, c := range s.conversations {
		st.Messages += len(c.Messages)
	}
	return st
}

// Empty reports whether the store holds no agents and no projects.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents) == 0 && len(s.projects) == 0
}

func (s *Store) emit(ctx context.Context, event string, data map[string]any) {
	s.hooks.Emit(ctx, event, data)
}

// commit must be called with the write lock held.
func (s *Store) commit() { s.version++ }

func sortedUnique(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func byNameThenID(a, b domain.Agent) int {
	return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
}
