package entity

import (
	"context"
	"fmt"
	"slices"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/hooks"
)

// CreateAgent validates the input and adds a new agent.
func (s *Store) CreateAgent(ctx context.Context, in domain.AgentInput) (domain.Agent, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Agent{}, err
	}

	now := s.now()
	a := buildAgent(s.newID(), in)
	a.CreatedAt = now
	a.UpdatedAt = now

	s.mu.Lock()
	if s.persist != nil {
		if err := s.persist.SaveAgent(ctx, a); err != nil {
			s.mu.Unlock()
			return domain.Agent{}, fmt.Errorf("persisting agent: %w", err)
		}
	}
	s.agents[a.ID] = a
	s.commit()
	s.mu.Unlock()

	s.log.Info().Str("agent", a.ID).Str("name", a.Name).Msg("agent created")
	s.emit(ctx, hooks.EventAgentCreated, map[string]any{"id": a.ID, "agent": a})
	return a, nil
}

// UpdateAgent applies a partial update. The resulting agent is validated as
// a whole and its name re-derived.
func (s *Store) UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) (domain.Agent, error) {
	s.mu.Lock()
	cur, ok := s.agents[id]
	if !ok {
		s.mu.Unlock()
		return domain.Agent{}, domain.NotFound("agent", id)
	}

	in := patch.Apply(cur.Input()).Normalize()
	if err := in.Validate(); err != nil {
		s.mu.Unlock()
		return domain.Agent{}, err
	}
	a := buildAgent(cur.ID, in)
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = s.now()

	if s.persist != nil {
		if err := s.persist.SaveAgent(ctx, a); err != nil {
			s.mu.Unlock()
			return domain.Agent{}, fmt.Errorf("persisting agent: %w", err)
		}
	}
	s.agents[id] = a
	s.commit()
	s.mu.Unlock()

	s.log.Info().Str("agent", id).Msg("agent updated")
	s.emit(ctx, hooks.EventAgentUpdated, map[string]any{"id": id, "agent": a})
	return a, nil
}

// DeleteAgent removes the agent and its membership in every project.
// Conversations keep the agent id but can no longer receive messages.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	a, ok := s.agents[id]
	if !ok {
		s.mu.Unlock()
		return domain.NotFound("agent", id)
	}
	if s.persist != nil {
		if err := s.persist.DeleteAgent(ctx, id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("deleting agent: %w", err)
		}
	}

	delete(s.agents, id)
	var affected []domain.Project
	for pid, p := range s.projects {
		idx := slices.Index(p.AgentIDs, id)
		if idx < 0 {
			continue
		}
		p.AgentIDs = slices.Delete(slices.Clone(p.AgentIDs), idx, idx+1)
		s.projects[pid] = p
		affected = append(affected, s.projectView(p))
	}
	s.commit()
	s.mu.Unlock()

	s.log.Info().Str("agent", id).Int("projects", len(affected)).Msg("agent deleted")
	s.emit(ctx, hooks.EventAgentDeleted, map[string]any{"id": id, "agent": a})
	for _, p := range affected {
		s.emit(ctx, hooks.EventProjectUpdated, map[string]any{"id": p.ID, "project": p})
	}
	return nil
}

// Agent returns the agent with the given id.
func (s *Store) Agent(id string) (domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return domain.Agent{}, domain.NotFound("agent", id)
	}
	return a, nil
}

// Agents returns every agent ordered by name, then id.
func (s *Store) Agents() []domain.Agent {
	s.mu.RLock()
	out := make([]domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, byNameThenID)
	return out
}

func buildAgent(id string, in domain.AgentInput) domain.Agent {
	return domain.Agent{
		ID:             id,
		Role:           in.Role,
		Specialization: in.Specialization,
		Name:           domain.AgentName(in.Role, in.Specialization),
		Emoji:          in.Emoji,
		Domain:         in.Domain,
		SubCategory:    in.SubCategory,
		Description:    in.Description,
		DefaultModel:   in.DefaultModel,
		SystemPrompt:   in.SystemPrompt,
	}
}
