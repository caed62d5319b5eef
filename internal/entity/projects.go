package entity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/hooks"
)

// CreateProject adds a project. Every agent id in the input must exist.
func (s *Store) CreateProject(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Project{}, err
	}

	s.mu.Lock()
	members := sortedUnique(in.AgentIDs)
	for _, id := range members {
		if _, ok := s.agents[id]; !ok {
			s.mu.Unlock()
			return domain.Project{}, domain.NotFound("agent", id)
		}
	}

	now := s.now()
	p := domain.Project{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Emoji:       in.Emoji,
		Color:       in.Color,
		AgentIDs:    members,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.persist != nil {
		if err := s.persist.SaveProject(ctx, p); err != nil {
			s.mu.Unlock()
			return domain.Project{}, fmt.Errorf("persisting project: %w", err)
		}
	}
	s.projects[p.ID] = p
	s.commit()
	view := s.projectView(p)
	s.mu.Unlock()

	s.log.Info().Str("project", p.ID).Str("name", p.Name).Msg("project created")
	s.emit(ctx, hooks.EventProjectCreated, map[string]any{"id": p.ID, "project": view})
	return view, nil
}

// UpdateProject applies a partial update to the project's descriptive fields.
func (s *Store) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (domain.Project, error) {
	s.mu.Lock()
	cur, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return domain.Project{}, domain.NotFound("project", id)
	}

	in := patch.Apply(domain.ProjectInput{
		Name:        cur.Name,
		Description: cur.Description,
		Emoji:       cur.Emoji,
		Color:       cur.Color,
	}).Normalize()
	if err := in.Validate(); err != nil {
		s.mu.Unlock()
		return domain.Project{}, err
	}

	p := cur
	p.Name = in.Name
	p.Description = in.Description
	p.Emoji = in.Emoji
	p.Color = in.Color
	p.UpdatedAt = s.now()
	view, err := s.saveProjectLocked(ctx, p)
	s.mu.Unlock()
	if err != nil {
		return domain.Project{}, err
	}

	s.emit(ctx, hooks.EventProjectUpdated, map[string]any{"id": id, "project": view})
	return view, nil
}

// DeleteProject removes the project. Its conversations are kept and
// detached from it.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	p, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return domain.NotFound("project", id)
	}
	if s.persist != nil {
		if err := s.persist.DeleteProject(ctx, id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("deleting project: %w", err)
		}
	}

	delete(s.projects, id)
	var detached []string
	for cid, c := range s.conversations {
		if c.ProjectID == id {
			c.ProjectID = ""
			s.conversations[cid] = c
			detached = append(detached, cid)
		}
	}
	s.commit()
	s.mu.Unlock()

	s.log.Info().Str("project", id).Int("detached", len(detached)).Msg("project deleted")
	s.emit(ctx, hooks.EventProjectDeleted, map[string]any{"id": id, "project": p})
	for _, cid := range detached {
		s.emit(ctx, hooks.EventConversationUpdated, map[string]any{"id": cid})
	}
	return nil
}

// AddAgentsToProject adds each known agent to the project. Agents already
// present are skipped. Unknown agent ids are reported together in the
// returned error while the valid ids still apply.
func (s *Store) AddAgentsToProject(ctx context.Context, projectID string, agentIDs []string) (domain.Project, error) {
	s.mu.Lock()
	cur, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return domain.Project{}, domain.NotFound("project", projectID)
	}

	var missing []error
	members := slices.Clone(cur.AgentIDs)
	changed := false
	for _, raw := range agentIDs {
		id := strings.TrimSpace(raw)
		if _, ok := s.agents[id]; !ok {
			missing = append(missing, domain.NotFound("agent", id))
			continue
		}
		if slices.Contains(members, id) {
			continue
		}
		members = append(members, id)
		changed = true
	}

	if !changed {
		view := s.projectView(cur)
		s.mu.Unlock()
		return view, errors.Join(missing...)
	}

	p := cur
	p.AgentIDs = sortedUnique(members)
	p.UpdatedAt = s.now()
	view, err := s.saveProjectLocked(ctx, p)
	s.mu.Unlock()
	if err != nil {
		return domain.Project{}, err
	}

	s.emit(ctx, hooks.EventProjectUpdated, map[string]any{"id": projectID, "project": view})
	return view, errors.Join(missing...)
}

// RemoveAgentFromProject drops a member. Removing a non-member is a no-op.
func (s *Store) RemoveAgentFromProject(ctx context.Context, projectID, agentID string) (domain.Project, error) {
	s.mu.Lock()
	cur, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return domain.Project{}, domain.NotFound("project", projectID)
	}
	idx := slices.Index(cur.AgentIDs, agentID)
	if idx < 0 {
		view := s.projectView(cur)
		s.mu.Unlock()
		return view, nil
	}

	p := cur
	p.AgentIDs = slices.Delete(slices.Clone(cur.AgentIDs), idx, idx+1)
	p.UpdatedAt = s.now()
	view, err := s.saveProjectLocked(ctx, p)
	s.mu.Unlock()
	if err != nil {
		return domain.Project{}, err
	}

	s.emit(ctx, hooks.EventProjectUpdated, map[string]any{"id": projectID, "project": view})
	return view, nil
}

// Project returns the project with the given id.
func (s *Store) Project(id string) (domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.Project{}, domain.NotFound("project", id)
	}
	return s.projectView(p), nil
}

// Projects returns every project ordered by name, then id.
func (s *Store) Projects() []domain.Project {
	s.mu.RLock()
	out := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, s.projectView(p))
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b domain.Project) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// ProjectAgents returns the project's member agents ordered by name.
func (s *Store) ProjectAgents(projectID string) ([]domain.Agent, error) {
	s.mu.RLock()
	p, ok := s.projects[projectID]
	if !ok {
		s.mu.RUnlock()
		return nil, domain.NotFound("project", projectID)
	}
	out := make([]domain.Agent, 0, len(p.AgentIDs))
	for _, id := range p.AgentIDs {
		if a, ok := s.agents[id]; ok {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, byNameThenID)
	return out, nil
}

// saveProjectLocked persists and commits p. The write lock must be held.
func (s *Store) saveProjectLocked(ctx context.Context, p domain.Project) (domain.Project, error) {
	if s.persist != nil {
		if err := s.persist.SaveProject(ctx, p); err != nil {
			return domain.Project{}, fmt.Errorf("persisting project: %w", err)
		}
	}
	s.projects[p.ID] = p
	s.commit()
	s.log.Debug().Str("project", p.ID).Int("agents", len(p.AgentIDs)).Msg("project saved")
	return s.projectView(p), nil
}

// projectView copies p and fills the derived counts. The lock must be held.
func (s *Store) projectView(p domain.Project) domain.Project {
	p.AgentIDs = slices.Clone(p.AgentIDs)
	if p.AgentIDs == nil {
		p.AgentIDs = []string{}
	}
	p.AgentCount = len(p.AgentIDs)
	p.ConversationCount = 0
	for _, c := range s.conversations {
		if c.ProjectID == p.ID {
			p.ConversationCount++
		}
	}
	return p
}
