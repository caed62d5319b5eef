package gateway

import (
	"github.com/soyeahso/thecafe/internal/domain"
)

type idParams struct {
	ID string `json:"id"`
}

func (rc *RequestContext) requireID() (string, bool) {
	var p idParams
	if !rc.Params(&p) {
		return "", false
	}
	if p.ID == "" {
		rc.RespondError(CodeInvalidParams, "id is required")
		return "", false
	}
	return p.ID, true
}

type agentsListParams struct {
	Domain      domain.DomainValue `json:"domain,omitempty"`
	SubCategory string             `json:"subCategory,omitempty"`
}

func (s *Server) rpcAgentsList(rc *RequestContext) {
	var p agentsListParams
	if !rc.Params(&p) {
		return
	}
	var agents []domain.Agent
	switch {
	case p.Domain != "" && p.SubCategory != "":
		agents = s.deps.Catalog.AgentsBySubCategory(p.Domain, p.SubCategory)
	case p.Domain != "":
		agents = s.deps.Catalog.AgentsByDomain(p.Domain)
	default:
		agents = s.deps.Store.Agents()
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	rc.Respond(map[string]any{"agents": agents})
}

func (s *Server) rpcAgentsGet(rc *RequestContext) {
	id, ok := rc.requireID()
	if !ok {
		return
	}
	a, err := s.deps.Store.Agent(id)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"agent": a})
}

func (s *Server) rpcAgentsCreate(rc *RequestContext) {
	var in domain.AgentInput
	if !rc.Params(&in) {
		return
	}
	a, err := s.deps.Store.CreateAgent(rc.Ctx, in)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"agent": a})
}

type agentsUpdateParams struct {
	ID string `json:"id"`
	domain.AgentPatch
}

func (s *Server) rpcAgentsUpdate(rc *RequestContext) {
	var p agentsUpdateParams
	if !rc.Params(&p) {
		return
	}
	if p.ID == "" {
		rc.RespondError(CodeInvalidParams, "id is required")
		return
	}
	a, err := s.deps.Store.UpdateAgent(rc.Ctx, p.ID, p.AgentPatch)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"agent": a})
}

func (s *Server) rpcAgentsDelete(rc *RequestContext) {
	id, ok := rc.requireID()
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteAgent(rc.Ctx, id); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"id": id, "deleted": true})
}

func (s *Server) rpcProjectsList(rc *RequestContext) {
	rc.Respond(map[string]any{"projects": s.deps.Store.Projects()})
}

// projectDetail is a project with its member agents and conversations.
type projectDetail struct {
	Project       domain.Project        `json:"project"`
	Agents        []domain.Agent        `json:"agents"`
	Conversations []conversationSummary `json:"conversations"`
}

func (s *Server) rpcProjectsGet(rc *RequestContext) {
	id, ok := rc.requireID()
	if !ok {
		return
	}
	p, err := s.deps.Store.Project(id)
	if err != nil {
		rc.Fail(err)
		return
	}
	agents, err := s.deps.Store.ProjectAgents(id)
	if err != nil {
		rc.Fail(err)
		return
	}
	convs := s.deps.Store.Conversations(id)
	detail := projectDetail{Project: p, Agents: agents, Conversations: make([]conversationSummary, 0, len(convs))}
	for _, c := range convs {
		detail.Conversations = append(detail.Conversations, s.summarize(c))
	}
	rc.Respond(detail)
}

func (s *Server) rpcProjectsCreate(rc *RequestContext) {
	var in domain.ProjectInput
	if !rc.Params(&in) {
		return
	}
	p, err := s.deps.Store.CreateProject(rc.Ctx, in)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"project": p})
}

type projectsUpdateParams struct {
	ID string `json:"id"`
	domain.ProjectPatch
}

func (s *Server) rpcProjectsUpdate(rc *RequestContext) {
	var p projectsUpdateParams
	if !rc.Params(&p) {
		return
	}
	if p.ID == "" {
		rc.RespondError(CodeInvalidParams, "id is required")
		return
	}
	pr, err := s.deps.Store.UpdateProject(rc.Ctx, p.ID, p.ProjectPatch)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"project": pr})
}

func (s *Server) rpcProjectsDelete(rc *RequestContext) {
	id, ok := rc.requireID()
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteProject(rc.Ctx, id); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"id": id, "deleted": true})
}

type projectsAddAgentsParams struct {
	ProjectID string   `json:"projectId"`
	AgentIDs  []string `json:"agentIds"`
}

// rpcProjectsAddAgents applies every known agent id. Unknown ids are
// listed in "rejected" rather than failing the whole call.
func (s *Server) rpcProjectsAddAgents(rc *RequestContext) {
	var p projectsAddAgentsParams
	if !rc.Params(&p) {
		return
	}
	if p.ProjectID == "" {
		rc.RespondError(CodeInvalidParams, "projectId is required")
		return
	}
	pr, err := s.deps.Store.AddAgentsToProject(rc.Ctx, p.ProjectID, p.AgentIDs)
	if err != nil && pr.ID == "" {
		rc.Fail(err)
		return
	}
	rejected := notFoundIDs(err)
	if rejected == nil {
		rejected = []string{}
	}
	rc.Respond(map[string]any{"project": pr, "rejected": rejected})
}

type projectsRemoveAgentParams struct {
	ProjectID string `json:"projectId"`
	AgentID   string `json:"agentId"`
}

func (s *Server) rpcProjectsRemoveAgent(rc *RequestContext) {
	var p projectsRemoveAgentParams
	if !rc.Params(&p) {
		return
	}
	if p.ProjectID == "" || p.AgentID == "" {
		rc.RespondError(CodeInvalidParams, "projectId and agentId are required")
		return
	}
	pr, err := s.deps.Store.RemoveAgentFromProject(rc.Ctx, p.ProjectID, p.AgentID)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"project": pr})
}
