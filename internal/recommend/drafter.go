package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/soyeahso/thecafe/internal/logging"
)

const draftSystemPrompt = `You design specialist AI agents for an agent library.
Reply with a single JSON object and nothing else, using the keys
"role", "specialization", "emoji", "description" and "systemPrompt".
The description is one or two sentences. The systemPrompt addresses the
agent in the second person and starts with "You are".`

// Drafter turns a capability gap into a concrete agent definition.
type Drafter struct {
	client llm.Client
	model  domain.ModelID
	log    *logging.Logger
}

// NewDrafter creates a drafter. A nil client drafts from the template only.
func NewDrafter(client llm.Client, model domain.ModelID, log *logging.Logger) *Drafter {
	if model == "" {
		model = domain.DefaultModel
	}
	return &Drafter{client: client, model: model, log: log.Sub("drafter")}
}

type draftReply struct {
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	Emoji          string `json:"emoji"`
	Description    string `json:"description"`
	SystemPrompt   string `json:"systemPrompt"`
}

// Draft asks the model for a definition of the missing agent. Replies that
// cannot be parsed or fail validation fall back to the template; provider
// failures are returned as *llm.ProviderError. The gap's domain and
// sub-category are always kept.
func (d *Drafter) Draft(ctx context.Context, gap domain.MissingAgent) (domain.AgentInput, error) {
	tmpl := Template(gap, d.model)
	if d.client == nil {
		return tmpl, nil
	}

	resp, err := d.client.Complete(ctx, llm.CompletionRequest{
		Model:  string(d.model),
		System: draftSystemPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: draftPrompt(gap),
		}},
	})
	if err != nil {
		return domain.AgentInput{}, llm.AsProviderError(d.client.Name(), string(d.model), err)
	}

	var reply draftReply
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &reply); err != nil {
		d.log.Warn().Err(err).Str("suggestedName", gap.SuggestedName).Msg("unparseable draft, using template")
		return tmpl, nil
	}

	in := domain.AgentInput{
		Role:           reply.Role,
		Specialization: reply.Specialization,
		Emoji:          reply.Emoji,
		Domain:         gap.Domain,
		SubCategory:    gap.SubCategory,
		Description:    reply.Description,
		DefaultModel:   d.model,
		SystemPrompt:   reply.SystemPrompt,
	}.Normalize()
	if in.Emoji == domain.DefaultAgentEmoji && gap.Emoji != "" {
		in.Emoji = gap.Emoji
	}
	if err := in.Validate(); err != nil {
		d.log.Warn().Err(err).Str("suggestedName", gap.SuggestedName).Msg("invalid draft, using template")
		return tmpl, nil
	}
	return in, nil
}

// Template builds a deterministic definition from the gap alone.
func Template(gap domain.MissingAgent, model domain.ModelID) domain.AgentInput {
	role, spec, ok := strings.Cut(gap.SuggestedName, " - ")
	if !ok {
		role, spec = gap.SuggestedName, "Generalist"
	}
	area := string(gap.Domain)
	if gap.SubCategory != "" {
		area += " / " + gap.SubCategory
	}
	focus := "the request at hand"
	if len(gap.Keywords) > 0 {
		focus = strings.Join(gap.Keywords, ", ")
	}

	name := domain.AgentName(role, spec)
	return domain.AgentInput{
		Role:           role,
		Specialization: spec,
		Emoji:          gap.Emoji,
		Domain:         gap.Domain,
		SubCategory:    gap.SubCategory,
		Description:    fmt.Sprintf("%s specialist for %s work, focused on %s.", spec, area, focus),
		DefaultModel:   model,
		SystemPrompt: fmt.Sprintf("You are %s, a %s specialist in %s. Focus on %s. "+
			"Ask clarifying questions when the brief is ambiguous and keep answers practical.",
			name, strings.ToLower(role), area, focus),
	}.Normalize()
}

func draftPrompt(gap domain.MissingAgent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggested name: %s\n", gap.SuggestedName)
	fmt.Fprintf(&b, "Domain: %s\n", gap.Domain)
	if gap.SubCategory != "" {
		fmt.Fprintf(&b, "Sub-category: %s\n", gap.SubCategory)
	}
	if len(gap.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(gap.Keywords, ", "))
	}
	fmt.Fprintf(&b, "Why it is needed: %s\n", gap.Reasoning)
	return b.String()
}

// extractJSON returns the outermost object in s, tolerating code fences
// and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// Creator is the write side of the entity store used for promotion.
type Creator interface {
	CreateAgent(ctx context.Context, in domain.AgentInput) (domain.Agent, error)
	AddAgentsToProject(ctx context.Context, projectID string, agentIDs []string) (domain.Project, error)
}

// Promote drafts the gap, creates the agent and, when projectID is set,
// adds it to that project.
func (d *Drafter) Promote(ctx context.Context, store Creator, gap domain.MissingAgent, projectID string) (domain.Agent, error) {
	in, err := d.Draft(ctx, gap)
	if err != nil {
		return domain.Agent{}, err
	}
	agent, err := store.CreateAgent(ctx, in)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("creating drafted agent: %w", err)
	}
	if projectID != "" {
		if _, err := store.AddAgentsToProject(ctx, projectID, []string{agent.ID}); err != nil {
			return agent, fmt.Errorf("adding drafted agent to project: %w", err)
		}
	}
	d.log.Info().Str("agent", agent.ID).Str("name", agent.Name).Str("project", projectID).Msg("gap promoted to agent")
	return agent, nil
}
