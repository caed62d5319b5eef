package domain

import (
	"strings"
	"time"
)

// DefaultAgentEmoji is used when an agent is created without one.
const DefaultAgentEmoji = "🤖"

// Agent is a persistent AI persona in the library.
type Agent struct {
	ID             string      `json:"id"`
	Role           string      `json:"role"`
	Specialization string      `json:"specialization"`
	Name           string      `json:"name"`
	Emoji          string      `json:"emoji"`
	Domain         DomainValue `json:"domain"`
	SubCategory    string      `json:"subCategory,omitempty"`
	Description    string      `json:"description"`
	DefaultModel   ModelID     `json:"defaultModel"`
	SystemPrompt   string      `json:"systemPrompt"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// AgentName derives the display name shown everywhere in the library.
func AgentName(role, specialization string) string {
	return strings.TrimSpace(role) + " - " + strings.TrimSpace(specialization)
}

// AgentInput holds the fields accepted when creating an agent.
type AgentInput struct {
	Role           string      `json:"role" yaml:"role"`
	Specialization string      `json:"specialization" yaml:"specialization"`
	Emoji          string      `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Domain         DomainValue `json:"domain" yaml:"domain"`
	SubCategory    string      `json:"subCategory,omitempty" yaml:"subCategory,omitempty"`
	Description    string      `json:"description" yaml:"description"`
	DefaultModel   ModelID     `json:"defaultModel,omitempty" yaml:"defaultModel,omitempty"`
	SystemPrompt   string      `json:"systemPrompt" yaml:"systemPrompt"`
}

// AgentPatch carries a partial update. Nil fields are left unchanged.
type AgentPatch struct {
	Role           *string      `json:"role,omitempty"`
	Specialization *string      `json:"specialization,omitempty"`
	Emoji          *string      `json:"emoji,omitempty"`
	Domain         *DomainValue `json:"domain,omitempty"`
	SubCategory    *string      `json:"subCategory,omitempty"`
	Description    *string      `json:"description,omitempty"`
	DefaultModel   *ModelID     `json:"defaultModel,omitempty"`
	SystemPrompt   *string      `json:"systemPrompt,omitempty"`
}

// Normalize trims the input and fills defaults. It does not validate.
func (in AgentInput) Normalize() AgentInput {
	in.Role = strings.TrimSpace(in.Role)
	in.Specialization = strings.TrimSpace(in.Specialization)
	in.Emoji = strings.TrimSpace(in.Emoji)
	in.SubCategory = strings.TrimSpace(in.SubCategory)
	in.Description = strings.TrimSpace(in.Description)
	in.SystemPrompt = strings.TrimSpace(in.SystemPrompt)
	if in.Emoji == "" {
		in.Emoji = DefaultAgentEmoji
	}
	if in.DefaultModel == "" {
		in.DefaultModel = DefaultModel
	}
	return in
}

// Validate checks the required fields and the domain taxonomy.
func (in AgentInput) Validate() error {
	required := []struct {
		field, value string
	}{
		{"role", in.Role},
		{"specialization", in.Specialization},
		{"description", in.Description},
		{"systemPrompt", in.SystemPrompt},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}

	d, ok := LookupDomain(in.Domain)
	if !ok {
		return &ValidationError{Field: "domain", Message: "unknown domain " + quote(string(in.Domain))}
	}
	if in.SubCategory != "" && !d.HasSubCategory(in.SubCategory) {
		return &ValidationError{
			Field:   "subCategory",
			Message: quote(in.SubCategory) + " is not a sub-category of " + string(d.Value),
		}
	}
	if in.DefaultModel != "" && !IsKnownModel(in.DefaultModel) {
		return &ValidationError{Field: "defaultModel", Message: "unknown model " + quote(string(in.DefaultModel))}
	}
	return nil
}

// Input returns the mutable fields of the agent.
func (a Agent) Input() AgentInput {
	return AgentInput{
		Role:           a.Role,
		Specialization: a.Specialization,
		Emoji:          a.Emoji,
		Domain:         a.Domain,
		SubCategory:    a.SubCategory,
		Description:    a.Description,
		DefaultModel:   a.DefaultModel,
		SystemPrompt:   a.SystemPrompt,
	}
}

// Apply overlays the patch on an input.
func (p AgentPatch) Apply(in AgentInput) AgentInput {
	if p.Role != nil {
		in.Role = *p.Role
	}
	if p.Specialization != nil {
		in.Specialization = *p.Specialization
	}
	if p.Emoji != nil {
		in.Emoji = *p.Emoji
	}
	if p.Domain != nil {
		in.Domain = *p.Domain
	}
	if p.SubCategory != nil {
		in.SubCategory = *p.SubCategory
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.DefaultModel != nil {
		in.DefaultModel = *p.DefaultModel
	}
	if p.SystemPrompt != nil {
		in.SystemPrompt = *p.SystemPrompt
	}
	return in
}

func quote(s string) string { return "\"" + s + "\"" }
