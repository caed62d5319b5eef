package domain

import (
	"strings"
	"time"
)

// Project defaults.
const (
	DefaultProjectEmoji = "📁"
	DefaultProjectColor = "#8b4049"
)

// ProjectColors lists the palette offered when creating a project.
var ProjectColors = []string{"#8b4049", "#c9a961", "#8b9a7a", "#6b4e3d", "#4a3428"}

// Project is a named workspace grouping agents and conversations.
type Project struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Emoji             string    `json:"emoji"`
	Color             string    `json:"color"`
	AgentIDs          []string  `json:"agentIds"`
	AgentCount        int       `json:"agentCount"`
	ConversationCount int       `json:"conversationCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// HasAgent reports whether agentID is a member of the project.
func (p Project) HasAgent(agentID string) bool {
	for _, id := range p.AgentIDs {
		if id == agentID {
			return true
		}
	}
	return false
}

// ProjectInput holds the fields accepted when creating a project.
type ProjectInput struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Emoji       string   `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Color       string   `json:"color,omitempty" yaml:"color,omitempty"`
	AgentIDs    []string `json:"agentIds,omitempty" yaml:"agentIds,omitempty"`
}

// ProjectPatch carries a partial project update.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Emoji       *string `json:"emoji,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// Normalize trims the input and fills defaults.
func (in ProjectInput) Normalize() ProjectInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Emoji = strings.TrimSpace(in.Emoji)
	in.Color = strings.TrimSpace(in.Color)
	if in.Emoji == "" {
		in.Emoji = DefaultProjectEmoji
	}
	if in.Color == "" {
		in.Color = DefaultProjectColor
	}
	return in
}

// Validate checks the project fields.
func (in ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	return nil
}

// Apply overlays the patch on an input.
func (p ProjectPatch) Apply(in ProjectInput) ProjectInput {
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Emoji != nil {
		in.Emoji = *p.Emoji
	}
	if p.Color != nil {
		in.Color = *p.Color
	}
	return in
}
