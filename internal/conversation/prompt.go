package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/thecafe/internal/domain"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	Agent   domain.Agent
	Project *domain.Project
	Model   domain.ModelID
	Now     time.Time
}

// BuildSystemPrompt constructs the system prompt for a reply. The first
// line names the agent so providers and the offline echo can address it.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s.\n\n", cfg.Agent.Name)
	if cfg.Agent.SystemPrompt != "" {
		b.WriteString(cfg.Agent.SystemPrompt)
		b.WriteString("\n\n")
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	fmt.Fprintf(&b, "Current date: %s\n", now.Format("2006-01-02"))

	area := string(cfg.Agent.Domain)
	if d, ok := domain.LookupDomain(cfg.Agent.Domain); ok {
		area = d.Label
	}
	if cfg.Agent.SubCategory != "" {
		area += " / " + cfg.Agent.SubCategory
	}
	fmt.Fprintf(&b, "Domain: %s\n", area)
	if cfg.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", cfg.Model)
	}

	if p := cfg.Project; p != nil {
		fmt.Fprintf(&b, "Project: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, "Project brief: %s\n", p.Description)
		}
	}

	return b.String()
}
