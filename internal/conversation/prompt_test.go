package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPrompt(t *testing.T) {
	agent := domain.Agent{
		ID:           "a1",
		Name:         "Growth Lead - Paid Acquisition",
		Domain:       domain.DomainMarketing,
		SubCategory:  "advertising",
		SystemPrompt: "Keep budgets honest.",
	}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("agent only", func(t *testing.T) {
		got := BuildSystemPrompt(PromptConfig{Agent: agent, Model: "gpt-4", Now: now})
		assert.True(t, strings.HasPrefix(got, "You are Growth Lead - Paid Acquisition.\n\nKeep budgets honest.\n\n"))
		assert.Contains(t, got, "Current date: 2026-03-14\n")
		assert.Contains(t, got, "Domain: Marketing / advertising\n")
		assert.Contains(t, got, "Model: gpt-4\n")
		assert.NotContains(t, got, "Project:")
	})

	t.Run("with project", func(t *testing.T) {
		p := &domain.Project{Name: "Spring Launch", Description: "Ship the beta to 500 teams."}
		got := BuildSystemPrompt(PromptConfig{Agent: agent, Project: p, Now: now})
		assert.Contains(t, got, "Project: Spring Launch\n")
		assert.Contains(t, got, "Project brief: Ship the beta to 500 teams.\n")
		assert.NotContains(t, got, "Model:")
	})

	t.Run("unknown domain", func(t *testing.T) {
		a := domain.Agent{Name: "Odd - One", Domain: "astrology"}
		got := BuildSystemPrompt(PromptConfig{Agent: a, Now: now})
		assert.Contains(t, got, "Domain: astrology\n")
		assert.True(t, strings.HasPrefix(got, "You are Odd - One.\n\nCurrent date:"))
	})
}
