package recommend

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

type fakeSource struct {
	agents     []domain.Agent
	projects   map[string]domain.Project
	version    atomic.Uint64
	agentCalls atomic.Int32
}

func (f *fakeSource) Agents() []domain.Agent {
	f.agentCalls.Add(1)
	return f.agents
}

func (f *fakeSource) Project(id string) (domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return domain.Project{}, domain.NotFound("project", id)
	}
	return p, nil
}

func (f *fakeSource) Version() uint64 { return f.version.Load() }

func agent(id, role, spec string, d domain.DomainValue, sub, desc string) domain.Agent {
	return domain.Agent{
		ID: id, Role: role, Specialization: spec, Name: domain.AgentName(role, spec),
		Emoji: "🤖", Domain: d, SubCategory: sub, Description: desc,
	}
}

func testCatalog() *fakeSource {
	return &fakeSource{
		agents: []domain.Agent{
			agent("a1", "Copywriter", "Email Campaigns", domain.DomainMarketing, "copywriting",
				"Writes high-converting email sequences and landing page copy."),
			agent("a2", "Backend Engineer", "Python APIs", domain.DomainEngineering, "backend",
				"Builds REST services."),
			agent("a3", "Marketing Strategist", "B2B SaaS", domain.DomainMarketing, "strategy",
				"Plans product launches and positioning."),
		},
		projects: map[string]domain.Project{
			"p1": {ID: "p1", Name: "Spring Launch", Description: "Email nurture for trial users", AgentIDs: []string{"a1", "a2"}},
			"p2": {ID: "p2", Name: "Growth", AgentIDs: []string{"a3"}},
		},
	}
}

func ref(a domain.Agent) domain.AgentRef { return a.Ref() }

func TestAnalyzeTopicAcrossCatalog(t *testing.T) {
	src := testCatalog()
	e := NewEngine(src, DefaultConfig(), silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "Email drip campaign for our SaaS launch"})
	require.NoError(t, err)

	want := Result{
		Keywords: []string{"campaign", "drip", "email", "launch", "saas"},
		Suggestions: []domain.SuggestedAgent{
			{Agent: ref(src.agents[0]), MatchReason: "Matches specialization (campaign, email); description (email)", MatchScore: 48},
			{Agent: ref(src.agents[2]), MatchReason: "Matches specialization (saas)", MatchScore: 20},
		},
		Missing: []domain.MissingAgent{
			{
				SuggestedName: "Campaign Manager - Drip Sequences",
				Emoji:         "📧",
				Reasoning:     "Topic calls for campaign orchestration (campaign, drip, email) but no agent in the library covers it",
				Domain:        domain.DomainMarketing,
				SubCategory:   "advertising",
				Keywords:      []string{"campaign", "drip", "email"},
			},
			{
				SuggestedName: "Marketing Strategist - Go-To-Market",
				Emoji:         "📊",
				Reasoning:     "Topic calls for go-to-market planning (launch, saas) but no agent in the library covers it",
				Domain:        domain.DomainMarketing,
				SubCategory:   "strategy",
				Keywords:      []string{"launch", "saas"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeEmptyTopicNoProject(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig(), silentLog())

	for _, topic := range []string{"", "   ", "the and of"} {
		got, err := e.Analyze(context.Background(), Query{Topic: topic})
		require.NoError(t, err, topic)
		assert.Empty(t, got.Keywords, topic)
		assert.Empty(t, got.Suggestions, topic)
		assert.Empty(t, got.Missing, topic)
	}
}

func TestAnalyzeProjectMembersOnly(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig(), silentLog())

	got, err := e.Analyze(context.Background(), Query{ProjectID: "p1"})
	require.NoError(t, err)

	require.Len(t, got.Suggestions, 2)
	assert.Equal(t, "a1", got.Suggestions[0].Agent.ID)
	assert.Equal(t, "a2", got.Suggestions[1].Agent.ID)
	for _, s := range got.Suggestions {
		assert.Equal(t, 10, s.MatchScore)
		assert.Equal(t, "Already in Spring Launch", s.MatchReason)
	}

	names := make([]string, len(got.Missing))
	for i, m := range got.Missing {
		names[i] = m.SuggestedName
	}
	assert.Equal(t, []string{
		"Campaign Manager - Drip Sequences",
		"UX Researcher - User Interviews",
		"Marketing Strategist - Go-To-Market",
	}, names)
	assert.Equal(t,
		"Topic calls for campaign orchestration (email, nurture) but no agent in Spring Launch covers it",
		got.Missing[0].Reasoning)
}

func TestAnalyzeCatalogScopeGivesMemberBonus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scope = ScopeCatalog
	e := NewEngine(testCatalog(), cfg, silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "email drip campaign for our saas launch", ProjectID: "p2"})
	require.NoError(t, err)

	require.Len(t, got.Suggestions, 2)
	assert.Equal(t, "a1", got.Suggestions[0].Agent.ID)
	assert.Equal(t, 48, got.Suggestions[0].MatchScore)
	assert.Equal(t, "a3", got.Suggestions[1].Agent.ID)
	assert.Equal(t, 30, got.Suggestions[1].MatchScore)
	assert.Equal(t, "Matches specialization (saas). Already in Growth", got.Suggestions[1].MatchReason)

	// a3 now scores 30 in marketing/strategy, which covers go-to-market.
	require.Len(t, got.Missing, 1)
	assert.Equal(t, "Campaign Manager - Drip Sequences", got.Missing[0].SuggestedName)
	assert.Contains(t, got.Missing[0].Reasoning, "no agent in the library")
}

func TestAnalyzeCoveredClusterIsNotAGap(t *testing.T) {
	src := testCatalog()
	src.agents = append(src.agents, agent("a4", "Campaign Manager", "Email Drip", domain.DomainMarketing,
		"advertising", "Runs lifecycle campaigns."))
	e := NewEngine(src, DefaultConfig(), silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "email drip campaign for our saas launch"})
	require.NoError(t, err)

	assert.Equal(t, "a4", got.Suggestions[0].Agent.ID)
	assert.Equal(t, 63, got.Suggestions[0].MatchScore)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, "Marketing Strategist - Go-To-Market", got.Missing[0].SuggestedName)
}

func TestAnalyzeUncategorizedAgentCoversByKeyword(t *testing.T) {
	src := &fakeSource{agents: []domain.Agent{
		agent("x", "SEO Specialist", "Search Ranking", domain.DomainContent, "", "Improves organic search ranking."),
	}}
	e := NewEngine(src, DefaultConfig(), silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "seo search ranking"})
	require.NoError(t, err)
	require.Len(t, got.Suggestions, 1)
	assert.GreaterOrEqual(t, got.Suggestions[0].MatchScore, 30)
	assert.Empty(t, got.Missing)
}

func TestAnalyzeTieBreaksByID(t *testing.T) {
	src := &fakeSource{agents: []domain.Agent{
		agent("zeta", "Editor", "Tone", domain.DomainContent, "editing", "Edits."),
		agent("alpha", "Editor", "Tone", domain.DomainContent, "editing", "Edits."),
		agent("mid", "Editor", "Tone", domain.DomainContent, "editing", "Edits."),
	}}
	e := NewEngine(src, DefaultConfig(), silentLog())

	for range 3 {
		got, err := e.Analyze(context.Background(), Query{Topic: "tone"})
		require.NoError(t, err)
		ids := []string{got.Suggestions[0].Agent.ID, got.Suggestions[1].Agent.ID, got.Suggestions[2].Agent.ID}
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, ids)
	}
}

func TestAnalyzeClampsAndTruncates(t *testing.T) {
	src := &fakeSource{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		src.agents = append(src.agents, agent(id, "Video Producer", "Youtube Scripts Storyboard", domain.DomainContent, "video", "Scripts."))
	}
	cfg := DefaultConfig()
	cfg.Weights.Specialization = 60
	e := NewEngine(src, cfg, silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "youtube script storyboard"})
	require.NoError(t, err)
	require.Len(t, got.Suggestions, 5)
	for _, s := range got.Suggestions {
		assert.Equal(t, 100, s.MatchScore)
	}
	assert.Equal(t, "e", got.Suggestions[4].Agent.ID)
}

func TestAnalyzeMinScoreFilters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScore = 20
	e := NewEngine(testCatalog(), cfg, silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "email drip campaign for our saas launch"})
	require.NoError(t, err)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "a1", got.Suggestions[0].Agent.ID)
}

func TestAnalyzeUnknownProject(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig(), silentLog())

	_, err := e.Analyze(context.Background(), Query{Topic: "email", ProjectID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyzeCanceledContext(t *testing.T) {
	e := NewEngine(testCatalog(), DefaultConfig(), silentLog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Analyze(ctx, Query{Topic: "email"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeMemoInvalidatedByVersion(t *testing.T) {
	src := testCatalog()
	e := NewEngine(src, DefaultConfig(), silentLog())
	ctx := context.Background()

	first, err := e.Analyze(ctx, Query{Topic: "Email campaigns"})
	require.NoError(t, err)
	_, err = e.Analyze(ctx, Query{Topic: "campaign EMAIL"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.agentCalls.Load(), "normalized topic should hit the memo")

	// Mutating a returned result must not leak into the memo.
	first.Suggestions[0].MatchScore = -1
	again, err := e.Analyze(ctx, Query{Topic: "email campaigns"})
	require.NoError(t, err)
	assert.Equal(t, 48, again.Suggestions[0].MatchScore)

	src.version.Add(1)
	_, err = e.Analyze(ctx, Query{Topic: "email campaigns"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.agentCalls.Load())
}

func TestNewEngineNormalizesClusterKeywords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clusters = []Cluster{{
		Key: "custom", Domain: domain.DomainBusiness, SubCategory: "finance",
		Role: "Analyst", Specialization: "Pricing", Emoji: "💵", Capability: "pricing",
		Keywords: []string{"Pricing Strategies"},
	}}
	e := NewEngine(&fakeSource{}, cfg, silentLog())

	got, err := e.Analyze(context.Background(), Query{Topic: "pricing strategy"})
	require.NoError(t, err)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, []string{"pricing", "strategy"}, got.Missing[0].Keywords)
}
