// Package recommend ranks library agents against a conversation topic and
// detects capabilities that no available agent covers.
package recommend

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Scope selects the candidate pool when a project is active.
type Scope string

const (
	// ScopeMembers scores only the project's members.
	ScopeMembers Scope = "members"
	// ScopeCatalog scores the whole catalog and favours members with a bonus.
	ScopeCatalog Scope = "catalog"
)

// Weights are the points earned per topic keyword found in a field.
type Weights struct {
	Specialization int `yaml:"specialization" json:"specialization"`
	Role           int `yaml:"role" json:"role"`
	Domain         int `yaml:"domain" json:"domain"`
	Description    int `yaml:"description" json:"description"`
}

// Config tunes scoring and gap detection.
type Config struct {
	Weights        Weights
	MemberBonus    int
	MinScore       int
	CoverageScore  int
	MaxSuggestions int
	MaxGaps        int
	Scope          Scope
	Clusters       []Cluster
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Weights:        Weights{Specialization: 20, Role: 15, Domain: 12, Description: 8},
		MemberBonus:    10,
		MinScore:       0,
		CoverageScore:  30,
		MaxSuggestions: 5,
		MaxGaps:        3,
		Scope:          ScopeMembers,
		Clusters:       DefaultClusters,
	}
}

// Source is the read side of the entity store used by the engine.
type Source interface {
	Agents() []domain.Agent
	Project(id string) (domain.Project, error)
	Version() uint64
}

// Query is the context evaluated by the engine.
type Query struct {
	Topic     string `json:"topic"`
	ProjectID string `json:"projectId,omitempty"`
}

// Result is the intelligence panel content for a query.
type Result struct {
	Keywords    []string                `json:"keywords"`
	Suggestions []domain.SuggestedAgent `json:"suggestedAgents"`
	Missing     []domain.MissingAgent   `json:"missingAgents"`
}

func (r Result) clone() Result {
	r.Keywords = slices.Clone(r.Keywords)
	r.Suggestions = slices.Clone(r.Suggestions)
	r.Missing = slices.Clone(r.Missing)
	for i := range r.Missing {
		r.Missing[i].Keywords = slices.Clone(r.Missing[i].Keywords)
	}
	return r
}

type memoKey struct {
	topic     string
	projectID string
}

type memoEntry struct {
	version uint64
	result  Result
}

const maxMemoEntries = 512

// Engine is a deterministic scorer over a Source with a version-stamped
// memo.
type Engine struct {
	src      Source
	cfg      Config
	clusters []Cluster
	log      *logging.Logger

	group singleflight.Group
	mu    sync.Mutex
	memo  map[memoKey]memoEntry
}

// NewEngine creates an engine. Cluster keywords are normalized with the
// same tokenizer as topics.
func NewEngine(src Source, cfg Config, log *logging.Logger) *Engine {
	if cfg.Clusters == nil {
		cfg.Clusters = DefaultClusters
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeMembers
	}
	clusters := make([]Cluster, len(cfg.Clusters))
	for i, c := range cfg.Clusters {
		c.Keywords = Tokenize(strings.Join(c.Keywords, " "))
		clusters[i] = c
	}
	return &Engine{
		src:      src,
		cfg:      cfg,
		clusters: clusters,
		log:      log.Sub("recommend"),
		memo:     make(map[memoKey]memoEntry),
	}
}

// Analyze ranks agents for the query and lists capability gaps. An empty
// topic without a project yields an empty result. Results are memoized
// until the source's version changes.
func (e *Engine) Analyze(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	keywords := Tokenize(q.Topic)
	key := memoKey{topic: strings.Join(keywords, " "), projectID: q.ProjectID}
	version := e.src.Version()

	e.mu.Lock()
	if entry, ok := e.memo[key]; ok && entry.version == version {
		e.mu.Unlock()
		return entry.result.clone(), nil
	}
	e.mu.Unlock()

	flightKey := key.topic + "\x00" + key.projectID + "\x00" + strconv.FormatUint(version, 10)
	v, err, shared := e.group.Do(flightKey, func() (any, error) {
		res, err := e.evaluate(keywords, q.ProjectID)
		if err != nil {
			return Result{}, err
		}
		e.remember(key, version, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		e.log.Trace().Str("topic", key.topic).Msg("evaluation shared")
	}
	return v.(Result).clone(), nil
}

func (e *Engine) remember(key memoKey, version uint64, res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.memo) >= maxMemoEntries {
		clear(e.memo)
	}
	e.memo[key] = memoEntry{version: version, result: res}
}

type scored struct {
	agent   domain.Agent
	score   int
	member  bool
	reasons []string
}

func (e *Engine) evaluate(keywords []string, projectID string) (Result, error) {
	res := Result{
		Keywords:    keywords,
		Suggestions: []domain.SuggestedAgent{},
		Missing:     []domain.MissingAgent{},
	}

	var project *domain.Project
	if projectID != "" {
		p, err := e.src.Project(projectID)
		if err != nil {
			return Result{}, fmt.Errorf("resolving project: %w", err)
		}
		project = &p
	}
	if len(keywords) == 0 && project == nil {
		return res, nil
	}

	var pool []scored
	for _, a := range e.src.Agents() {
		member := project != nil && project.HasAgent(a.ID)
		if project != nil && e.cfg.Scope == ScopeMembers && !member {
			continue
		}
		pool = append(pool, e.score(a, keywords, member, project))
	}

	slices.SortFunc(pool, func(a, b scored) int {
		return cmp.Or(cmp.Compare(b.score, a.score), cmp.Compare(a.agent.ID, b.agent.ID))
	})
	for _, s := range pool {
		if s.score <= e.cfg.MinScore {
			continue
		}
		if e.cfg.MaxSuggestions > 0 && len(res.Suggestions) >= e.cfg.MaxSuggestions {
			break
		}
		res.Suggestions = append(res.Suggestions, domain.SuggestedAgent{
			Agent:       s.agent.Ref(),
			MatchReason: reason(s, project),
			MatchScore:  s.score,
		})
	}

	res.Missing = e.gaps(keywords, project, pool)
	e.log.Debug().
		Strs("keywords", keywords).
		Str("project", projectID).
		Int("suggested", len(res.Suggestions)).
		Int("missing", len(res.Missing)).
		Msg("topic analyzed")
	return res, nil
}

func (e *Engine) score(a domain.Agent, keywords []string, member bool, project *domain.Project) scored {
	fields := []struct {
		label  string
		weight int
		tokens tokenSet
	}{
		{"specialization", e.cfg.Weights.Specialization, newTokenSet(a.Specialization)},
		{"role", e.cfg.Weights.Role, newTokenSet(a.Role)},
		{"domain", e.cfg.Weights.Domain, newTokenSet(string(a.Domain), domainLabel(a.Domain), a.SubCategory)},
		{"description", e.cfg.Weights.Description, newTokenSet(a.Description)},
	}

	s := scored{agent: a, member: member}
	for _, f := range fields {
		hits := f.tokens.intersect(keywords)
		if len(hits) == 0 || f.weight <= 0 {
			continue
		}
		s.score += f.weight * len(hits)
		s.reasons = append(s.reasons, fmt.Sprintf("%s (%s)", f.label, strings.Join(hits, ", ")))
	}
	if member && project != nil {
		s.score += e.cfg.MemberBonus
	}
	s.score = min(max(s.score, 0), 100)
	return s
}

func reason(s scored, project *domain.Project) string {
	var b strings.Builder
	if len(s.reasons) > 0 {
		b.WriteString("Matches ")
		b.WriteString(strings.Join(s.reasons, "; "))
	}
	if s.member && project != nil {
		if b.Len() > 0 {
			b.WriteString(". ")
		}
		fmt.Fprintf(&b, "Already in %s", project.Name)
	}
	return b.String()
}

type activation struct {
	cluster  Cluster
	strength int
	hits     []string
}

// gaps lists activated clusters that no strong pooled agent covers.
func (e *Engine) gaps(keywords []string, project *domain.Project, pool []scored) []domain.MissingAgent {
	topic := newTokenSet(strings.Join(keywords, " "))
	projectTokens := tokenSet{}
	if project != nil {
		projectTokens = newTokenSet(project.Name, project.Description)
	}

	var active []activation
	for _, c := range e.clusters {
		topicHits := topic.intersect(c.Keywords)
		contextHits := projectTokens.intersect(c.Keywords)
		strength := 2*len(topicHits) + len(contextHits)
		if strength == 0 || e.covered(c, pool) {
			continue
		}
		hits := slices.Concat(topicHits, contextHits)
		slices.Sort(hits)
		active = append(active, activation{cluster: c, strength: strength, hits: slices.Compact(hits)})
	}
	slices.SortFunc(active, func(a, b activation) int {
		return cmp.Or(cmp.Compare(b.strength, a.strength), cmp.Compare(a.cluster.Key, b.cluster.Key))
	})

	scope := "the library"
	if project != nil && e.cfg.Scope == ScopeMembers {
		scope = project.Name
	}
	out := []domain.MissingAgent{}
	for _, act := range active {
		if e.cfg.MaxGaps > 0 && len(out) >= e.cfg.MaxGaps {
			break
		}
		c := act.cluster
		out = append(out, domain.MissingAgent{
			SuggestedName: c.SuggestedName(),
			Emoji:         c.Emoji,
			Reasoning: fmt.Sprintf("Topic calls for %s (%s) but no agent in %s covers it",
				c.Capability, strings.Join(act.hits, ", "), scope),
			Domain:      c.Domain,
			SubCategory: c.SubCategory,
			Keywords:    act.hits,
		})
	}
	return out
}

// covered reports whether a pooled agent scoring at least CoverageScore
// belongs to the cluster's domain and sub-category. Agents without a
// sub-category cover it through a shared keyword instead.
func (e *Engine) covered(c Cluster, pool []scored) bool {
	for _, s := range pool {
		if s.score < e.cfg.CoverageScore || s.agent.Domain != c.Domain {
			continue
		}
		if s.agent.SubCategory == c.SubCategory {
			return true
		}
		if s.agent.SubCategory == "" {
			tokens := newTokenSet(s.agent.Role, s.agent.Specialization, s.agent.Description)
			if len(tokens.intersect(c.Keywords)) > 0 {
				return true
			}
		}
	}
	return false
}

func domainLabel(v domain.DomainValue) string {
	if d, ok := domain.LookupDomain(v); ok {
		return d.Label
	}
	return ""
}
