// Package catalog maintains derived views of the agent library grouped by
// domain and sub-category.
package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/hooks"
	"github.com/soyeahso/thecafe/internal/logging"
)

// Uncategorized labels agents without a sub-category in Groups.
const Uncategorized = "uncategorized"

// Source supplies the current agent list.
type Source interface {
	Agents() []domain.Agent
}

// SubGroup is one sub-category bucket of a domain.
type SubGroup struct {
	SubCategory string         `json:"subCategory"`
	Agents      []domain.Agent `json:"agents"`
}

// DomainGroup is the domain view shown in the library.
type DomainGroup struct {
	Domain    domain.Domain `json:"domain"`
	Count     int           `json:"count"`
	SubGroups []SubGroup    `json:"subGroups"`
}

type subKey struct {
	domain domain.DomainValue
	sub    string
}

// Index groups agents by domain and sub-category. It is rebuilt from its
// source whenever an agent event fires, so reads never lag the last
// completed mutation.
type Index struct {
	src Source
	log *logging.Logger

	// build serializes read-and-swap so an older read never replaces a
	// newer one.
	build sync.Mutex

	mu       sync.RWMutex
	byDomain map[domain.DomainValue][]domain.Agent
	bySub    map[subKey][]domain.Agent
	builds   uint64
}

// New creates an index and builds it once.
func New(src Source, log *logging.Logger) *Index {
	idx := &Index{src: src, log: log.Sub("catalog")}
	idx.Rebuild()
	return idx
}

// Watch subscribes the index to agent lifecycle events.
func (idx *Index) Watch(hm *hooks.Manager) {
	hm.OnEach(hooks.AgentEvents, "catalog-index", func(_ context.Context, p hooks.Payload) error {
		idx.Rebuild()
		idx.log.Debug().Str("event", p.Event).Str("agent", p.ID()).Msg("index rebuilt")
		return nil
	})
}

// Unwatch removes the index's subscriptions.
func (idx *Index) Unwatch(hm *hooks.Manager) {
	hm.OffEach(hooks.AgentEvents, "catalog-index")
}

// Rebuild recomputes all groupings from the source.
func (idx *Index) Rebuild() {
	idx.build.Lock()
	defer idx.build.Unlock()

	agents := idx.src.Agents()
	slices.SortFunc(agents, func(a, b domain.Agent) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	byDomain := make(map[domain.DomainValue][]domain.Agent)
	bySub := make(map[subKey][]domain.Agent)
	for _, a := range agents {
		byDomain[a.Domain] = append(byDomain[a.Domain], a)
		bySub[subKey{a.Domain, a.SubCategory}] = append(bySub[subKey{a.Domain, a.SubCategory}], a)
	}

	idx.mu.Lock()
	idx.byDomain = byDomain
	idx.bySub = bySub
	idx.builds++
	idx.mu.Unlock()
}

// AgentsByDomain returns the domain's agents ordered by name, then id.
func (idx *Index) AgentsByDomain(d domain.DomainValue) []domain.Agent {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.byDomain[d])
}

// AgentsBySubCategory returns the agents of one sub-category. An empty sub
// selects the domain's uncategorized agents.
func (idx *Index) AgentsBySubCategory(d domain.DomainValue, sub string) []domain.Agent {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.bySub[subKey{d, sub}])
}

// Count returns the number of agents in a domain.
func (idx *Index) Count(d domain.DomainValue) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byDomain[d])
}

// Groups returns every domain in display order with its sub-category
// buckets. Empty buckets are omitted; agents without a sub-category land in
// a trailing uncategorized bucket.
func (idx *Index) Groups() []DomainGroup {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []DomainGroup
	for _, d := range domain.Domains() {
		g := DomainGroup{Domain: d, Count: len(idx.byDomain[d.Value]), SubGroups: []SubGroup{}}
		for _, sub := range d.SubCategories {
			if agents := idx.bySub[subKey{d.Value, sub}]; len(agents) > 0 {
				g.SubGroups = append(g.SubGroups, SubGroup{SubCategory: sub, Agents: slices.Clone(agents)})
			}
		}
		if agents := idx.bySub[subKey{d.Value, ""}]; len(agents) > 0 {
			g.SubGroups = append(g.SubGroups, SubGroup{SubCategory: Uncategorized, Agents: slices.Clone(agents)})
		}
		out = append(out, g)
	}
	return out
}

// Builds reports how many times the index has been rebuilt.
func (idx *Index) Builds() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.builds
}
