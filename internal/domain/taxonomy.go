package domain

import "slices"

// DomainValue identifies one of the fixed agent domains.
type DomainValue string

const (
	DomainMarketing   DomainValue = "marketing"
	DomainEngineering DomainValue = "engineering"
	DomainDesign      DomainValue = "design"
	DomainContent     DomainValue = "content"
	DomainBusiness    DomainValue = "business"
)

// Domain describes a top-level grouping of agents and its sub-categories.
type Domain struct {
	Value         DomainValue `json:"value"`
	Label         string      `json:"label"`
	Emoji         string      `json:"emoji"`
	Color         string      `json:"color"`
	SubCategories []string    `json:"subCategories"`
}

// HasSubCategory reports whether sub belongs to the domain.
func (d Domain) HasSubCategory(sub string) bool {
	return slices.Contains(d.SubCategories, sub)
}

var domains = []Domain{
	{Value: DomainMarketing, Label: "Marketing", Emoji: "📊", Color: "burgundy",
		SubCategories: []string{"strategy", "copywriting", "analytics", "advertising"}},
	{Value: DomainEngineering, Label: "Engineering", Emoji: "⚙️", Color: "coffee",
		SubCategories: []string{"backend", "frontend", "devops", "data"}},
	{Value: DomainDesign, Label: "Design", Emoji: "🎨", Color: "gold",
		SubCategories: []string{"ui-ux", "brand", "motion", "research"}},
	{Value: DomainContent, Label: "Content", Emoji: "✍️", Color: "sage",
		SubCategories: []string{"writing", "editing", "seo", "video"}},
	{Value: DomainBusiness, Label: "Business", Emoji: "💼", Color: "mocha",
		SubCategories: []string{"strategy", "operations", "finance", "sales"}},
}

// Domains returns the domain catalog in display order.
func Domains() []Domain {
	out := make([]Domain, len(domains))
	for i, d := range domains {
		d.SubCategories = slices.Clone(d.SubCategories)
		out[i] = d
	}
	return out
}

// LookupDomain returns the domain with the given value.
func LookupDomain(v DomainValue) (Domain, bool) {
	for _, d := range domains {
		if d.Value == v {
			d.SubCategories = slices.Clone(d.SubCategories)
			return d, true
		}
	}
	return Domain{}, false
}

// ModelID identifies a selectable completion model.
type ModelID string

// DefaultModel is assigned to agents that do not pick one.
const DefaultModel ModelID = "claude-sonnet-4"

// Provider families.
const (
	FamilyAnthropic = "anthropic"
	FamilyOpenAI    = "openai"
	FamilyGemini    = "gemini"
)

// Model describes an entry of the model catalog.
type Model struct {
	ID     ModelID `json:"id"`
	Label  string  `json:"label"`
	Family string  `json:"family"`
}

var models = []Model{
	{ID: "claude-sonnet-4", Label: "Claude Sonnet 4", Family: FamilyAnthropic},
	{ID: "claude-opus-4", Label: "Claude Opus 4", Family: FamilyAnthropic},
	{ID: "gpt-4", Label: "GPT-4", Family: FamilyOpenAI},
	{ID: "gpt-4-turbo", Label: "GPT-4 Turbo", Family: FamilyOpenAI},
	{ID: "gemini-pro", Label: "Gemini Pro", Family: FamilyGemini},
	{ID: "gemini-ultra", Label: "Gemini Ultra", Family: FamilyGemini},
}

// Models returns the model catalog.
func Models() []Model {
	return slices.Clone(models)
}

// LookupModel returns the catalog entry for id.
func LookupModel(id ModelID) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// IsKnownModel reports whether id is in the model catalog.
func IsKnownModel(id ModelID) bool {
	_, ok := LookupModel(id)
	return ok
}
