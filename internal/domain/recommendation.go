package domain

// AgentRef is the subset of an agent shown alongside a recommendation.
type AgentRef struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Emoji  string      `json:"emoji"`
	Domain DomainValue `json:"domain"`
}

// Ref returns the reference form of the agent.
func (a Agent) Ref() AgentRef {
	return AgentRef{ID: a.ID, Name: a.Name, Emoji: a.Emoji, Domain: a.Domain}
}

// SuggestedAgent is an existing agent ranked against a topic.
type SuggestedAgent struct {
	Agent       AgentRef `json:"agent"`
	MatchReason string   `json:"matchReason"`
	MatchScore  int      `json:"matchScore"`
}

// MissingAgent describes a capability gap that no available agent covers.
type MissingAgent struct {
	SuggestedName string      `json:"suggestedName"`
	Emoji         string      `json:"emoji"`
	Reasoning     string      `json:"reasoning"`
	Domain        DomainValue `json:"domain"`
	SubCategory   string      `json:"subCategory,omitempty"`
	Keywords      []string    `json:"keywords,omitempty"`
}
