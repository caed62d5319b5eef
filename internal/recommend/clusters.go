package recommend

import (
	"github.com/soyeahso/thecafe/internal/domain"
)

// Cluster is a capability that topics can call for. Keywords are matched
// against the folded topic tokens.
type Cluster struct {
	Key            string
	Domain         domain.DomainValue
	SubCategory    string
	Role           string
	Specialization string
	Emoji          string
	Capability     string
	Keywords       []string
}

// SuggestedName is the name a generated agent for the cluster would carry.
func (c Cluster) SuggestedName() string {
	return domain.AgentName(c.Role, c.Specialization)
}

// DefaultClusters is the built-in capability table.
var DefaultClusters = []Cluster{
	{
		Key: "marketing-strategy", Domain: domain.DomainMarketing, SubCategory: "strategy",
		Role: "Marketing Strategist", Specialization: "Go-To-Market", Emoji: "📊",
		Capability: "go-to-market planning",
		Keywords:   []string{"b2b", "b2c", "gtm", "launch", "market", "positioning", "saas", "strategy"},
	},
	{
		Key: "marketing-copy", Domain: domain.DomainMarketing, SubCategory: "copywriting",
		Role: "Copywriter", Specialization: "Conversion Copy", Emoji: "✍️",
		Capability: "persuasive copywriting",
		Keywords:   []string{"copy", "copywriting", "headline", "landing", "messaging", "tagline"},
	},
	{
		Key: "marketing-campaigns", Domain: domain.DomainMarketing, SubCategory: "advertising",
		Role: "Campaign Manager", Specialization: "Drip Sequences", Emoji: "📧",
		Capability: "campaign orchestration",
		Keywords:   []string{"automation", "campaign", "drip", "email", "newsletter", "nurture", "sequence"},
	},
	{
		Key: "marketing-ads", Domain: domain.DomainMarketing, SubCategory: "advertising",
		Role: "Ads Specialist", Specialization: "Paid Acquisition", Emoji: "📣",
		Capability: "paid acquisition",
		Keywords:   []string{"acquisition", "ads", "advertising", "paid", "ppc", "retargeting", "sponsored"},
	},
	{
		Key: "marketing-analytics", Domain: domain.DomainMarketing, SubCategory: "analytics",
		Role: "Data Analyst", Specialization: "Email Metrics", Emoji: "📈",
		Capability: "performance measurement",
		Keywords:   []string{"analytics", "attribution", "click", "conversion", "funnel", "kpi", "metric", "open", "rate", "tracking"},
	},
	{
		Key: "engineering-backend", Domain: domain.DomainEngineering, SubCategory: "backend",
		Role: "Backend Engineer", Specialization: "APIs", Emoji: "🛠️",
		Capability: "API and service development",
		Keywords:   []string{"api", "backend", "database", "endpoint", "microservice", "python", "server", "sql"},
	},
	{
		Key: "engineering-frontend", Domain: domain.DomainEngineering, SubCategory: "frontend",
		Role: "Frontend Engineer", Specialization: "Web Apps", Emoji: "🖥️",
		Capability: "web interface development",
		Keywords:   []string{"component", "css", "frontend", "javascript", "react", "typescript", "web", "website"},
	},
	{
		Key: "engineering-devops", Domain: domain.DomainEngineering, SubCategory: "devops",
		Role: "DevOps Engineer", Specialization: "Cloud Infrastructure", Emoji: "☁️",
		Capability: "deployment and infrastructure",
		Keywords:   []string{"aws", "cloud", "deploy", "deployment", "docker", "infrastructure", "kubernetes", "monitoring"},
	},
	{
		Key: "engineering-data", Domain: domain.DomainEngineering, SubCategory: "data",
		Role: "Data Engineer", Specialization: "Pipelines", Emoji: "🗄️",
		Capability: "data pipelines",
		Keywords:   []string{"data", "etl", "ingestion", "ml", "pipeline", "warehouse"},
	},
	{
		Key: "design-ux", Domain: domain.DomainDesign, SubCategory: "ui-ux",
		Role: "UX Designer", Specialization: "Product Flows", Emoji: "🧭",
		Capability: "interaction design",
		Keywords:   []string{"figma", "onboarding", "prototype", "ui", "usability", "ux", "wireframe"},
	},
	{
		Key: "design-brand", Domain: domain.DomainDesign, SubCategory: "brand",
		Role: "Brand Designer", Specialization: "Visual Identity", Emoji: "🎨",
		Capability: "brand identity",
		Keywords:   []string{"brand", "branding", "identity", "logo", "palette", "typography", "visual"},
	},
	{
		Key: "design-motion", Domain: domain.DomainDesign, SubCategory: "motion",
		Role: "Motion Designer", Specialization: "Animation", Emoji: "🎞️",
		Capability: "motion graphics",
		Keywords:   []string{"animation", "animated", "motion", "transition"},
	},
	{
		Key: "design-research", Domain: domain.DomainDesign, SubCategory: "research",
		Role: "UX Researcher", Specialization: "User Interviews", Emoji: "🔬",
		Capability: "user research",
		Keywords:   []string{"interview", "persona", "research", "survey", "user"},
	},
	{
		Key: "content-writing", Domain: domain.DomainContent, SubCategory: "writing",
		Role: "Content Writer", Specialization: "Long Form", Emoji: "📝",
		Capability: "long-form content",
		Keywords:   []string{"article", "blog", "case", "documentation", "post", "whitepaper", "writing"},
	},
	{
		Key: "content-editing", Domain: domain.DomainContent, SubCategory: "editing",
		Role: "Editor", Specialization: "Style and Clarity", Emoji: "🖊️",
		Capability: "editing and proofreading",
		Keywords:   []string{"edit", "editing", "grammar", "proofread", "proofreading", "style", "tone"},
	},
	{
		Key: "content-seo", Domain: domain.DomainContent, SubCategory: "seo",
		Role: "SEO Specialist", Specialization: "Organic Growth", Emoji: "🔎",
		Capability: "search optimization",
		Keywords:   []string{"keyword", "organic", "ranking", "search", "seo", "serp"},
	},
	{
		Key: "content-video", Domain: domain.DomainContent, SubCategory: "video",
		Role: "Video Producer", Specialization: "Scripts", Emoji: "🎬",
		Capability: "video production",
		Keywords:   []string{"podcast", "script", "storyboard", "video", "webinar", "youtube"},
	},
	{
		Key: "business-strategy", Domain: domain.DomainBusiness, SubCategory: "strategy",
		Role: "Business Strategist", Specialization: "Market Analysis", Emoji: "♟️",
		Capability: "business strategy",
		Keywords:   []string{"business", "competitive", "competitor", "expansion", "partnership", "roadmap"},
	},
	{
		Key: "business-operations", Domain: domain.DomainBusiness, SubCategory: "operations",
		Role: "Operations Manager", Specialization: "Process Design", Emoji: "⚙️",
		Capability: "operations and process",
		Keywords:   []string{"hiring", "operation", "process", "vendor", "workflow"},
	},
	{
		Key: "business-finance", Domain: domain.DomainBusiness, SubCategory: "finance",
		Role: "Financial Analyst", Specialization: "Forecasting", Emoji: "💰",
		Capability: "financial planning",
		Keywords:   []string{"budget", "cost", "finance", "financial", "forecast", "pricing", "revenue", "roi"},
	},
	{
		Key: "business-sales", Domain: domain.DomainBusiness, SubCategory: "sales",
		Role: "Sales Strategist", Specialization: "Outbound", Emoji: "🤝",
		Capability: "sales outreach",
		Keywords:   []string{"crm", "deal", "lead", "outbound", "outreach", "prospect", "sales"},
	},
}
