package config

// Config is the root configuration for thecafe.
type Config struct {
	Gateway      GatewayConfig      `yaml:"gateway,omitempty"`
	Auth         AuthConfig         `yaml:"auth,omitempty"`
	Models       ModelsConfig       `yaml:"models,omitempty"`
	Conversation ConversationConfig `yaml:"conversation,omitempty"`
	Recommend    RecommendConfig    `yaml:"recommend,omitempty"`
	Store        StoreConfig        `yaml:"store,omitempty"`
	Seed         SeedConfig         `yaml:"seed,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "loopback" | "lan" | "auto" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	TLS            GatewayTLS `yaml:"tls,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// AuthConfig configures the shared-password cookie gate.
type AuthConfig struct {
	Password   string `yaml:"password,omitempty"`
	CookieName string `yaml:"cookieName,omitempty"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty"`
}

// ModelsConfig configures completion providers.
type ModelsConfig struct {
	Default        string                    `yaml:"default,omitempty"`
	Offline        bool                      `yaml:"offline,omitempty"` // answer every model with the echo provider
	TimeoutSeconds int                       `yaml:"timeoutSeconds,omitempty"`
	Retries        int                       `yaml:"retries,omitempty"`
	RetryBackoffMs int                       `yaml:"retryBackoffMs,omitempty"`
	MaxTokens      int                       `yaml:"maxTokens,omitempty"`
	Providers      map[string]ProviderConfig `yaml:"providers,omitempty"` // "anthropic" | "openai" | "gemini"
}

// ProviderConfig defines one provider family.
type ProviderConfig struct {
	APIKey  string            `yaml:"apiKey,omitempty"`
	BaseURL string            `yaml:"baseUrl,omitempty"`
	Models  map[string]string `yaml:"models,omitempty"` // catalog model id → upstream model
}

// ConversationConfig controls chat sessions.
type ConversationConfig struct {
	ReplyTimeoutSeconds int `yaml:"replyTimeoutSeconds,omitempty"`
	TitleLength         int `yaml:"titleLength,omitempty"`
}

// RecommendConfig tunes the recommendation engine. MemberBonus and
// CoverageScore are pointers so an explicit 0 is kept.
type RecommendConfig struct {
	Weights        RecommendWeights `yaml:"weights,omitempty"`
	MemberBonus    *int             `yaml:"memberBonus,omitempty"`
	MinScore       int              `yaml:"minScore,omitempty"`
	CoverageScore  *int             `yaml:"coverageScore,omitempty"`
	MaxSuggestions int              `yaml:"maxSuggestions,omitempty"`
	MaxGaps        int              `yaml:"maxGaps,omitempty"`
	Scope          string           `yaml:"scope,omitempty"` // "members" | "catalog"
}

// RecommendWeights are per-field keyword weights.
type RecommendWeights struct {
	Specialization int `yaml:"specialization,omitempty"`
	Role           int `yaml:"role,omitempty"`
	Domain         int `yaml:"domain,omitempty"`
	Description    int `yaml:"description,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "memory"
	Path   string `yaml:"path,omitempty"`
}

// SeedConfig controls the starter catalog.
type SeedConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	File    string `yaml:"file,omitempty"`
}

// SeedEnabled reports whether the starter catalog should be applied.
func (s SeedConfig) SeedEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
