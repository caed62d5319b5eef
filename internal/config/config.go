package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values.
const (
	DefaultPort           = 18790
	DefaultCookieName     = "thecafe_auth"
	DefaultCookieMaxAge   = 7
	DefaultModel          = "claude-sonnet-4"
	DefaultReplyTimeout   = 120
	DefaultTitleLength    = 60
	DefaultRetries        = 2
	DefaultRetryBackoffMs = 500
)

// DefaultUpstreamModels maps catalog model ids to provider model names.
var DefaultUpstreamModels = map[string]map[string]string{
	"anthropic": {
		"claude-sonnet-4": "claude-sonnet-4-20250514",
		"claude-opus-4":   "claude-opus-4-20250514",
	},
	"openai": {
		"gpt-4":       "gpt-4",
		"gpt-4-turbo": "gpt-4-turbo",
	},
	"gemini": {
		"gemini-pro":   "gemini-2.5-flash",
		"gemini-ultra": "gemini-2.5-pro",
	},
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = DefaultCookieName
	}
	if cfg.Auth.MaxAgeDays == 0 {
		cfg.Auth.MaxAgeDays = DefaultCookieMaxAge
	}
	if cfg.Models.Default == "" {
		cfg.Models.Default = DefaultModel
	}
	if cfg.Models.TimeoutSeconds == 0 {
		cfg.Models.TimeoutSeconds = DefaultReplyTimeout
	}
	if cfg.Models.Retries == 0 {
		cfg.Models.Retries = DefaultRetries
	}
	if cfg.Models.RetryBackoffMs == 0 {
		cfg.Models.RetryBackoffMs = DefaultRetryBackoffMs
	}
	if cfg.Conversation.ReplyTimeoutSeconds == 0 {
		cfg.Conversation.ReplyTimeoutSeconds = DefaultReplyTimeout
	}
	if cfg.Conversation.TitleLength == 0 {
		cfg.Conversation.TitleLength = DefaultTitleLength
	}

	r := &cfg.Recommend
	if r.Weights == (RecommendWeights{}) {
		r.Weights = RecommendWeights{Specialization: 20, Role: 15, Domain: 12, Description: 8}
	}
	if r.MemberBonus == nil {
		r.MemberBonus = intPtr(10)
	}
	if r.CoverageScore == nil {
		r.CoverageScore = intPtr(30)
	}
	if r.MaxSuggestions == 0 {
		r.MaxSuggestions = 5
	}
	if r.MaxGaps == 0 {
		r.MaxGaps = 3
	}
	if r.Scope == "" {
		r.Scope = "members"
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

func intPtr(n int) *int { return &n }
