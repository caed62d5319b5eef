package config

import (
	"fmt"
	"slices"

	"github.com/soyeahso/thecafe/internal/domain"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind is custom")
	}
	if cfg.Gateway.TLS.Enabled && (cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "") {
		add("gateway.tls", "certPath and keyPath are required when TLS is enabled")
	}

	if cfg.Auth.MaxAgeDays < 0 {
		add("auth.maxAgeDays", "must not be negative, got %d", cfg.Auth.MaxAgeDays)
	}

	if cfg.Models.Default != "" && !domain.IsKnownModel(domain.ModelID(cfg.Models.Default)) {
		add("models.default", "unknown model %q", cfg.Models.Default)
	}
	validProviders := []string{domain.FamilyAnthropic, domain.FamilyOpenAI, domain.FamilyGemini}
	for name, p := range cfg.Models.Providers {
		if !slices.Contains(validProviders, name) {
			add("models.providers."+name, "must be one of %v", validProviders)
		}
		for id := range p.Models {
			if !domain.IsKnownModel(domain.ModelID(id)) {
				add("models.providers."+name+".models."+id, "unknown catalog model")
			}
		}
	}
	if cfg.Models.Retries < 0 {
		add("models.retries", "must not be negative, got %d", cfg.Models.Retries)
	}
	if cfg.Conversation.ReplyTimeoutSeconds < 0 {
		add("conversation.replyTimeoutSeconds", "must not be negative, got %d", cfg.Conversation.ReplyTimeoutSeconds)
	}

	validScopes := []string{"members", "catalog"}
	if cfg.Recommend.Scope != "" && !slices.Contains(validScopes, cfg.Recommend.Scope) {
		add("recommend.scope", "must be one of %v, got %q", validScopes, cfg.Recommend.Scope)
	}
	if cfg.Recommend.MinScore < 0 || cfg.Recommend.MinScore >= 100 {
		add("recommend.minScore", "must be 0-99, got %d", cfg.Recommend.MinScore)
	}
	if b := cfg.Recommend.MemberBonus; b != nil && (*b < 0 || *b > 100) {
		add("recommend.memberBonus", "must be 0-100, got %d", *b)
	}
	if c := cfg.Recommend.CoverageScore; c != nil && (*c < 0 || *c > 100) {
		add("recommend.coverageScore", "must be 0-100, got %d", *c)
	}

	validDrivers := []string{"sqlite", "memory"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		add("store.driver", "must be one of %v, got %q", validDrivers, cfg.Store.Driver)
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	slices.SortStableFunc(issues, func(a, b ValidationIssue) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return issues
}

// ValidateServe adds the checks needed before the gateway can start.
func ValidateServe(cfg *Config) []ValidationIssue {
	issues := Validate(cfg)
	if cfg.Auth.Password == "" {
		issues = append(issues, ValidationIssue{
			Path:    "auth.password",
			Message: "required to serve (set auth.password, THECAFE_PASSWORD or MVP_PASSWORD)",
		})
	}
	return issues
}
