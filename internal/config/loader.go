package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so secrets can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Auth.Password = expandEnvVars(cfg.Auth.Password)
	for name, provider := range cfg.Models.Providers {
		provider.APIKey = expandEnvVars(provider.APIKey)
		cfg.Models.Providers[name] = provider
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Defaults(), err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file, creating its
// directory if needed.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Decode converts a raw config map into a Config with defaults applied.
// Environment overrides are not applied, so the result reflects the file.
func Decode(raw map[string]any) (Config, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ConfigError{Message: "invalid config: " + err.Error()}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// providerKeyEnv names the environment variable holding each provider's key.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// applyEnvOverrides reads THECAFE_* and well-known provider variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("THECAFE_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("THECAFE_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("THECAFE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("THECAFE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("THECAFE_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	} else if v := os.Getenv("MVP_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("THECAFE_OFFLINE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Models.Offline = b
		}
	}

	for provider, env := range providerKeyEnv {
		key := os.Getenv(env)
		if key == "" {
			continue
		}
		if cfg.Models.Providers == nil {
			cfg.Models.Providers = make(map[string]ProviderConfig)
		}
		p := cfg.Models.Providers[provider]
		if p.APIKey == "" {
			p.APIKey = key
		}
		cfg.Models.Providers[provider] = p
	}
}
