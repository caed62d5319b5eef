package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const defaultBaseDir = ".thecafe"

// Paths holds resolved filesystem paths for thecafe data.
type Paths struct {
	Base     string // ~/.thecafe
	Config   string // ~/.thecafe/config.yaml
	Data     string // ~/.thecafe/data
	Database string // ~/.thecafe/data/thecafe.db
	Logs     string // ~/.thecafe/logs
	Seeds    string // ~/.thecafe/seeds
}

// ResolvePaths computes all standard paths from the home directory.
// If THECAFE_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("THECAFE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}
	return PathsAt(base), nil
}

// PathsAt lays out the standard tree under base.
func PathsAt(base string) Paths {
	data := filepath.Join(base, "data")
	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.yaml"),
		Data:     data,
		Database: filepath.Join(data, "thecafe.db"),
		Logs:     filepath.Join(base, "logs"),
		Seeds:    filepath.Join(base, "seeds"),
	}
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs, p.Seeds} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// Resolve anchors relative file settings: the log file under Logs, the
// seed file under Seeds and the database under Data.
func (p Paths) Resolve(cfg *Config) {
	cfg.Logging.File = anchor(p.Logs, cfg.Logging.File)
	cfg.Seed.File = anchor(p.Seeds, cfg.Seed.File)
	cfg.Store.Path = anchor(p.Data, cfg.Store.Path)
}

func anchor(dir, file string) string {
	if file == "" || file == ":memory:" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// StorePath returns the database path for cfg, falling back to the
// standard location.
func (p Paths) StorePath(cfg *Config) string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return p.Database
}

// Sections lists the top-level keys of config.yaml.
var Sections = []string{"gateway", "auth", "models", "conversation", "recommend", "store", "seed", "logging"}

// ParseConfigPath splits a dot-separated config path into segments. The
// first segment must name a config section so typos fail loudly instead
// of writing keys nothing reads.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
	}
	if !slices.Contains(Sections, parts[0]) {
		return nil, &ConfigError{Message: fmt.Sprintf("unknown config section %q (want one of %s)", parts[0], strings.Join(Sections, ", "))}
	}
	return parts, nil
}

// GetValueAtPath traverses a nested map using the given path segments.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetValueAtPath sets a value in a nested map, creating intermediate maps as needed.
func SetValueAtPath(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

// UnsetValueAtPath removes a value at the given path. Returns true if removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			return false
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = m
	}
	last := path[len(path)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}
