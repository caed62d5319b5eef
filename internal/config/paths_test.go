package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseConfigPath extended tests ---

func TestParseConfigPath_Extended(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "gateway", []string{"gateway"}, false},
		{"two segments", "gateway.port", []string{"gateway", "port"}, false},
		{"three segments", "recommend.weights.role", []string{"recommend", "weights", "role"}, false},
		{"empty", "", nil, true},
		{"empty segment", "gateway..port", nil, true},
		{"leading dot", ".gateway", nil, true},
		{"trailing dot", "gateway.", nil, true},
		{"unknown section", "gatway.port", nil, true},
		{"legacy section", "agents.defaults.model", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- GetValueAtPath extended tests ---

func TestGetValueAtPath_Extended(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 18790,
			"tls": map[string]any{
				"enabled": false,
			},
		},
		"store": "memory",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"gateway", "port"}, 18790, true},
		{"deeply nested", []string{"gateway", "tls", "enabled"}, false, true},
		{"top level", []string{"store"}, "memory", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"gateway", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"store", "path"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

// --- SetValueAtPath extended tests ---

func TestSetValueAtPath_Update(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 18790,
		},
	}

	SetValueAtPath(root, []string{"gateway", "port"}, 9999)
	val, ok := GetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)
	assert.Equal(t, 9999, val)
}

func TestSetValueAtPath_CreatesIntermediates(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"a", "b", "c"}, "deep")
	val, ok := GetValueAtPath(root, []string{"a", "b", "c"})
	assert.True(t, ok)
	assert.Equal(t, "deep", val)
}

func TestSetValueAtPath_OverwritesNonMap(t *testing.T) {
	root := map[string]any{
		"recommend": "string-not-map",
	}

	SetValueAtPath(root, []string{"recommend", "scope"}, "catalog")
	val, ok := GetValueAtPath(root, []string{"recommend", "scope"})
	assert.True(t, ok)
	assert.Equal(t, "catalog", val)
}

func TestSetValueAtPath_SingleKey(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"version"}, "1.0.0")
	assert.Equal(t, "1.0.0", root["version"])
}

// --- UnsetValueAtPath extended tests ---

func TestUnsetValueAtPath_PreserveSiblings(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 18790,
			"bind": "loopback",
		},
	}

	ok := UnsetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)

	_, found := GetValueAtPath(root, []string{"gateway", "port"})
	assert.False(t, found)

	val, found := GetValueAtPath(root, []string{"gateway", "bind"})
	assert.True(t, found)
	assert.Equal(t, "loopback", val)
}

func TestUnsetValueAtPath_NotFound(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 18790,
		},
	}

	ok := UnsetValueAtPath(root, []string{"gateway", "nonexistent"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath_MissingIntermediate(t *testing.T) {
	root := map[string]any{}
	ok := UnsetValueAtPath(root, []string{"a", "b", "c"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath_NonMapIntermediate(t *testing.T) {
	root := map[string]any{
		"gateway": "string",
	}
	ok := UnsetValueAtPath(root, []string{"gateway", "port"})
	assert.False(t, ok)
}

// --- ResolvePaths tests ---

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("THECAFE_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".thecafe")
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "data"), paths.Data)
	assert.Equal(t, filepath.Join(base, "data", "thecafe.db"), paths.Database)
	assert.Equal(t, filepath.Join(base, "logs"), paths.Logs)
	assert.Equal(t, filepath.Join(base, "seeds"), paths.Seeds)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("THECAFE_HOME", "/tmp/testcafe")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/testcafe", paths.Base)
	assert.Equal(t, "/tmp/testcafe/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/testcafe/data/thecafe.db", paths.Database)
}

func TestStorePath(t *testing.T) {
	paths := Paths{Database: "/base/data/thecafe.db"}

	cfg := Defaults()
	assert.Equal(t, "/base/data/thecafe.db", paths.StorePath(&cfg))

	cfg.Store.Path = "/elsewhere/cafe.db"
	assert.Equal(t, "/elsewhere/cafe.db", paths.StorePath(&cfg))
}

func TestEnsureDirs_CreatesAll(t *testing.T) {
	t.Setenv("THECAFE_HOME", t.TempDir())
	paths, err := ResolvePaths()
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.Base, paths.Data, paths.Logs, paths.Seeds} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureDirs_Idempotent(t *testing.T) {
	t.Setenv("THECAFE_HOME", t.TempDir())
	paths, err := ResolvePaths()
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())
}

func TestResolve(t *testing.T) {
	paths := Paths{Data: "/base/data", Logs: "/base/logs", Seeds: "/base/seeds"}

	cfg := Defaults()
	cfg.Logging.File = "thecafe.log"
	cfg.Seed.File = "/etc/thecafe/catalog.yaml"
	cfg.Store.Path = "cafe.db"
	paths.Resolve(&cfg)

	assert.Equal(t, "/base/logs/thecafe.log", cfg.Logging.File)
	assert.Equal(t, "/etc/thecafe/catalog.yaml", cfg.Seed.File)
	assert.Equal(t, "/base/data/cafe.db", cfg.Store.Path)

	cfg = Defaults()
	cfg.Store.Path = ":memory:"
	paths.Resolve(&cfg)
	assert.Empty(t, cfg.Logging.File)
	assert.Empty(t, cfg.Seed.File)
	assert.Equal(t, ":memory:", cfg.Store.Path)
}

func TestPathsAt(t *testing.T) {
	p := PathsAt("/srv/cafe")
	assert.Equal(t, Paths{
		Base:     "/srv/cafe",
		Config:   "/srv/cafe/config.yaml",
		Data:     "/srv/cafe/data",
		Database: "/srv/cafe/data/thecafe.db",
		Logs:     "/srv/cafe/logs",
		Seeds:    "/srv/cafe/seeds",
	}, p)
}
