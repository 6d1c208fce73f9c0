package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/randalmurphal/dagflow/pkg/dagflow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies Config creation from maps.
func TestNew(t *testing.T) {
	assert.NotNil(t, config.New(nil).Raw())
	assert.Equal(t, "v", config.New(map[string]any{"k": "v"}).String("k", ""))
}

// TestString verifies string extraction with defaults.
func TestString(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		key  string
		want string
	}{
		{"key exists", map[string]any{"name": "alice"}, "name", "alice"},
		{"key missing", map[string]any{"other": "value"}, "name", "default"},
		{"empty string", map[string]any{"name": ""}, "name", ""},
		{"wrong type", map[string]any{"name": 123}, "name", "default"},
		{"dotted path", map[string]any{"workspace": map[string]any{"path": "/tmp/x"}}, "workspace.path", "/tmp/x"},
		{"dotted path missing leaf", map[string]any{"workspace": map[string]any{}}, "workspace.path", "default"},
		{"dotted path through scalar", map[string]any{"workspace": "memory"}, "workspace.path", "default"},
		{"literal dotted key wins", map[string]any{"a.b": "flat", "a": map[string]any{"b": "nested"}}, "a.b", "flat"},
		{"nil map", nil, "name", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.String(tt.key, "default"))
		})
	}
}

// TestInt verifies integer extraction with type coercion.
func TestInt(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want int
	}{
		{"int value", map[string]any{"workers": 4}, 4},
		{"int64 value", map[string]any{"workers": int64(16)}, 16},
		{"float64 whole", map[string]any{"workers": 8.0}, 8},
		{"float64 fractional", map[string]any{"workers": 8.5}, 99},
		{"wrong type", map[string]any{"workers": "4"}, 99},
		{"missing", nil, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).Int("workers", 99))
		})
	}
}

// TestBool verifies boolean extraction.
func TestBool(t *testing.T) {
	cfg := config.New(map[string]any{"metrics": true, "tracing": "yes"})
	assert.True(t, cfg.Bool("metrics", false))
	assert.False(t, cfg.Bool("tracing", false), "non-bool falls back to default")
	assert.True(t, cfg.Bool("missing", true))
}

// TestDuration verifies duration extraction with various input types.
func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"string", "30s", 30 * time.Second},
		{"int seconds", 60, time.Minute},
		{"int64 seconds", int64(2), 2 * time.Second},
		{"float seconds", 1.5, 1500 * time.Millisecond},
		{"duration", 5 * time.Minute, 5 * time.Minute},
		{"invalid string", "soon", 10 * time.Second},
		{"wrong type", true, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"timeout": tt.value})
			assert.Equal(t, tt.want, cfg.Duration("timeout", 10*time.Second))
		})
	}
}

// TestLevel verifies slog level parsing.
func TestLevel(t *testing.T) {
	tests := []struct {
		value any
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
		{42, slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := config.New(map[string]any{"log_level": tt.value})
		assert.Equal(t, tt.want, cfg.Level("log_level", slog.LevelInfo), "value %v", tt.value)
	}
}

// TestSub verifies nested sections.
func TestSub(t *testing.T) {
	cfg := config.New(map[string]any{
		"workspace": map[string]any{"driver": "sqlite", "path": "x.db"},
		"workers":   2,
	})

	ws := cfg.Sub("workspace")
	assert.Equal(t, "sqlite", ws.String("driver", ""))
	assert.True(t, ws.Has("path"))

	assert.Empty(t, cfg.Sub("workers").Raw(), "scalar section yields empty config")
	assert.Empty(t, cfg.Sub("missing").Raw())
}

// TestMerge verifies top-level override semantics.
func TestMerge(t *testing.T) {
	base := config.New(map[string]any{"workers": 2, "metrics": false})
	override := config.New(map[string]any{"metrics": true})

	merged := config.Merge(base, override)
	assert.Equal(t, 2, merged.Int("workers", 0))
	assert.True(t, merged.Bool("metrics", false))
	assert.False(t, base.Bool("metrics", true), "base must be untouched")
}

// TestMerge_NestedSections verifies sections merge key by key.
func TestMerge_NestedSections(t *testing.T) {
	base := config.New(map[string]any{
		"workspace": map[string]any{"driver": "sqlite", "path": "a.db"},
	})
	override := config.New(map[string]any{
		"workspace": map[string]any{"path": "b.db"},
	})

	merged := config.Merge(base, override)
	assert.Equal(t, "sqlite", merged.String("workspace.driver", ""))
	assert.Equal(t, "b.db", merged.String("workspace.path", ""))
	assert.Equal(t, "a.db", base.String("workspace.path", ""), "base must be untouched")

	replaced := config.Merge(base, config.New(map[string]any{"workspace": "memory"}))
	assert.Equal(t, "memory", replaced.String("workspace", ""))
}

// TestFromYAML verifies YAML parsing including nested sections.
func TestFromYAML(t *testing.T) {
	yamlData := []byte(`
workers: 4
metrics: true
log_level: debug
workspace:
  driver: sqlite
  path: /data/${workflow_id}.db
`)

	cfg, err := config.FromYAML(yamlData)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Int("workers", 0))
	assert.True(t, cfg.Bool("metrics", false))
	assert.Equal(t, slog.LevelDebug, cfg.Level("log_level", slog.LevelInfo))
	assert.Equal(t, "sqlite", cfg.String("workspace.driver", ""))
	assert.Equal(t, "/data/${workflow_id}.db", cfg.String("workspace.path", ""))

	_, err = config.FromYAML([]byte("workers: [unclosed"))
	assert.Error(t, err)
}

// TestFromJSON verifies JSON parsing.
func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"workers": 3, "workspace": {"driver": "memory"}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Int("workers", 0), "JSON numbers decode as float64")
	assert.Equal(t, "memory", cfg.String("workspace.driver", ""))

	_, err = config.FromJSON([]byte(`{`))
	assert.Error(t, err)
}

// TestFromFile verifies format detection by extension.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "engine.YML")
	require.NoError(t, os.WriteFile(yamlPath, []byte("workers: 5\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Int("workers", 0))

	jsonPath := filepath.Join(dir, "engine.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"workers": 6}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Int("workers", 0))

	tomlPath := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("workers = 1"), 0o600))
	_, err = config.FromFile(tomlPath)
	assert.ErrorContains(t, err, `unsupported extension ".toml"`)

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{"), 0o600))
	_, err = config.FromFile(badPath)
	assert.ErrorContains(t, err, badPath)

	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o600))
	cfg, err = config.FromFile(emptyPath)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.String("workspace.driver", "memory"))
}

// TestLoad verifies files are layered in order.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "dagflow.yaml")
	prod := filepath.Join(dir, "dagflow.prod.json")
	require.NoError(t, os.WriteFile(base, []byte(`
workers: 2
workspace:
  driver: sqlite
  path: dev.db
`), 0o600))
	require.NoError(t, os.WriteFile(prod, []byte(`{"workers": 16, "workspace": {"path": "/var/lib/dagflow/values.db"}}`), 0o600))

	cfg, err := config.Load(base, prod)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Int("workers", 0))
	assert.Equal(t, "sqlite", cfg.String("workspace.driver", ""))
	assert.Equal(t, "/var/lib/dagflow/values.db", cfg.String("workspace.path", ""))

	_, err = config.Load(base, filepath.Join(dir, "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, empty.Raw())
}

// TestFromEnviron verifies prefix filtering, nesting and scalar decoding.
func TestFromEnviron(t *testing.T) {
	cfg := config.FromEnviron("DAGFLOW", []string{
		"DAGFLOW_WORKERS=4",
		"DAGFLOW_METRICS=true",
		"DAGFLOW_LOG_LEVEL=debug",
		"DAGFLOW_WORKSPACE__DRIVER=sqlite",
		"DAGFLOW_WORKSPACE__PATH=/tmp/${run}.db",
		"DAGFLOW_WORKSPACE__VARS__RUN=nightly",
		"DAGFLOW_=ignored",
		"OTHER_WORKERS=9",
		"MALFORMED",
	})

	assert.Equal(t, 4, cfg.Int("workers", 0))
	assert.True(t, cfg.Bool("metrics", false))
	assert.Equal(t, slog.LevelDebug, cfg.Level("log_level", slog.LevelInfo))
	assert.Equal(t, "sqlite", cfg.String("workspace.driver", ""))
	assert.Equal(t, "/tmp/${run}.db", cfg.String("workspace.path", ""))
	assert.Equal(t, map[string]any{"run": "nightly"}, cfg.StringMap("workspace.vars"))
	assert.False(t, cfg.Has("other_workers"))
	assert.Len(t, cfg.Raw(), 4)
}

// TestFromEnv verifies environment overrides layered over a file.
func TestFromEnv(t *testing.T) {
	t.Setenv("DAGFLOWTEST_WORKERS", "12")
	t.Setenv("DAGFLOWTEST_WORKSPACE__PATH", "override.db")

	file := config.New(map[string]any{
		"workers":   2,
		"workspace": map[string]any{"driver": "sqlite", "path": "file.db"},
	})
	cfg := config.Merge(file, config.FromEnv("DAGFLOWTEST"))

	assert.Equal(t, 12, cfg.Int("workers", 0))
	assert.Equal(t, "sqlite", cfg.String("workspace.driver", ""))
	assert.Equal(t, "override.db", cfg.String("workspace.path", ""))
}
