package workspace_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dagflow/pkg/dagflow/config"
	"github.com/randalmurphal/dagflow/pkg/dagflow/pathtmpl"
	"github.com/randalmurphal/dagflow/pkg/dagflow/workspace"
)

func TestOpen(t *testing.T) {
	t.Run("default is memory", func(t *testing.T) {
		s, err := workspace.Open(config.New(nil))
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &workspace.MemoryWorkspace{}, s)
	})

	t.Run("sqlite creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "ws.db")
		cfg := config.New(map[string]any{
			"workspace": map[string]any{
				"driver": "sqlite",
				"path":   path,
			},
		})

		s, err := workspace.Open(cfg)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &workspace.SQLiteWorkspace{}, s)

		require.NoError(t, s.Put(context.Background(), "r", "n", "v"))
		assert.FileExists(t, path)
	})

	t.Run("from yaml", func(t *testing.T) {
		cfg, err := config.FromYAML([]byte("workspace:\n  driver: sqlite\n  path: \":memory:\"\n"))
		require.NoError(t, err)

		s, err := workspace.Open(cfg)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &workspace.SQLiteWorkspace{}, s)
	})

	t.Run("path template", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.New(map[string]any{
			"workspace": map[string]any{
				"driver": "sqlite",
				"path":   "${root}/cache/${name}.db",
				"vars":   map[string]any{"root": dir, "name": "values"},
			},
		})

		s, err := workspace.Open(cfg)
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, s.Put(context.Background(), "r", "n", "v"))
		assert.FileExists(t, filepath.Join(dir, "cache", "values.db"))
	})

	t.Run("path template missing variable", func(t *testing.T) {
		cfg := config.New(map[string]any{
			"workspace": map[string]any{"driver": "sqlite", "path": "${root}/ws.db"},
		})
		_, err := workspace.Open(cfg)
		var undef *pathtmpl.UndefinedVariableError
		require.ErrorAs(t, err, &undef)
		assert.Equal(t, []string{"root"}, undef.Names)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := workspace.Open(config.New(map[string]any{"workspace.driver": "redis"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"redis"`)
	})
}
