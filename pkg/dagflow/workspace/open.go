package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/randalmurphal/dagflow/pkg/dagflow/config"
	"github.com/randalmurphal/dagflow/pkg/dagflow/pathtmpl"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open builds a Store from configuration.
//
// Recognized keys:
//
//	workspace.driver  "memory" (default) or "sqlite"
//	workspace.path    database file for the sqlite driver (default "dagflow.db")
//	workspace.vars    variables substituted into workspace.path ("${name}")
//
// The parent directory of a sqlite path is created if missing.
func Open(cfg config.Config) (Store, error) {
	driver := cfg.String("workspace.driver", DriverMemory)

	switch driver {
	case DriverMemory:
		return NewMemoryWorkspace(), nil
	case DriverSQLite:
		path, err := pathtmpl.Parse(cfg.String("workspace.path", "dagflow.db")).
			Render(cfg.StringMap("workspace.vars"))
		if err != nil {
			return nil, fmt.Errorf("workspace path: %w", err)
		}
		if path != ":memory:" {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create workspace directory: %w", err)
				}
			}
		}
		return NewSQLiteWorkspace(path)
	default:
		return nil, fmt.Errorf("unknown workspace driver %q", driver)
	}
}
