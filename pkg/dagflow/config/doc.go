/*
Package config provides typed configuration extraction for dagflow engines.

# Overview

Config wraps the map produced by decoding a YAML or JSON file and returns
typed values with defaults, so engine setup code does not need type
assertions and nil checks:

	cfg, err := config.FromFile("dagflow.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	workers := cfg.Int("workers", 8)
	level := cfg.Level("log_level", slog.LevelInfo)
	path := cfg.String("workspace.path", "")

# Dotted Keys

Keys containing dots walk nested sections, so the YAML

	workspace:
	  driver: sqlite
	  path: /var/lib/dagflow/${workflow_id}.db

is read with cfg.String("workspace.driver", "memory"). Sub returns a
nested section as its own Config.

# Layering

Load merges several files in order and FromEnv reads DAGFLOW_* style
environment variables, so deployments override only what differs:

	cfg, err := config.Load("dagflow.yaml", "dagflow.prod.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	cfg = config.Merge(cfg, config.FromEnv("DAGFLOW"))

Merge combines nested sections key by key.

# Defaults

Every accessor returns its default if the key is missing or the value
cannot be converted without loss (for example a float with a fractional
part requested as an int).

# Thread Safety

Config is safe for concurrent reads. The wrapped map is never modified.
*/
package config
