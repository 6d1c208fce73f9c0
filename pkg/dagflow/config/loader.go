package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads an engine configuration file. The format follows the
// extension: .yaml and .yml are YAML, .json is JSON. An empty file yields an
// empty Config, so every key falls back to its default.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = FromYAML(data)
	case ".json":
		cfg, err = FromJSON(data)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromYAML decodes a YAML document such as
//
//	workers: 8
//	workspace:
//	  driver: sqlite
//	  path: /var/lib/dagflow/values.db
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON decodes a JSON object with the same layout as FromYAML.
func FromJSON(data []byte) (Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return New(nil), nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// Load reads each file with FromFile and merges them in order, so a
// deployment file can override only the keys it names:
//
//	cfg, err := config.Load("dagflow.yaml", "dagflow.prod.yaml")
func Load(paths ...string) (Config, error) {
	cfg := New(nil)
	for _, path := range paths {
		layer, err := FromFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = Merge(cfg, layer)
	}
	return cfg, nil
}

// Merge layers override on top of base. Sections present in both are merged
// key by key, so an override of workspace.path keeps base's
// workspace.driver; any other value in override replaces base's. Neither
// input is modified.
func Merge(base, override Config) Config {
	return New(mergeMaps(base.data, override.data))
}

func mergeMaps(base, override map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]any, len(override))
	}
	for k, v := range override {
		if ov, ok := asMap(v); ok {
			if bv, ok := asMap(out[k]); ok {
				out[k] = mergeMaps(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// FromEnv builds a Config from environment variables named prefix_KEY.
// See FromEnviron.
func FromEnv(prefix string) Config {
	return FromEnviron(prefix, os.Environ())
}

// FromEnviron builds a Config from "NAME=value" entries. Only names starting
// with prefix followed by an underscore are used. The rest of the name is
// lower-cased, and a double underscore separates nested sections:
//
//	DAGFLOW_WORKERS=4                 workers: 4
//	DAGFLOW_WORKSPACE__DRIVER=sqlite  workspace.driver: sqlite
//
// Values are decoded as YAML scalars, so "4" is an int and "true" a bool.
// Values that do not decode are kept as strings.
func FromEnviron(prefix string, environ []string) Config {
	data := make(map[string]any)
	lead := prefix + "_"
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, lead) || len(name) == len(lead) {
			continue
		}

		parts := strings.Split(strings.ToLower(name[len(lead):]), "__")
		section := data
		for _, part := range parts[:len(parts)-1] {
			next, ok := section[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				section[part] = next
			}
			section = next
		}
		section[parts[len(parts)-1]] = envValue(value)
	}
	return New(data)
}

func envValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case string, int, bool, float64:
		return v
	}
	return raw
}
