package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader supplies Settings at session initialization.
// Implementations may block (remote config, disk); they must honor ctx.
type Loader interface {
	Load(ctx context.Context) (Settings, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Settings, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (Settings, error) {
	return f(ctx)
}

// Static returns a Loader that always yields s.
func Static(s Settings) Loader {
	return LoaderFunc(func(ctx context.Context) (Settings, error) {
		if err := ctx.Err(); err != nil {
			return Settings{}, err
		}
		return s, nil
	})
}

// File returns a Loader that reads and parses path on every Load.
func File(path string) Loader {
	return LoaderFunc(func(ctx context.Context) (Settings, error) {
		if err := ctx.Err(); err != nil {
			return Settings{}, err
		}
		cfg, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		return Parse(cfg)
	})
}

// FromFile loads configuration from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}
