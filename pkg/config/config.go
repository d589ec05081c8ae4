// Package config loads the suite's key/value configuration.
//
// Files are YAML mappings; nested mappings flatten to dotted keys, so
//
//	device:
//	  platform: Android
//
// and `device.platform: Android` are the same property. Values are kept as
// strings and coerced by the typed accessors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the base configuration file inside the config directory.
	FileName = "config.yaml"
	// EnvironmentsDir holds the per-environment overlays (<env>.yaml).
	EnvironmentsDir = "environments"
	// DefaultEnvironment is used when no environment is named.
	DefaultEnvironment = "dev"
)

// Properties is an immutable key -> string mapping, loaded once per run.
type Properties struct {
	values      map[string]string
	environment string
}

// Load reads <dir>/config.yaml and overlays <dir>/environments/<env>.yaml.
// Either file may be missing (logged, not fatal); malformed YAML is an error.
func Load(dir, environment string) (*Properties, error) {
	if environment == "" {
		environment = DefaultEnvironment
	}

	base, err := readFile(filepath.Join(dir, FileName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.Warn("Default configuration not found in %s", dir)
		base = map[string]string{}
	} else {
		logger.Info("Loaded default configuration from: %s", filepath.Join(dir, FileName))
	}

	envPath := filepath.Join(dir, EnvironmentsDir, environment+".yaml")
	overlay, err := readFile(envPath)
	switch {
	case err == nil:
		if err := mergo.Merge(&base, overlay, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", envPath, err)
		}
		logger.Info("Loaded %s environment configuration from: %s", environment, envPath)
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("No %s environment configuration at %s", environment, envPath)
	default:
		return nil, err
	}

	if _, ok := base["environment"]; !ok {
		base["environment"] = environment
	}

	return &Properties{values: base, environment: environment}, nil
}

// FromMap builds properties from an in-memory mapping.
func FromMap(values map[string]string) *Properties {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	env := copied["environment"]
	if env == "" {
		env = DefaultEnvironment
	}
	return &Properties{values: copied, environment: env}
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("invalid configuration file " + path).WithCause(err)
	}

	flat := make(map[string]string)
	flatten("", raw, flat)
	return flat, nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Environment returns the environment the properties were loaded for.
func (p *Properties) Environment() string {
	return p.environment
}

// Get returns the raw value and whether the key is present.
func (p *Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns the value or def when the key is absent.
func (p *Properties) String(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Int returns the value as an int; absent or malformed values yield def.
func (p *Properties) Int(key string, def int) int {
	v, ok := p.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Error("Failed to parse integer property %s=%q: %v", key, v, err)
		return def
	}
	return n
}

// Bool returns the value as a bool; absent or malformed values yield def.
func (p *Properties) Bool(key string, def bool) bool {
	v, ok := p.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		logger.Error("Failed to parse boolean property %s=%q: %v", key, v, err)
		return def
	}
	return b
}

// Duration accepts Go durations ("1500ms") or a bare number of seconds.
func (p *Properties) Duration(key string, def time.Duration) time.Duration {
	v, ok := p.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Error("Failed to parse duration property %s=%q: %v", key, v, err)
		return def
	}
	return d
}

// Map returns a copy of all properties.
func (p *Properties) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Keys returns the property keys in sorted order.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy with overrides applied; p is unchanged.
func (p *Properties) With(overrides map[string]string) *Properties {
	values := p.Map()
	for k, v := range overrides {
		values[k] = v
	}
	return &Properties{values: values, environment: p.environment}
}
