package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/archlint/archlint/internal/domain"
	"gopkg.in/yaml.v3"
)

const fileName = ".archlint.yaml"

// YAMLLoader implements domain.ConfigLoader by reading .archlint.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads .archlint.yaml from root. A missing file yields the
// defaults; a present but invalid file is a fatal configuration error.
func (l *YAMLLoader) Load(root string) (domain.Config, error) {
	data, err := os.ReadFile(filepath.Join(root, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parsing %s: %w", fileName, err)
	}

	cfg = mergeConfig(domain.DefaultConfig(), cfg)

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid %s: %w", fileName, err)
	}
	return cfg, nil
}

// mergeConfig overlays the values the user actually set on top of the
// defaults. Zero values mean "not set" and keep the default; setting a
// marker map or list replaces that map or list entirely.
func mergeConfig(base, override domain.Config) domain.Config {
	result := base

	if len(override.LayerMarkers) > 0 {
		result.LayerMarkers = override.LayerMarkers
	}
	if len(override.LayerOverrides) > 0 {
		result.LayerOverrides = override.LayerOverrides
	}
	if override.GodUnit.MaxAttributes > 0 {
		result.GodUnit.MaxAttributes = override.GodUnit.MaxAttributes
	}
	if override.GodUnit.MaxMethods > 0 {
		result.GodUnit.MaxMethods = override.GodUnit.MaxMethods
	}
	if override.GodUnit.MaxLines > 0 {
		result.GodUnit.MaxLines = override.GodUnit.MaxLines
	}
	if override.NestingLimit > 0 {
		result.NestingLimit = override.NestingLimit
	}
	if override.MaxParameters > 0 {
		result.MaxParameters = override.MaxParameters
	}
	if len(override.ExcludedPaths) > 0 {
		result.ExcludedPaths = override.ExcludedPaths
	}
	if len(override.DisabledRules) > 0 {
		result.DisabledRules = override.DisabledRules
	}
	if override.Workers > 0 {
		result.Workers = override.Workers
	}

	return result
}
