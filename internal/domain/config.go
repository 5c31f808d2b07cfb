package domain

import (
	"fmt"
	"path"
	"strings"
)

// GodUnitThresholds bound the cohesion metrics a unit may reach before
// the god-unit rule flags it. One finding is emitted per exceeded
// threshold.
type GodUnitThresholds struct {
	MaxAttributes int `yaml:"max_attributes" json:"max_attributes"`
	MaxMethods    int `yaml:"max_methods"    json:"max_methods"`
	MaxLines      int `yaml:"max_lines"      json:"max_lines"`
}

// LayerOverride pins every path matching Glob to a layer, ahead of all
// marker and content heuristics.
type LayerOverride struct {
	Glob  string `yaml:"glob"  json:"glob"`
	Layer Layer  `yaml:"layer" json:"layer"`
}

// Config holds project-level configuration loaded from .archlint.yaml.
// Zero configuration is valid; every field has a usable default.
type Config struct {
	LayerMarkers   map[string][]string `yaml:"layer_markers"       json:"layer_markers,omitempty"`
	LayerOverrides []LayerOverride     `yaml:"layer_overrides"     json:"layer_overrides,omitempty"`
	GodUnit        GodUnitThresholds   `yaml:"god_unit_thresholds" json:"god_unit_thresholds"`
	NestingLimit   int                 `yaml:"nesting_limit"       json:"nesting_limit"`
	MaxParameters  int                 `yaml:"max_parameters"      json:"max_parameters"`
	ExcludedPaths  []string            `yaml:"excluded_paths"      json:"excluded_paths,omitempty"`
	DisabledRules  []string            `yaml:"disabled_rules"      json:"disabled_rules,omitempty"`
	Workers        int                 `yaml:"workers"             json:"workers,omitempty"`
}

// AssignableLayers are the tags a marker or override may assign.
// Unclassified is a verdict, never an assignment.
var AssignableLayers = []Layer{LayerRouter, LayerOperations, LayerDatabase, LayerModel}

// DefaultConfig returns the thresholds and markers used when no
// .archlint.yaml exists.
func DefaultConfig() Config {
	return Config{
		LayerMarkers: map[string][]string{
			string(LayerRouter):     {"routers", "api", "endpoints", "views"},
			string(LayerOperations): {"operations", "services", "usecases"},
			string(LayerDatabase):   {"db", "database", "repositories", "dao"},
			string(LayerModel):      {"models", "schemas", "entities", "shared"},
		},
		GodUnit: GodUnitThresholds{
			MaxAttributes: 8,
			MaxMethods:    12,
			MaxLines:      400,
		},
		NestingLimit:  3,
		MaxParameters: 5,
	}
}

// Validate checks the config for invalid values and returns a
// descriptive error naming the offending key. Configuration errors are
// fatal before any parsing begins.
func (c Config) Validate() error {
	// 1. thresholds must be positive
	if c.GodUnit.MaxAttributes <= 0 {
		return fmt.Errorf("god_unit_thresholds.max_attributes must be > 0 (got %d)", c.GodUnit.MaxAttributes)
	}
	if c.GodUnit.MaxMethods <= 0 {
		return fmt.Errorf("god_unit_thresholds.max_methods must be > 0 (got %d)", c.GodUnit.MaxMethods)
	}
	if c.GodUnit.MaxLines <= 0 {
		return fmt.Errorf("god_unit_thresholds.max_lines must be > 0 (got %d)", c.GodUnit.MaxLines)
	}
	if c.NestingLimit <= 0 {
		return fmt.Errorf("nesting_limit must be > 0 (got %d)", c.NestingLimit)
	}
	if c.MaxParameters <= 0 {
		return fmt.Errorf("max_parameters must be > 0 (got %d)", c.MaxParameters)
	}

	// 2. layer_markers keys must be assignable layers
	for key, globs := range c.LayerMarkers {
		if !isAssignableLayer(Layer(key)) {
			return fmt.Errorf("unknown layer %q in layer_markers (valid: router, operations, database, model)", key)
		}
		for _, g := range globs {
			if !validGlob(g) {
				return fmt.Errorf("malformed pattern %q in layer_markers.%s", g, key)
			}
		}
	}

	// 3. layer_overrides need a valid glob and an assignable layer
	for i, ov := range c.LayerOverrides {
		if ov.Glob == "" {
			return fmt.Errorf("layer_overrides[%d].glob must not be empty", i)
		}
		if !validGlob(ov.Glob) {
			return fmt.Errorf("malformed pattern %q in layer_overrides[%d].glob", ov.Glob, i)
		}
		if !isAssignableLayer(ov.Layer) {
			return fmt.Errorf("unknown layer %q in layer_overrides[%d] (valid: router, operations, database, model)", ov.Layer, i)
		}
	}

	// 4. excluded_paths must be well-formed patterns
	for _, g := range c.ExcludedPaths {
		if !validGlob(g) {
			return fmt.Errorf("malformed pattern %q in excluded_paths", g)
		}
	}

	// 5. disabled_rules must name known rules
	for _, id := range c.DisabledRules {
		if !isKnownRule(id) {
			return fmt.Errorf("unknown rule %q in disabled_rules", id)
		}
	}

	// 6. workers is a count, never negative
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (got %d)", c.Workers)
	}

	return nil
}

// IsExcluded reports whether a relative path matches any excluded_paths
// pattern.
func (c Config) IsExcluded(rel string) bool {
	for _, g := range c.ExcludedPaths {
		if MatchPath(g, rel) {
			return true
		}
	}
	return false
}

// OverrideFor returns the layer pinned to a path by layer_overrides,
// first match wins.
func (c Config) OverrideFor(rel string) (Layer, bool) {
	for _, ov := range c.LayerOverrides {
		if MatchPath(ov.Glob, rel) {
			return ov.Layer, true
		}
	}
	return "", false
}

// IsDisabledRule reports whether the rule id is switched off.
func (c Config) IsDisabledRule(id string) bool {
	for _, d := range c.DisabledRules {
		if d == id {
			return true
		}
	}
	return false
}

// MarkersFor returns the path markers configured for a layer.
func (c Config) MarkersFor(l Layer) []string {
	return c.LayerMarkers[string(l)]
}

// MatchPath reports whether a relative slash-separated path matches a
// config pattern. A bare name matches any single path segment; a
// trailing /** makes the pattern a directory-prefix match; anything
// else matches the whole path.
func MatchPath(pattern, rel string) bool {
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}
	if !strings.Contains(pattern, "/") {
		for _, seg := range strings.Split(rel, "/") {
			if ok, _ := path.Match(pattern, seg); ok {
				return true
			}
		}
		return false
	}
	ok, _ := path.Match(pattern, rel)
	return ok
}

func validGlob(pattern string) bool {
	if pattern == "" {
		return false
	}
	probe := strings.ReplaceAll(pattern, "**", "*")
	_, err := path.Match(probe, "probe")
	return err == nil
}

func isAssignableLayer(l Layer) bool {
	for _, k := range AssignableLayers {
		if k == l {
			return true
		}
	}
	return false
}

func isKnownRule(id string) bool {
	for _, r := range KnownRules {
		if r == id {
			return true
		}
	}
	return false
}
