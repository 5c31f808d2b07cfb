package domain_test

import (
	"testing"

	"github.com/archlint/archlint/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := domain.DefaultConfig()

	assert.Equal(t, 8, cfg.GodUnit.MaxAttributes)
	assert.Equal(t, 12, cfg.GodUnit.MaxMethods)
	assert.Equal(t, 400, cfg.GodUnit.MaxLines)
	assert.Equal(t, 3, cfg.NestingLimit)
	assert.Equal(t, 5, cfg.MaxParameters)
	assert.Empty(t, cfg.ExcludedPaths)
	assert.Empty(t, cfg.DisabledRules)
	assert.Zero(t, cfg.Workers)
}

func TestDefaultConfig_MarkersCoverAssignableLayers(t *testing.T) {
	cfg := domain.DefaultConfig()
	for _, l := range domain.AssignableLayers {
		assert.NotEmpty(t, cfg.MarkersFor(l), "layer %s should have default markers", l)
	}
	assert.Contains(t, cfg.MarkersFor(domain.LayerRouter), "routers")
	assert.Contains(t, cfg.MarkersFor(domain.LayerDatabase), "repositories")
	assert.Contains(t, cfg.MarkersFor(domain.LayerModel), "schemas")
}

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, domain.DefaultConfig().Validate())
}

// --- Validation Tests ---

func TestValidate_ThresholdsMustBePositive(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		message string
	}{
		{"zero attributes", func(c *domain.Config) { c.GodUnit.MaxAttributes = 0 }, "god_unit_thresholds.max_attributes must be > 0"},
		{"negative methods", func(c *domain.Config) { c.GodUnit.MaxMethods = -1 }, "god_unit_thresholds.max_methods must be > 0"},
		{"zero lines", func(c *domain.Config) { c.GodUnit.MaxLines = 0 }, "god_unit_thresholds.max_lines must be > 0"},
		{"zero nesting", func(c *domain.Config) { c.NestingLimit = 0 }, "nesting_limit must be > 0"},
		{"zero parameters", func(c *domain.Config) { c.MaxParameters = 0 }, "max_parameters must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_UnknownLayerInMarkers(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.LayerMarkers["frontend"] = []string{"ui"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown layer "frontend" in layer_markers`)
}

func TestValidate_UnclassifiedNotAssignable(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.LayerMarkers[string(domain.LayerUnclassified)] = []string{"misc"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown layer")
}

func TestValidate_MalformedMarkerPattern(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.LayerMarkers[string(domain.LayerRouter)] = []string{"[bad"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `malformed pattern "[bad" in layer_markers.router`)
}

func TestValidate_OverrideEmptyGlob(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.LayerOverrides = []domain.LayerOverride{{Glob: "", Layer: domain.LayerRouter}}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "layer_overrides[0].glob must not be empty")
}

func TestValidate_OverrideUnknownLayer(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.LayerOverrides = []domain.LayerOverride{{Glob: "app/**", Layer: "unclassified"}}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown layer "unclassified" in layer_overrides[0]`)
}

func TestValidate_MalformedExcludedPath(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.ExcludedPaths = []string{"[x"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `malformed pattern "[x" in excluded_paths`)
}

func TestValidate_UnknownDisabledRule(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.DisabledRules = []string{"no-such-rule"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "no-such-rule" in disabled_rules`)
}

func TestValidate_KnownDisabledRules(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.DisabledRules = []string{domain.RuleModuleNaming, domain.RuleFlagParameter}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeWorkers(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Workers = -2

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be >= 0 (got -2)")
}

// --- MatchPath Tests ---

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		rel     string
		match   bool
	}{
		// bare names match any path segment
		{"routers", "app/routers/users.py", true},
		{"routers", "routers/users.py", true},
		{"routers", "app/operations/users.py", false},
		{"*_test", "app/user_test/x.py", true},
		// trailing /** is a directory-prefix match
		{"app/legacy/**", "app/legacy/old.py", true},
		{"app/legacy/**", "app/legacy", true},
		{"app/legacy/**", "app/legacynot/old.py", false},
		// patterns with a slash match the whole path
		{"app/*.py", "app/main.py", true},
		{"app/*.py", "app/sub/main.py", false},
		// empty pattern never matches
		{"", "anything.py", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.match, domain.MatchPath(tt.pattern, tt.rel),
			"pattern %q against %q", tt.pattern, tt.rel)
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.ExcludedPaths = []string{"migrations", "scripts/**"}

	assert.True(t, cfg.IsExcluded("app/migrations/0001_init.py"))
	assert.True(t, cfg.IsExcluded("scripts/deploy.py"))
	assert.False(t, cfg.IsExcluded("app/routers/users.py"))
}

func TestOverrideFor_FirstMatchWins(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.LayerOverrides = []domain.LayerOverride{
		{Glob: "app/special/**", Layer: domain.LayerDatabase},
		{Glob: "app/**", Layer: domain.LayerOperations},
	}

	l, ok := cfg.OverrideFor("app/special/store.py")
	assert.True(t, ok)
	assert.Equal(t, domain.LayerDatabase, l)

	l, ok = cfg.OverrideFor("app/other.py")
	assert.True(t, ok)
	assert.Equal(t, domain.LayerOperations, l)

	_, ok = cfg.OverrideFor("lib/helpers.py")
	assert.False(t, ok)
}

func TestIsDisabledRule(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.DisabledRules = []string{domain.RuleResourceOpen}

	assert.True(t, cfg.IsDisabledRule(domain.RuleResourceOpen))
	assert.False(t, cfg.IsDisabledRule(domain.RuleGodUnit))
}
