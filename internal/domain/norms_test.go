package domain_test

import (
	"fmt"
	"testing"

	"github.com/archlint/archlint/internal/domain"
	"github.com/stretchr/testify/assert"
)

func unitWithClass(attrs, methods, lines int) *domain.SourceUnit {
	var ms []domain.FunctionDecl
	for i := 0; i < methods; i++ {
		ms = append(ms, domain.FunctionDecl{Name: fmt.Sprintf("m%d", i)})
	}
	return &domain.SourceUnit{
		LineCount: lines,
		Classes:   []domain.ClassDecl{{Name: "C", AttributeCount: attrs, Methods: ms}},
	}
}

func TestComputeNorms_Empty(t *testing.T) {
	norms := domain.ComputeNorms(map[string]*domain.SourceUnit{})
	assert.Zero(t, norms.Attributes)
	assert.Zero(t, norms.FileLines)
	assert.Zero(t, norms.Units)
}

func TestComputeNorms_Percentile(t *testing.T) {
	units := make(map[string]*domain.SourceUnit)
	// Ten classes with attribute counts 1..10; p90 lands on the 9th value.
	for i := 1; i <= 10; i++ {
		units[fmt.Sprintf("u%02d.py", i)] = unitWithClass(i, 2, 100)
	}
	norms := domain.ComputeNorms(units)

	assert.Equal(t, 9, norms.Attributes)
	assert.Equal(t, 2, norms.Methods)
	assert.Equal(t, 100, norms.FileLines)
	assert.Equal(t, 10, norms.Units)
}

func TestComputeNorms_MethodsCountAsFunctions(t *testing.T) {
	units := map[string]*domain.SourceUnit{
		"a.py": {
			LineCount: 50,
			Classes: []domain.ClassDecl{
				{Name: "C", Methods: []domain.FunctionDecl{
					{Name: "m", MaxNesting: 5, Params: []domain.Param{{Name: "x"}, {Name: "y"}, {Name: "z"}}},
				}},
			},
		},
	}
	norms := domain.ComputeNorms(units)

	assert.Equal(t, 5, norms.Nesting)
	assert.Equal(t, 3, norms.Parameters)
	assert.Equal(t, 1, norms.Units)
}

func TestComputeNorms_SkipsEmptyFiles(t *testing.T) {
	units := map[string]*domain.SourceUnit{
		"empty.py": {LineCount: 0},
		"real.py":  {LineCount: 80},
	}
	norms := domain.ComputeNorms(units)
	assert.Equal(t, 80, norms.FileLines)
}

// --- ProposedConfig Tests ---

func TestProposedConfig_KeepsDefaultsWhenBelow(t *testing.T) {
	norms := domain.ProjectNorms{Attributes: 3, Methods: 4, FileLines: 120, Nesting: 2, Parameters: 3}
	cfg := norms.ProposedConfig()
	defaults := domain.DefaultConfig()

	assert.Equal(t, defaults.GodUnit, cfg.GodUnit)
	assert.Equal(t, defaults.NestingLimit, cfg.NestingLimit)
	assert.Equal(t, defaults.MaxParameters, cfg.MaxParameters)
}

func TestProposedConfig_RaisesToObserved(t *testing.T) {
	norms := domain.ProjectNorms{Attributes: 11, Methods: 20, FileLines: 900, Nesting: 5, Parameters: 7}
	cfg := norms.ProposedConfig()

	assert.Equal(t, 11, cfg.GodUnit.MaxAttributes)
	assert.Equal(t, 20, cfg.GodUnit.MaxMethods)
	assert.Equal(t, 900, cfg.GodUnit.MaxLines)
	assert.Equal(t, 5, cfg.NestingLimit)
	assert.Equal(t, 7, cfg.MaxParameters)
}

func TestProposedConfig_AlwaysValid(t *testing.T) {
	norms := domain.ProjectNorms{}
	assert.NoError(t, norms.ProposedConfig().Validate())
}
