// Package rules holds the conformance rule table and the engine that
// evaluates it against an analysis snapshot. Each rule is a pure
// predicate over the snapshot; the engine stamps identity, severity
// and fix key onto whatever the predicate reports.
package rules

import (
	"github.com/archlint/archlint/internal/domain"
)

// CheckFunc inspects a snapshot and reports raw findings. Predicates
// fill Unit, Line and Description; the engine fills the rest.
type CheckFunc func(*Snapshot) []domain.Finding

// Spec is one row of the rule table: identity, severity, the layers
// the rule speaks about (nil means any) and the predicate itself.
type Spec struct {
	ID       string
	Severity domain.Severity
	Layers   []domain.Layer
	Summary  string
	Check    CheckFunc
}

// Table returns the full rule set, most severe rules first. The table
// is rebuilt on every call so callers can filter it freely.
func Table() []Spec {
	return []Spec{
		{
			ID:       domain.RuleLayerOrder,
			Severity: domain.SeverityCritical,
			Layers:   []domain.Layer{domain.LayerRouter, domain.LayerOperations, domain.LayerDatabase},
			Summary:  "imports must point from higher layers to lower ones, never back up",
			Check:    checkLayerOrder,
		},
		{
			ID:       domain.RuleCircularImport,
			Severity: domain.SeverityCritical,
			Summary:  "no import cycle may exist between project modules",
			Check:    checkCircularImport,
		},
		{
			ID:       domain.RuleMissingCompositionRoot,
			Severity: domain.SeverityCritical,
			Layers:   []domain.Layer{domain.LayerOperations, domain.LayerDatabase, domain.LayerModel, domain.LayerUnclassified},
			Summary:  "concrete dependencies should be wired in one composition root, not via scattered deferred imports",
			Check:    checkCompositionRoot,
		},
		{
			ID:       domain.RuleWildcardImport,
			Severity: domain.SeverityImportant,
			Summary:  "star imports hide the dependency surface of a module",
			Check:    checkWildcardImport,
		},
		{
			ID:       domain.RuleGodUnit,
			Severity: domain.SeverityImportant,
			Summary:  "a module that exceeds the attribute, method or length budget does too much",
			Check:    checkGodUnit,
		},
		{
			ID:       domain.RuleDeepNesting,
			Severity: domain.SeverityImportant,
			Summary:  "deeply nested control flow should be flattened or extracted",
			Check:    checkDeepNesting,
		},
		{
			ID:       domain.RuleBroadExcept,
			Severity: domain.SeverityImportant,
			Summary:  "catching Exception or everything without re-raising swallows failures",
			Check:    checkBroadExcept,
		},
		{
			ID:       domain.RuleParseError,
			Severity: domain.SeverityImportant,
			Summary:  "files the analyzer could not read were excluded from every other check",
			Check:    checkParseError,
		},
		{
			ID:       domain.RuleLayerSkip,
			Severity: domain.SeverityImportant,
			Layers:   []domain.Layer{domain.LayerRouter, domain.LayerDatabase},
			Summary:  "a unit matching two layers at once usually routes around the one between them",
			Check:    checkLayerSkip,
		},
		{
			ID:       domain.RulePrivateAccess,
			Severity: domain.SeverityImportant,
			Summary:  "underscore-prefixed members of other modules are not public API",
			Check:    checkPrivateAccess,
		},
		{
			ID:       domain.RuleFlagParameter,
			Severity: domain.SeveritySuggestion,
			Summary:  "a boolean default that switches behavior across call sites wants to be two functions",
			Check:    checkFlagParameter,
		},
		{
			ID:       domain.RuleDemeterChain,
			Severity: domain.SeveritySuggestion,
			Summary:  "long attribute chains couple the caller to the internals of every hop",
			Check:    checkDemeterChain,
		},
		{
			ID:       domain.RuleModuleNaming,
			Severity: domain.SeveritySuggestion,
			Summary:  "module file names should be snake_case",
			Check:    checkModuleNaming,
		},
		{
			ID:       domain.RuleResourceOpen,
			Severity: domain.SeveritySuggestion,
			Summary:  "open() outside a with block leaks the handle on any error path",
			Check:    checkResourceOpen,
		},
	}
}

// SpecFor returns the table row for a rule id, if it exists.
func SpecFor(id string) (Spec, bool) {
	for _, spec := range Table() {
		if spec.ID == id {
			return spec, true
		}
	}
	return Spec{}, false
}
