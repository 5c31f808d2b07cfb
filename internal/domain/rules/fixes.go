package rules

import "github.com/archlint/archlint/internal/domain"

// fixKeys maps each rule to the remediation template a caller (CLI
// renderer, MCP client, editor plugin) can expand. Keys are stable
// identifiers, not prose.
var fixKeys = map[string]string{
	domain.RuleLayerOrder:             "invert-dependency",
	domain.RuleCircularImport:         "extract-shared-module",
	domain.RuleMissingCompositionRoot: "inject-dependency",
	domain.RuleWildcardImport:         "name-imports",
	domain.RuleGodUnit:                "split-unit",
	domain.RuleDeepNesting:            "extract-function",
	domain.RuleBroadExcept:            "narrow-except",
	domain.RuleParseError:             "fix-syntax",
	domain.RuleLayerSkip:              "route-through-operations",
	domain.RulePrivateAccess:          "use-public-api",
	domain.RuleFlagParameter:          "split-function",
	domain.RuleDemeterChain:           "add-delegate",
	domain.RuleModuleNaming:           "rename-module",
	domain.RuleResourceOpen:           "use-context-manager",
}

// fixHints carries a one-line expansion per template key, used by the
// rules listing and the MCP rules tool.
var fixHints = map[string]string{
	"invert-dependency":        "depend on an interface defined in the lower layer and implement it above",
	"extract-shared-module":    "move the shared names into a new module both sides can import",
	"inject-dependency":        "accept the dependency as a parameter and construct it in the composition root",
	"name-imports":             "replace the star import with the specific names the module uses",
	"split-unit":               "group related attributes and methods and move each group to its own module",
	"extract-function":         "pull the innermost block into a named function or use early returns",
	"narrow-except":            "catch the specific exception types the block can actually raise",
	"fix-syntax":               "repair the syntax error so the file can be analyzed",
	"route-through-operations": "let the router call an operations function instead of touching storage",
	"use-public-api":           "call the module's public function or ask its owner to expose one",
	"split-function":           "replace the flag with two functions, one per behavior",
	"add-delegate":             "add a method on the direct dependency that answers the question",
	"rename-module":            "rename the file to snake_case and update its importers",
	"use-context-manager":      "wrap the open() call in a with statement",
}

// FixKey returns the remediation template key for a rule id, or the
// empty string when the rule has no template.
func FixKey(ruleID string) string {
	return fixKeys[ruleID]
}

// FixHint returns the one-line expansion of a fix template key.
func FixHint(key string) string {
	return fixHints[key]
}
