package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Severity ranks a finding. The set is closed so reports can be
// sorted and counted stably.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityImportant  Severity = "important"
	SeveritySuggestion Severity = "suggestion"
)

// Rank returns the sort weight of a severity. Higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityImportant:
		return 2
	case SeveritySuggestion:
		return 1
	default:
		return 0
	}
}

// Layer is the architectural tier a source unit belongs to. Router,
// Operations and Database form a total order with Router on top; Model
// is layer-agnostic and may be imported from any tier; Unclassified is
// the fallback when no heuristic matches.
type Layer string

const (
	LayerRouter       Layer = "router"
	LayerOperations   Layer = "operations"
	LayerDatabase     Layer = "database"
	LayerModel        Layer = "model"
	LayerUnclassified Layer = "unclassified"
)

// OrderedLayers lists the tiers that participate in the dependency
// order, top first.
var OrderedLayers = []Layer{LayerRouter, LayerOperations, LayerDatabase}

// KnownLayers lists every valid layer tag, used for config validation.
var KnownLayers = []Layer{LayerRouter, LayerOperations, LayerDatabase, LayerModel, LayerUnclassified}

// Height returns the position of l in the layer order (Router highest)
// and whether l participates in the order at all. Model and
// Unclassified have no height.
func (l Layer) Height() (int, bool) {
	switch l {
	case LayerRouter:
		return 3, true
	case LayerOperations:
		return 2, true
	case LayerDatabase:
		return 1, true
	}
	return 0, false
}

// ImportKind tags how an import statement was written.
type ImportKind string

const (
	ImportAbsolute ImportKind = "absolute"
	ImportRelative ImportKind = "relative"
	ImportWildcard ImportKind = "wildcard"
)

// ImportStmt is one recorded import statement.
type ImportStmt struct {
	Module   string   // dotted module path as written, without leading dots
	Symbols  []string // names in a from-import; nil for a plain import
	Alias    string   // "as" binding, if any
	Kind     ImportKind
	Dots     int // leading-dot count for relative imports
	Line     int
	Deferred bool // statement sits inside a function body
}

// Param is one parameter of a function signature. Receiver parameters
// (self, cls) are not recorded.
type Param struct {
	Name       string
	Annotation string
	Default    string
}

// FunctionDecl is a function or method declaration.
type FunctionDecl struct {
	Name       string
	Line       int
	Params     []Param
	MaxNesting int // deepest block nesting below the function body
}

// ClassDecl is a class declaration with the evidence the rules need.
type ClassDecl struct {
	Name           string
	Bases          []string
	Line           int
	Methods        []FunctionDecl
	AttributeCount int // distinct self.<name> assignment targets
	IsProtocol     bool
}

// ExceptClause is one except handler.
type ExceptClause struct {
	Exception string // "" for a bare except
	Line      int
	Reraises  bool // a raise statement occurs in the handler body
}

// AttributeAccess is a dotted access chain, e.g. order.customer.address.city.
type AttributeAccess struct {
	Receiver string   // first segment of the chain
	Chain    []string // attribute segments after the receiver
	Line     int
}

// HasPrivate reports whether any segment of the chain is a private
// name (single leading underscore, not a dunder).
func (a AttributeAccess) HasPrivate() bool {
	for _, seg := range a.Chain {
		if strings.HasPrefix(seg, "_") && !strings.HasPrefix(seg, "__") {
			return true
		}
	}
	return false
}

// CallSite is one recorded function call.
type CallSite struct {
	Name   string // called name; last segment for dotted calls
	Line   int
	InWith bool // call appears in the expression of a with statement
}

// SourceUnit is one analyzed file. Immutable after parsing.
type SourceUnit struct {
	Path      string // relative, slash-separated, the unit's identity
	Module    string // dotted module name derived from the path
	Imports   []ImportStmt
	Classes   []ClassDecl
	Functions []FunctionDecl // top-level functions only
	Accesses  []AttributeAccess
	Excepts   []ExceptClause
	Calls     []CallSite
	ByteLen   int
	LineCount int
}

// MaxAttributes returns the largest distinct instance-attribute count
// across the unit's classes.
func (u *SourceUnit) MaxAttributes() int {
	max := 0
	for _, c := range u.Classes {
		if c.AttributeCount > max {
			max = c.AttributeCount
		}
	}
	return max
}

// MaxMethods returns the largest method count across the unit's classes.
func (u *SourceUnit) MaxMethods() int {
	max := 0
	for _, c := range u.Classes {
		if len(c.Methods) > max {
			max = len(c.Methods)
		}
	}
	return max
}

// AllFunctions yields top-level functions followed by every method.
func (u *SourceUnit) AllFunctions() []FunctionDecl {
	fns := make([]FunctionDecl, 0, len(u.Functions))
	fns = append(fns, u.Functions...)
	for _, c := range u.Classes {
		fns = append(fns, c.Methods...)
	}
	return fns
}

// MaxNesting returns the deepest nesting across all functions and methods.
func (u *SourceUnit) MaxNesting() int {
	max := 0
	for _, f := range u.AllFunctions() {
		if f.MaxNesting > max {
			max = f.MaxNesting
		}
	}
	return max
}

// MaxParams returns the widest parameter list across functions and methods.
func (u *SourceUnit) MaxParams() int {
	max := 0
	for _, f := range u.AllFunctions() {
		if len(f.Params) > max {
			max = len(f.Params)
		}
	}
	return max
}

// EdgeKind tags why a dependency edge exists.
type EdgeKind string

const (
	EdgeImport        EdgeKind = "module-import"
	EdgeWildcard      EdgeKind = "wildcard-import"
	EdgeAttrChain     EdgeKind = "attribute-chain-access"
	EdgePrivateAccess EdgeKind = "private-member-access"
)

// ExternalPrefix marks graph nodes that stand in for modules outside
// the indexed tree (stdlib and third-party imports).
const ExternalPrefix = "external:"

// ExternalNode returns the sink-node name for an unresolved import,
// keyed by its top-level package.
func ExternalNode(module string) string {
	if i := strings.IndexByte(module, '.'); i > 0 {
		module = module[:i]
	}
	return ExternalPrefix + module
}

// IsExternal reports whether a node name refers to an external sink.
func IsExternal(node string) bool {
	return strings.HasPrefix(node, ExternalPrefix)
}

// Edge is a directed dependency between two units. To is either a unit
// path or an external sink node. Edges are derived and never mutated;
// multiple edges may exist between the same pair.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Kind     EdgeKind `json:"kind"`
	Line     int      `json:"line"`
	Deferred bool     `json:"deferred,omitempty"`
	Symbols  []string `json:"symbols,omitempty"` // from-import symbol names
}

// Metrics are the per-unit scalars the rules consume. Recomputed in
// full on every run.
type Metrics struct {
	Attributes int `json:"attributes"`
	Methods    int `json:"methods"`
	FanOut     int `json:"fan_out"`
	FanIn      int `json:"fan_in"`
	MaxNesting int `json:"max_nesting"`
	MaxParams  int `json:"max_params"`
	Lines      int `json:"lines"`
}

// Finding is one reported rule violation. Findings are value objects:
// identical (rule, unit, line, description) means duplicate.
type Finding struct {
	Rule        string   `json:"rule"`
	Severity    Severity `json:"severity"`
	Unit        string   `json:"unit"`
	Line        int      `json:"line,omitempty"`
	Description string   `json:"description"`
	FixKey      string   `json:"fix_key,omitempty"`
}

// Key returns the dedup identity of a finding.
func (f Finding) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", f.Rule, f.Unit, f.Line, f.Description)
}

// SortFindings orders findings by severity (most severe first), then
// path, line, rule id and description. Every comparison is total, so
// sorted output never depends on input order.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Description < b.Description
	})
}

// Rule identifiers. The table itself lives in the rules package; the
// ids are domain vocabulary because config and reports refer to them.
const (
	RuleLayerOrder             = "layer-order"
	RuleCircularImport         = "circular-import"
	RuleMissingCompositionRoot = "missing-composition-root"
	RuleWildcardImport         = "wildcard-import"
	RuleGodUnit                = "god-unit"
	RuleDeepNesting            = "deep-nesting"
	RuleBroadExcept            = "broad-except"
	RuleParseError             = "parse-error"
	RuleLayerSkip              = "layer-skip"
	RulePrivateAccess          = "private-access"
	RuleFlagParameter          = "flag-parameter"
	RuleDemeterChain           = "demeter-chain"
	RuleModuleNaming           = "module-naming"
	RuleResourceOpen           = "resource-open"
)

// KnownRules lists every rule id, used for config validation and the
// rules command.
var KnownRules = []string{
	RuleLayerOrder,
	RuleCircularImport,
	RuleMissingCompositionRoot,
	RuleWildcardImport,
	RuleGodUnit,
	RuleDeepNesting,
	RuleBroadExcept,
	RuleParseError,
	RuleLayerSkip,
	RulePrivateAccess,
	RuleFlagParameter,
	RuleDemeterChain,
	RuleModuleNaming,
	RuleResourceOpen,
}

// ParseFailure records a file the index stage had to skip.
type ParseFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Line   int    `json:"line,omitempty"`
}

// ParseError is the error a parser returns for a file it cannot read
// or understand. It isolates the failure to that file: callers record
// it and move on.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Failure converts the error into its report record.
func (e *ParseError) Failure() ParseFailure {
	return ParseFailure{Path: e.Path, Reason: e.Reason, Line: e.Line}
}

// FrameworkInfo is what the framework detector learned from the
// indexed imports: which frameworks appear, plus the import prefixes
// the layer classifier treats as routing and persistence signals.
type FrameworkInfo struct {
	Frameworks         []string `json:"frameworks"` // sorted detected names
	RouterModules      []string `json:"-"`
	PersistenceModules []string `json:"-"`
	ModelModules       []string `json:"-"`
}

// RunMeta describes the analyzed tree and the run itself.
type RunMeta struct {
	RootPath   string         `json:"root_path"`
	Timestamp  time.Time      `json:"timestamp"`
	CommitHash string         `json:"commit_hash,omitempty"`
	Units      int            `json:"units"`
	Edges      int            `json:"edges"`
	Frameworks []string       `json:"frameworks,omitempty"`
	Layers     map[string]int `json:"layers,omitempty"` // census by layer tag
}

// Summary separates analysis findings from parse failures and counts
// both by severity and rule.
type Summary struct {
	Total         int            `json:"total"`
	Analysis      int            `json:"analysis"` // findings other than parse-error
	ParseFailures int            `json:"parse_failures"`
	BySeverity    map[string]int `json:"by_severity"`
	ByRule        map[string]int `json:"by_rule"`
}

// FileFindings groups a file's findings for the per-file report view.
type FileFindings struct {
	Path     string    `json:"path"`
	Findings []Finding `json:"findings"`
}

// Report is the aggregated, deduplicated, stably-sorted output of a
// completed run.
type Report struct {
	Meta     RunMeta        `json:"meta"`
	Summary  Summary        `json:"summary"`
	Findings []Finding      `json:"findings"`
	Files    []FileFindings `json:"files"`
}

// HasSeverity reports whether any finding is at or above the given
// severity.
func (r *Report) HasSeverity(min Severity) bool {
	for _, f := range r.Findings {
		if f.Severity.Rank() >= min.Rank() {
			return true
		}
	}
	return false
}

// CountBySeverity returns how many findings carry the given severity.
func (r *Report) CountBySeverity(s Severity) int {
	return r.Summary.BySeverity[string(s)]
}

// RunStatus is the outcome class of one analyzer invocation.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFatal     RunStatus = "fatal"
)

// RunOutcome is the tri-state result of a run: a completed Report, a
// cancellation, or a fatal error with its reason. The library never
// exits the process; front ends map outcomes to exit codes.
type RunOutcome struct {
	Status RunStatus
	Report *Report
	Reason string
	Err    error
}

// Completed wraps a finished report.
func Completed(r *Report) RunOutcome {
	return RunOutcome{Status: RunCompleted, Report: r}
}

// Cancelled marks a run aborted between stages. No report is carried.
func Cancelled() RunOutcome {
	return RunOutcome{Status: RunCancelled, Reason: "run cancelled"}
}

// Fatal marks a run that could not start or finish for run-level
// reasons (unreadable root, bad configuration).
func Fatal(reason string, err error) RunOutcome {
	return RunOutcome{Status: RunFatal, Reason: reason, Err: err}
}

// RunEntry is one line of saved run history.
type RunEntry struct {
	Timestamp  string `json:"timestamp"`
	CommitHash string `json:"commit_hash,omitempty"`
	Units      int    `json:"units"`
	Critical   int    `json:"critical"`
	Important  int    `json:"important"`
	Suggestion int    `json:"suggestion"`
}

// HistoryEntry condenses the report into one run-history line.
func (r *Report) HistoryEntry() RunEntry {
	return RunEntry{
		Timestamp:  r.Meta.Timestamp.UTC().Format(time.RFC3339),
		CommitHash: r.Meta.CommitHash,
		Units:      r.Meta.Units,
		Critical:   r.CountBySeverity(SeverityCritical),
		Important:  r.CountBySeverity(SeverityImportant),
		Suggestion: r.CountBySeverity(SeveritySuggestion),
	}
}
