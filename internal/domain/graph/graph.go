package graph

import (
	"sort"
	"strings"

	"github.com/archlint/archlint/internal/domain"
)

// DependencyGraph is the directed module-dependency graph derived from
// a parsed source index. It is built once, then only read; rule
// evaluation never mutates it.
type DependencyGraph struct {
	Units map[string]*domain.SourceUnit
	Nodes map[string]*Node
	Edges []domain.Edge

	moduleIndex map[string]string // dotted module name → unit path
}

// Node is one vertex: a source unit or an external sink standing in
// for an import that does not resolve inside the tree.
type Node struct {
	Name     string
	External bool
	Out      map[string]bool // distinct targets
	In       map[string]bool // distinct importers
}

// Build constructs the graph from the index. Units are processed in
// sorted path order and imports in source order, so the edge list is
// identical across runs regardless of how files were discovered.
func Build(index map[string]*domain.SourceUnit) *DependencyGraph {
	g := &DependencyGraph{
		Units:       index,
		Nodes:       make(map[string]*Node, len(index)),
		moduleIndex: make(map[string]string, len(index)),
	}

	for path, u := range index {
		g.Nodes[path] = newNode(path, false)
		g.moduleIndex[u.Module] = path
	}

	for _, path := range sortedKeys(index) {
		u := index[path]
		for _, imp := range u.Imports {
			g.addImportEdges(u, imp)
		}
		aliases := g.moduleAliases(u)
		for _, acc := range u.Accesses {
			g.addAccessEdge(u, aliases, acc)
		}
	}

	return g
}

func newNode(name string, external bool) *Node {
	return &Node{
		Name:     name,
		External: external,
		Out:      make(map[string]bool),
		In:       make(map[string]bool),
	}
}

// Resolve maps a dotted module name to the unit path that defines it.
func (g *DependencyGraph) Resolve(module string) (string, bool) {
	p, ok := g.moduleIndex[module]
	return p, ok
}

// addImportEdges records the edges one import statement produces.
func (g *DependencyGraph) addImportEdges(u *domain.SourceUnit, imp domain.ImportStmt) {
	base, ok := importBase(u, imp)
	if !ok {
		// Relative import climbing past the tree root.
		g.addEdge(u.Path, domain.ExternalNode(externalName(imp)), kindFor(imp), imp.Line, imp.Deferred, nil)
		return
	}

	kind := kindFor(imp)

	if len(imp.Symbols) == 0 {
		g.addEdge(u.Path, g.resolveOrExternal(base, externalName(imp)), kind, imp.Line, imp.Deferred, nil)
		return
	}

	// A from-import symbol may itself name a submodule of the base.
	var leftover []string
	for _, sym := range imp.Symbols {
		if target, found := g.moduleIndex[joinModule(base, sym)]; found {
			g.addEdge(u.Path, target, kind, imp.Line, imp.Deferred, nil)
			continue
		}
		leftover = append(leftover, sym)
	}
	if len(leftover) > 0 {
		g.addEdge(u.Path, g.resolveOrExternal(base, externalName(imp)), kind, imp.Line, imp.Deferred, leftover)
	}
}

// addAccessEdge turns a dotted access through an imported module into
// an attribute-chain or private-member edge.
func (g *DependencyGraph) addAccessEdge(u *domain.SourceUnit, aliases map[string]string, acc domain.AttributeAccess) {
	module, ok := aliases[acc.Receiver]
	if !ok {
		return
	}

	// Consume chain segments that extend the bound name into a longer
	// module path (import app; app.db.session.get()).
	members := acc.Chain
	for len(members) > 0 {
		ext := joinModule(module, members[0])
		if _, found := g.moduleIndex[ext]; !found {
			break
		}
		module = ext
		members = members[1:]
	}

	target, ok := g.moduleIndex[module]
	if !ok || target == u.Path || len(members) == 0 {
		return
	}

	kind := domain.EdgeAttrChain
	if isPrivateName(members[0]) {
		kind = domain.EdgePrivateAccess
	} else if len(members) < 2 {
		// Plain attribute use; the import edge already covers it.
		return
	}
	g.addEdge(u.Path, target, kind, acc.Line, false, nil)
}

func (g *DependencyGraph) addEdge(from, to string, kind domain.EdgeKind, line int, deferred bool, symbols []string) {
	if from == to {
		return
	}
	if _, ok := g.Nodes[to]; !ok {
		g.Nodes[to] = newNode(to, domain.IsExternal(to))
	}
	g.Edges = append(g.Edges, domain.Edge{
		From:     from,
		To:       to,
		Kind:     kind,
		Line:     line,
		Deferred: deferred,
		Symbols:  symbols,
	})
	g.Nodes[from].Out[to] = true
	g.Nodes[to].In[from] = true
}

func (g *DependencyGraph) resolveOrExternal(module, extName string) string {
	if p, ok := g.moduleIndex[module]; ok {
		return p
	}
	return domain.ExternalNode(extName)
}

// moduleAliases maps names an import binds in the unit's namespace to
// the dotted module they refer to. Only module bindings are mapped;
// imported classes and functions are not receivers of module access.
func (g *DependencyGraph) moduleAliases(u *domain.SourceUnit) map[string]string {
	aliases := make(map[string]string)
	for _, imp := range u.Imports {
		if imp.Kind == domain.ImportWildcard {
			continue
		}
		base, ok := importBase(u, imp)
		if !ok {
			continue
		}
		if len(imp.Symbols) == 0 {
			switch {
			case imp.Alias != "":
				aliases[imp.Alias] = base
			case strings.Contains(base, "."):
				top := base[:strings.IndexByte(base, '.')]
				aliases[top] = top
			default:
				aliases[base] = base
			}
			continue
		}
		for _, sym := range imp.Symbols {
			sub := joinModule(base, sym)
			if _, found := g.moduleIndex[sub]; !found {
				continue
			}
			name := sym
			if imp.Alias != "" {
				name = imp.Alias
			}
			aliases[name] = sub
		}
	}
	return aliases
}

// importBase resolves the dotted module an import statement targets.
// For relative imports the dots climb from the unit's own package; a
// climb past the root reports false.
func importBase(u *domain.SourceUnit, imp domain.ImportStmt) (string, bool) {
	if imp.Dots == 0 {
		return imp.Module, imp.Module != ""
	}

	pkg := unitPackage(u)
	parts := []string{}
	if pkg != "" {
		parts = strings.Split(pkg, ".")
	}
	climb := imp.Dots - 1
	if climb > len(parts) {
		return "", false
	}
	parts = parts[:len(parts)-climb]
	base := strings.Join(parts, ".")
	if imp.Module != "" {
		base = joinModule(base, imp.Module)
	}
	// base may legitimately be empty: "from . import x" at the tree
	// root resolves x as a top-level module.
	return base, true
}

// unitPackage returns the dotted package a unit lives in. An
// __init__.py is the package itself.
func unitPackage(u *domain.SourceUnit) string {
	if strings.HasSuffix(u.Path, "/__init__.py") || u.Path == "__init__.py" {
		return u.Module
	}
	if i := strings.LastIndexByte(u.Module, '.'); i > 0 {
		return u.Module[:i]
	}
	return ""
}

func kindFor(imp domain.ImportStmt) domain.EdgeKind {
	if imp.Kind == domain.ImportWildcard {
		return domain.EdgeWildcard
	}
	return domain.EdgeImport
}

// externalName picks the label for an unresolved import's sink node.
func externalName(imp domain.ImportStmt) string {
	if imp.Module != "" {
		return imp.Module
	}
	if len(imp.Symbols) > 0 {
		return imp.Symbols[0]
	}
	return "unknown"
}

func joinModule(base, part string) string {
	if base == "" {
		return part
	}
	return base + "." + part
}

func isPrivateName(s string) bool {
	return strings.HasPrefix(s, "_") && !strings.HasPrefix(s, "__")
}

// EdgeCount returns the total number of directed edges.
func (g *DependencyGraph) EdgeCount() int {
	return len(g.Edges)
}

// FanOut counts the distinct targets a unit depends on, external sinks
// included, so unresolved imports still register as coupling.
func (g *DependencyGraph) FanOut(name string) int {
	node, ok := g.Nodes[name]
	if !ok {
		return 0
	}
	return len(node.Out)
}

// FanOutInternal counts only targets inside the indexed tree.
func (g *DependencyGraph) FanOutInternal(name string) int {
	node, ok := g.Nodes[name]
	if !ok {
		return 0
	}
	n := 0
	for to := range node.Out {
		if !domain.IsExternal(to) {
			n++
		}
	}
	return n
}

// FanIn counts the distinct units depending on a node.
func (g *DependencyGraph) FanIn(name string) int {
	node, ok := g.Nodes[name]
	if !ok {
		return 0
	}
	return len(node.In)
}

// MetricsFor computes the full metric set for one unit.
func (g *DependencyGraph) MetricsFor(u *domain.SourceUnit) domain.Metrics {
	return domain.Metrics{
		Attributes: u.MaxAttributes(),
		Methods:    u.MaxMethods(),
		FanOut:     g.FanOut(u.Path),
		FanIn:      g.FanIn(u.Path),
		MaxNesting: u.MaxNesting(),
		MaxParams:  u.MaxParams(),
		Lines:      u.LineCount,
	}
}

// MetricsAll computes metrics for every indexed unit.
func (g *DependencyGraph) MetricsAll() map[string]domain.Metrics {
	m := make(map[string]domain.Metrics, len(g.Units))
	for path, u := range g.Units {
		m[path] = g.MetricsFor(u)
	}
	return m
}

// OutgoingEdges returns the edges leaving a unit, in recorded order.
func (g *DependencyGraph) OutgoingEdges(name string) []domain.Edge {
	var out []domain.Edge
	for _, e := range g.Edges {
		if e.From == name {
			out = append(out, e)
		}
	}
	return out
}

func sortedKeys(m map[string]*domain.SourceUnit) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
