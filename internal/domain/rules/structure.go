package rules

import (
	"fmt"
	"strings"

	"github.com/archlint/archlint/internal/domain"
)

// checkLayerOrder walks every import edge between classified units and
// flags the ones that point upward, plus routers that reach storage
// directly. Model and unclassified units carry no height and are
// exempt on both ends.
func checkLayerOrder(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, e := range snap.Graph.Edges {
		if !isImportEdge(e.Kind) || domain.IsExternal(e.To) {
			continue
		}
		from := snap.Layers[e.From]
		to := snap.Layers[e.To]
		fromHeight, ok := from.Height()
		if !ok {
			continue
		}
		toHeight, ok := to.Height()
		if !ok {
			continue
		}
		switch {
		case toHeight > fromHeight:
			findings = append(findings, domain.Finding{
				Unit: e.From,
				Line: e.Line,
				Description: fmt.Sprintf("%s unit imports %s unit %s; dependencies must point toward lower layers",
					from, to, snap.displayName(e.To)),
			})
		case fromHeight-toHeight > 1:
			findings = append(findings, domain.Finding{
				Unit: e.From,
				Line: e.Line,
				Description: fmt.Sprintf("router imports %s from the database layer directly; route the call through operations",
					snap.displayName(e.To)),
			})
		}
	}
	return findings
}

// checkCircularImport reports one finding per import cycle, anchored
// at the cycle's lexically smallest member.
func checkCircularImport(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, cycle := range snap.Graph.Cycles() {
		modules := make([]string, 0, len(cycle)+1)
		for _, p := range cycle {
			modules = append(modules, snap.displayName(p))
		}
		modules = append(modules, modules[0])
		findings = append(findings, domain.Finding{
			Unit:        cycle[0],
			Line:        snap.importLine(cycle[0], cycle[1]),
			Description: fmt.Sprintf("import cycle: %s", strings.Join(modules, " -> ")),
		})
	}
	return findings
}

// checkCompositionRoot looks for deferred from-imports that bind a
// concrete class inside a function body. One unit doing this is a
// composition root; several units doing it means construction is
// scattered, so every site is reported.
func checkCompositionRoot(snap *Snapshot) []domain.Finding {
	type site struct {
		unit   string
		line   int
		symbol string
		target string
	}
	var sites []site
	offenders := make(map[string]bool)

	for _, e := range snap.Graph.Edges {
		if !e.Deferred || !isImportEdge(e.Kind) || domain.IsExternal(e.To) {
			continue
		}
		if snap.Layers[e.From] == domain.LayerRouter {
			continue
		}
		target := snap.Units[e.To]
		if target == nil {
			continue
		}
		for _, sym := range e.Symbols {
			cls, ok := findClass(target, sym)
			if !ok || cls.IsProtocol {
				continue
			}
			sites = append(sites, site{unit: e.From, line: e.Line, symbol: sym, target: e.To})
			offenders[e.From] = true
			break
		}
	}
	if len(offenders) <= 1 {
		return nil
	}

	findings := make([]domain.Finding, 0, len(sites))
	for _, s := range sites {
		findings = append(findings, domain.Finding{
			Unit: s.unit,
			Line: s.line,
			Description: fmt.Sprintf("deferred import of concrete class %s from %s; construct dependencies in a single composition root",
				s.symbol, snap.displayName(s.target)),
		})
	}
	return findings
}

// checkWildcardImport flags every star import edge.
func checkWildcardImport(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, e := range snap.Graph.Edges {
		if e.Kind != domain.EdgeWildcard {
			continue
		}
		findings = append(findings, domain.Finding{
			Unit:        e.From,
			Line:        e.Line,
			Description: fmt.Sprintf("star import pulls every public name of %s into scope", snap.displayName(e.To)),
		})
	}
	return findings
}

// checkPrivateAccess flags attribute reads of underscore-prefixed
// members on other modules, internal or external alike.
func checkPrivateAccess(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, e := range snap.Graph.Edges {
		if e.Kind != domain.EdgePrivateAccess {
			continue
		}
		findings = append(findings, domain.Finding{
			Unit:        e.From,
			Line:        e.Line,
			Description: fmt.Sprintf("reaches into a private member of %s", snap.displayName(e.To)),
		})
	}
	return findings
}

// checkLayerSkip surfaces units whose markers or contents matched two
// layers at once; they were classified into the stricter layer, and
// the double match usually means the middle layer is being bypassed.
func checkLayerSkip(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, m := range snap.Mixed {
		names := make([]string, 0, len(m.Layers))
		for _, l := range m.Layers {
			names = append(names, string(l))
		}
		findings = append(findings, domain.Finding{
			Unit: m.Unit,
			Description: fmt.Sprintf("unit matches both %s; classified as %s, but mixed responsibilities usually bypass a layer",
				strings.Join(names, " and "), snap.Layers[m.Unit]),
		})
	}
	return findings
}

// displayName renders a node for humans: the dotted module path for
// project units, the bare package name for external sinks.
func (s *Snapshot) displayName(node string) string {
	if domain.IsExternal(node) {
		return strings.TrimPrefix(node, domain.ExternalPrefix)
	}
	if u, ok := s.Units[node]; ok && u.Module != "" {
		return u.Module
	}
	return node
}

// importLine returns the line of the first import edge from one unit
// to another, or zero when no such edge exists.
func (s *Snapshot) importLine(from, to string) int {
	for _, e := range s.Graph.Edges {
		if e.From == from && e.To == to && isImportEdge(e.Kind) {
			return e.Line
		}
	}
	return 0
}

func isImportEdge(kind domain.EdgeKind) bool {
	return kind == domain.EdgeImport || kind == domain.EdgeWildcard
}

// findClass looks up a class declaration by name in a unit.
func findClass(u *domain.SourceUnit, name string) (domain.ClassDecl, bool) {
	for _, cls := range u.Classes {
		if cls.Name == name {
			return cls, true
		}
	}
	return domain.ClassDecl{}, false
}
