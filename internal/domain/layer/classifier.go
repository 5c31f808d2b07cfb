package layer

import (
	"path"
	"sort"
	"strings"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/graph"
)

// Result carries the layer assignment for every unit plus the
// mixed-evidence units. Classification and violation detection share
// this evidence: the assignment picks the stricter layer, and the rule
// engine separately flags each mixed unit as a layer-skip candidate.
type Result struct {
	Layers map[string]domain.Layer
	Mixed  []MixedSignal
}

// MixedSignal is a unit whose evidence matched more than one layer of
// the dependency order.
type MixedSignal struct {
	Unit   string
	Layers []domain.Layer
}

// Classify assigns exactly one layer to every indexed unit. Heuristics
// run in order, first match wins: explicit config override, path
// markers, content signals. What remains becomes Operations when it
// touches only Model units and the standard library, otherwise
// Unclassified.
func Classify(g *graph.DependencyGraph, cfg domain.Config, fw domain.FrameworkInfo) *Result {
	res := &Result{Layers: make(map[string]domain.Layer, len(g.Units))}

	paths := make([]string, 0, len(g.Units))
	for p := range g.Units {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var pending []string
	for _, p := range paths {
		u := g.Units[p]

		if l, ok := cfg.OverrideFor(p); ok {
			res.Layers[p] = l
			continue
		}

		if matched := markerLayers(p, cfg); len(matched) > 0 {
			res.Layers[p] = pickStrictest(matched)
			if ordered := orderedOnly(matched); len(ordered) > 1 {
				res.Mixed = append(res.Mixed, MixedSignal{Unit: p, Layers: ordered})
			}
			continue
		}

		router := importsAny(u, fw.RouterModules)
		db := importsAny(u, fw.PersistenceModules)
		switch {
		case router && db:
			res.Layers[p] = domain.LayerDatabase
			res.Mixed = append(res.Mixed, MixedSignal{
				Unit:   p,
				Layers: []domain.Layer{domain.LayerRouter, domain.LayerDatabase},
			})
		case router:
			res.Layers[p] = domain.LayerRouter
		case db:
			res.Layers[p] = domain.LayerDatabase
		case isModelUnit(u, fw):
			res.Layers[p] = domain.LayerModel
		default:
			pending = append(pending, p)
		}
	}

	for _, p := range pending {
		if importsOnlyModelsAndStdlib(g, p, res.Layers) {
			res.Layers[p] = domain.LayerOperations
		} else {
			res.Layers[p] = domain.LayerUnclassified
		}
	}

	return res
}

// Census counts units per layer tag for report metadata.
func Census(layers map[string]domain.Layer) map[string]int {
	census := make(map[string]int)
	for _, l := range layers {
		census[string(l)]++
	}
	return census
}

// markerLayers returns every layer whose configured path markers match
// the unit, in the fixed marker-checking order.
func markerLayers(rel string, cfg domain.Config) []domain.Layer {
	var matched []domain.Layer
	for _, l := range domain.AssignableLayers {
		for _, marker := range cfg.MarkersFor(l) {
			if matchesMarker(marker, rel) {
				matched = append(matched, l)
				break
			}
		}
	}
	return matched
}

// matchesMarker matches a marker against the path segments and the
// file stem, so "models" hits both app/models/user.py and models.py.
func matchesMarker(marker, rel string) bool {
	if domain.MatchPath(marker, rel) {
		return true
	}
	stem := strings.TrimSuffix(path.Base(rel), ".py")
	ok, _ := path.Match(marker, stem)
	return ok
}

// pickStrictest resolves a multi-layer match to the lowest layer in
// the dependency order; the lowest tier constrains the unit's edges
// the most. Model is the least strict since it is exempt from order
// checks.
func pickStrictest(matched []domain.Layer) domain.Layer {
	for _, l := range []domain.Layer{domain.LayerDatabase, domain.LayerOperations, domain.LayerRouter, domain.LayerModel} {
		for _, m := range matched {
			if m == l {
				return l
			}
		}
	}
	return domain.LayerUnclassified
}

// orderedOnly filters a match list down to the layers that participate
// in the dependency order.
func orderedOnly(matched []domain.Layer) []domain.Layer {
	var ordered []domain.Layer
	for _, m := range matched {
		if _, ok := m.Height(); ok {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

// importsAny reports whether any absolute import of the unit falls
// under one of the given module prefixes.
func importsAny(u *domain.SourceUnit, prefixes []string) bool {
	for _, imp := range u.Imports {
		if imp.Dots > 0 {
			continue
		}
		for _, pre := range prefixes {
			if imp.Module == pre || strings.HasPrefix(imp.Module, pre+".") {
				return true
			}
		}
	}
	return false
}

// isModelUnit recognizes data-shape modules: every class is a
// Protocol, or the unit declares classes built on a model framework.
func isModelUnit(u *domain.SourceUnit, fw domain.FrameworkInfo) bool {
	if len(u.Classes) == 0 {
		return false
	}
	allProtocol := true
	for _, c := range u.Classes {
		if !c.IsProtocol {
			allProtocol = false
			break
		}
	}
	if allProtocol {
		return true
	}
	return importsAny(u, fw.ModelModules)
}

// importsOnlyModelsAndStdlib reports whether every outgoing edge of a
// unit lands on a Model-tagged unit or a standard-library module. A
// unit with no imports qualifies vacuously.
func importsOnlyModelsAndStdlib(g *graph.DependencyGraph, p string, layers map[string]domain.Layer) bool {
	node := g.Nodes[p]
	for to := range node.Out {
		if domain.IsExternal(to) {
			name := strings.TrimPrefix(to, domain.ExternalPrefix)
			if !pythonStdlib[name] {
				return false
			}
			continue
		}
		if layers[to] != domain.LayerModel {
			return false
		}
	}
	return true
}

// pythonStdlib lists the standard-library top-level modules the
// Operations heuristic tolerates. Not exhaustive; covers what layered
// business code realistically touches.
var pythonStdlib = map[string]bool{
	"abc": true, "argparse": true, "asyncio": true, "base64": true,
	"collections": true, "contextlib": true, "copy": true, "csv": true,
	"dataclasses": true, "datetime": true, "decimal": true, "enum": true,
	"functools": true, "hashlib": true, "heapq": true, "io": true,
	"itertools": true, "json": true, "logging": true, "math": true,
	"operator": true, "os": true, "pathlib": true, "random": true,
	"re": true, "secrets": true, "shutil": true, "string": true,
	"subprocess": true, "sys": true, "tempfile": true, "textwrap": true,
	"threading": true, "time": true, "types": true, "typing": true,
	"unittest": true, "urllib": true, "uuid": true, "warnings": true,
}
