package rules

import (
	"context"
	"sort"
	"sync"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/graph"
	"github.com/archlint/archlint/internal/domain/layer"
)

// Snapshot is the frozen input to rule evaluation: the parsed units,
// the dependency graph, layer assignments, per-unit metrics, the
// effective configuration and any parse failures. It is built once
// per run and only read afterwards, which is what makes evaluating
// rules concurrently safe.
type Snapshot struct {
	Units    map[string]*domain.SourceUnit
	Graph    *graph.DependencyGraph
	Layers   map[string]domain.Layer
	Mixed    []layer.MixedSignal
	Metrics  map[string]domain.Metrics
	Config   domain.Config
	Failures []domain.ParseFailure
}

// NewSnapshot assembles a snapshot from the pipeline stages. Metrics
// are derived from the graph here so every rule sees the same numbers.
func NewSnapshot(g *graph.DependencyGraph, cls layer.Result, cfg domain.Config, failures []domain.ParseFailure) *Snapshot {
	return &Snapshot{
		Units:    g.Units,
		Graph:    g,
		Layers:   cls.Layers,
		Mixed:    cls.Mixed,
		Metrics:  g.MetricsAll(),
		Config:   cfg,
		Failures: failures,
	}
}

// Evaluate runs every enabled rule in the table against the snapshot.
// Rules are independent reads of a frozen snapshot, so each runs in
// its own goroutine; results are merged and re-sorted afterwards,
// which keeps the output identical to a serial evaluation. A
// cancelled context stops rules that have not started yet; findings
// from rules already finished are still discarded by the caller.
func Evaluate(ctx context.Context, snap *Snapshot, specs []Spec) []domain.Finding {
	results := make([][]domain.Finding, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		if snap.Config.IsDisabledRule(spec.ID) {
			continue
		}
		wg.Add(1)
		go func(i int, spec Spec) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			findings := spec.Check(snap)
			for j := range findings {
				findings[j].Rule = spec.ID
				findings[j].Severity = spec.Severity
				findings[j].FixKey = FixKey(spec.ID)
			}
			results[i] = findings
		}(i, spec)
	}
	wg.Wait()

	var all []domain.Finding
	for _, findings := range results {
		all = append(all, findings...)
	}
	domain.SortFindings(all)
	return all
}

// sortedUnitPaths returns the snapshot's unit paths in lexical order,
// so per-unit rules emit findings deterministically.
func (s *Snapshot) sortedUnitPaths() []string {
	paths := make([]string, 0, len(s.Units))
	for p := range s.Units {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
