// Package report folds raw engine output into the final run report:
// deduplicated, stably sorted, counted and grouped by file.
package report

import (
	"sort"

	"github.com/archlint/archlint/internal/domain"
)

// Aggregate builds the report for one completed run. Duplicate
// findings collapse to a single entry, ordering is total, and feeding
// a report's own findings back in yields the identical report.
func Aggregate(meta domain.RunMeta, findings []domain.Finding) *domain.Report {
	deduped := dedup(findings)
	domain.SortFindings(deduped)

	return &domain.Report{
		Meta:     meta,
		Summary:  summarize(deduped),
		Findings: deduped,
		Files:    groupByFile(deduped),
	}
}

// dedup drops findings with an identical key, keeping first occurrence.
func dedup(findings []domain.Finding) []domain.Finding {
	seen := make(map[string]bool, len(findings))
	out := make([]domain.Finding, 0, len(findings))
	for _, f := range findings {
		key := f.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func summarize(findings []domain.Finding) domain.Summary {
	s := domain.Summary{
		BySeverity: make(map[string]int),
		ByRule:     make(map[string]int),
	}
	for _, f := range findings {
		s.Total++
		s.BySeverity[string(f.Severity)]++
		s.ByRule[f.Rule]++
		if f.Rule == domain.RuleParseError {
			s.ParseFailures++
		}
	}
	s.Analysis = s.Total - s.ParseFailures
	return s
}

// groupByFile splits the sorted findings into per-file groups ordered
// by path. Within a group the global order is preserved, so each
// file's findings stay severity-first.
func groupByFile(findings []domain.Finding) []domain.FileFindings {
	byPath := make(map[string][]domain.Finding)
	for _, f := range findings {
		byPath[f.Unit] = append(byPath[f.Unit], f)
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]domain.FileFindings, 0, len(paths))
	for _, p := range paths {
		files = append(files, domain.FileFindings{Path: p, Findings: byPath[p]})
	}
	return files
}
