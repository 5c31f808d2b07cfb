package report

import "github.com/archlint/archlint/internal/domain"

// Diff is the finding-level comparison of two runs against the same
// tree: what appeared, what went away, what is still there.
type Diff struct {
	New       []domain.Finding `json:"new"`
	Fixed     []domain.Finding `json:"fixed"`
	Unchanged []domain.Finding `json:"unchanged"`
}

// HasRegressions reports whether the diff introduces any finding at or
// above the given severity.
func (d Diff) HasRegressions(min domain.Severity) bool {
	for _, f := range d.New {
		if f.Severity.Rank() >= min.Rank() {
			return true
		}
	}
	return false
}

// Compare matches findings between a baseline report and the current
// one by identity key. Both sides may be nil; a nil baseline makes
// every current finding new.
func Compare(baseline, current *domain.Report) Diff {
	baseKeys := keySet(baseline)
	curKeys := keySet(current)

	var d Diff
	if current != nil {
		for _, f := range current.Findings {
			if baseKeys[f.Key()] {
				d.Unchanged = append(d.Unchanged, f)
			} else {
				d.New = append(d.New, f)
			}
		}
	}
	if baseline != nil {
		for _, f := range baseline.Findings {
			if !curKeys[f.Key()] {
				d.Fixed = append(d.Fixed, f)
			}
		}
	}

	domain.SortFindings(d.New)
	domain.SortFindings(d.Fixed)
	domain.SortFindings(d.Unchanged)
	return d
}

func keySet(r *domain.Report) map[string]bool {
	if r == nil {
		return map[string]bool{}
	}
	keys := make(map[string]bool, len(r.Findings))
	for _, f := range r.Findings {
		keys[f.Key()] = true
	}
	return keys
}
