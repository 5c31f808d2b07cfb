package application

import (
	"fmt"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/report"
)

// BaselineService compares fresh reports against an accepted baseline
// and manages the stored baseline itself.
type BaselineService struct {
	store domain.BaselineStore
}

func NewBaselineService(store domain.BaselineStore) *BaselineService {
	return &BaselineService{store: store}
}

// Compare diffs the current report against the stored baseline. The
// second return reports whether a baseline existed; without one the
// diff is empty and every current finding counts as pre-existing.
func (s *BaselineService) Compare(rootPath string, current *domain.Report) (report.Diff, bool, error) {
	base, err := s.store.Load(rootPath)
	if err != nil {
		return report.Diff{}, false, fmt.Errorf("loading baseline: %w", err)
	}
	if base == nil {
		return report.Diff{}, false, nil
	}
	return report.Compare(base, current), true, nil
}

// Accept stores the report as the new baseline, replacing any prior one.
func (s *BaselineService) Accept(rootPath string, r *domain.Report) error {
	if err := s.store.Save(rootPath, r); err != nil {
		return fmt.Errorf("saving baseline: %w", err)
	}
	return nil
}

// Clear removes the stored baseline. Clearing when none exists is not
// an error.
func (s *BaselineService) Clear(rootPath string) error {
	if err := s.store.Invalidate(rootPath); err != nil {
		return fmt.Errorf("clearing baseline: %w", err)
	}
	return nil
}
