// Package baseline persists one accepted report per project so later
// runs can be diffed against it.
package baseline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/archlint/archlint/internal/domain"
)

// Store is a file-based implementation of domain.BaselineStore.
type Store struct{}

// New creates a file-based baseline store.
func New() *Store {
	return &Store{}
}

// Load reads the saved baseline report. Returns (nil, nil) when no
// baseline exists.
func (s *Store) Load(root string) (*domain.Report, error) {
	data, err := os.ReadFile(baselinePath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Save writes the report as the new baseline, creating directories as
// needed.
func (s *Store) Save(root string, r *domain.Report) error {
	if err := os.MkdirAll(baselineDir(root), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(baselinePath(root), data, 0644)
}

// Invalidate removes the baseline file.
func (s *Store) Invalidate(root string) error {
	if err := os.Remove(baselinePath(root)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func baselineDir(root string) string {
	return filepath.Join(root, ".archlint")
}

func baselinePath(root string) string {
	return filepath.Join(root, ".archlint", "baseline.json")
}
