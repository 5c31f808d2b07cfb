package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/archlint/archlint/internal/domain"
)

// skipDirs are directories that never contain first-party code.
var skipDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	"node_modules":  true,
	"__pycache__":   true,
	"site-packages": true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".eggs":         true,
	"dist":          true,
	"build":         true,
}

// FileScanner implements domain.ProjectScanner by walking the filesystem.
type FileScanner struct{}

func New() *FileScanner {
	return &FileScanner{}
}

// Scan walks the tree under root and collects every .py file that is
// not excluded. Paths come back relative, slash-separated and sorted,
// which fixes unit identity for everything downstream.
func (s *FileScanner) Scan(root string, excludes ...string) (*domain.ScanResult, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	result := &domain.ScanResult{RootPath: absPath}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(absPath, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDirs[d.Name()] || strings.HasSuffix(d.Name(), ".egg-info") || matchesAny(excludes, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		result.TotalFiles++
		if !strings.HasSuffix(d.Name(), ".py") || matchesAny(excludes, rel) {
			return nil
		}
		result.PythonFiles = append(result.PythonFiles, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.PythonFiles)
	return result, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if domain.MatchPath(p, rel) {
			return true
		}
	}
	return false
}
