package domain

// ProjectScanner walks a source tree and returns the Python files to index.
type ProjectScanner interface {
	Scan(root string, excludes ...string) (*ScanResult, error)
}

// ScanResult holds the outcome of scanning a project directory. Paths
// are relative to RootPath, slash-separated and sorted.
type ScanResult struct {
	RootPath    string   `json:"root_path"`
	PythonFiles []string `json:"python_files"`
	TotalFiles  int      `json:"total_files"`
}

// UnitParser turns one source file into a SourceUnit. A syntactically
// invalid file returns a *ParseError; the caller converts it into a
// finding rather than aborting.
type UnitParser interface {
	ParseFile(absPath, relPath string) (*SourceUnit, error)
}

// ConfigLoader reads project configuration, falling back to defaults
// when no config file exists.
type ConfigLoader interface {
	Load(root string) (Config, error)
}

// FrameworkDetector inspects the indexed imports and reports which
// frameworks the tree uses, plus the signal module prefixes the layer
// classifier consumes.
type FrameworkDetector interface {
	Detect(units map[string]*SourceUnit) FrameworkInfo
}

// GitInfo exposes the version-control facts attached to report metadata.
type GitInfo interface {
	IsGitRepo(path string) bool
	CommitHash(path string) (string, error)
}

// RunHistory persists one summary line per saved run.
type RunHistory interface {
	Save(root string, entry RunEntry) error
	Load(root string) ([]RunEntry, error)
}

// BaselineStore persists a full report for later diffing. Load returns
// (nil, nil) when no baseline exists.
type BaselineStore interface {
	Load(root string) (*Report, error)
	Save(root string, r *Report) error
	Invalidate(root string) error
}
