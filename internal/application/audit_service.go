// Package application orchestrates the audit pipeline: ports in, domain
// logic in the middle, a report out. Services here own sequencing and
// cancellation; all analysis decisions live in internal/domain.
package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/graph"
	"github.com/archlint/archlint/internal/domain/layer"
	"github.com/archlint/archlint/internal/domain/report"
	"github.com/archlint/archlint/internal/domain/rules"
)

// defaultWorkerCap bounds the parse pool when the worker count is not
// configured. Parsing is I/O heavy; past this point more goroutines
// just contend on the disk.
const defaultWorkerCap = 8

// Options carries per-invocation overrides that do not belong in the
// project config file.
type Options struct {
	// Workers overrides the configured parse pool size when > 0.
	Workers int
}

// Analysis is the mid-pipeline product shared by every surface: the
// audit command evaluates rules over it, the graph and MCP surfaces
// read it directly.
type Analysis struct {
	Config   domain.Config
	Scan     *domain.ScanResult
	Units    map[string]*domain.SourceUnit
	Graph    *graph.DependencyGraph
	Layers   *layer.Result
	Info     domain.FrameworkInfo
	Failures []domain.ParseFailure
}

// AuditService runs the full conformance audit over a project tree.
type AuditService struct {
	scanner  domain.ProjectScanner
	parser   domain.UnitParser
	loader   domain.ConfigLoader
	detector domain.FrameworkDetector
	git      domain.GitInfo
}

// NewAuditService creates an audit service with the given adapters.
func NewAuditService(
	scanner domain.ProjectScanner,
	parser domain.UnitParser,
	loader domain.ConfigLoader,
	detector domain.FrameworkDetector,
	git domain.GitInfo,
) *AuditService {
	return &AuditService{
		scanner:  scanner,
		parser:   parser,
		loader:   loader,
		detector: detector,
		git:      git,
	}
}

// Run executes the audit pipeline and reports one of three outcomes:
// a completed report, a cancellation, or a fatal setup error. Rule
// findings never make the run fatal; they live inside the report.
func (s *AuditService) Run(ctx context.Context, rootPath string, opts Options) domain.RunOutcome {
	a, err := s.Analyze(ctx, rootPath, opts)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return domain.Cancelled()
	default:
		return domain.Fatal("analysis aborted", err)
	}

	// 6. Evaluate the rule table over the frozen snapshot.
	snap := rules.NewSnapshot(a.Graph, *a.Layers, a.Config, a.Failures)
	findings := rules.Evaluate(ctx, snap, rules.Table())
	if ctx.Err() != nil {
		return domain.Cancelled()
	}

	// 7. Aggregate findings into the final report.
	rep := report.Aggregate(s.buildMeta(a), findings)
	return domain.Completed(rep)
}

// Analyze runs the pipeline up to (but not including) rule evaluation.
// Cancellation surfaces as the context's error.
func (s *AuditService) Analyze(ctx context.Context, rootPath string, opts Options) (*Analysis, error) {
	// 1. Load project configuration (defaults when no config file).
	cfg, err := s.loader.Load(rootPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Scan the tree for Python files.
	scan, err := s.scanner.Scan(rootPath, cfg.ExcludedPaths...)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Parse every file; a broken file becomes a ParseFailure,
	// never an abort.
	units, failures := s.parseAll(ctx, scan, cfg.Workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Build the dependency graph from the parsed units.
	g := graph.Build(units)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. Detect frameworks and classify units into layers.
	info := s.detector.Detect(units)
	cls := layer.Classify(g, cfg, info)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Analysis{
		Config:   cfg,
		Scan:     scan,
		Units:    units,
		Graph:    g,
		Layers:   cls,
		Info:     info,
		Failures: failures,
	}, nil
}

// parseAll fans the scanned files out over a bounded worker pool.
func (s *AuditService) parseAll(ctx context.Context, scan *domain.ScanResult, workers int) (map[string]*domain.SourceUnit, []domain.ParseFailure) {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > defaultWorkerCap {
			workers = defaultWorkerCap
		}
	}

	type parsed struct {
		unit    *domain.SourceUnit
		failure *domain.ParseFailure
	}

	paths := make(chan string)
	results := make(chan parsed)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range paths {
				unit, err := s.parser.ParseFile(filepath.Join(scan.RootPath, rel), rel)
				if err != nil {
					results <- parsed{failure: asFailure(rel, err)}
					continue
				}
				results <- parsed{unit: unit}
			}
		}()
	}

	go func() {
		defer close(paths)
		for _, rel := range scan.PythonFiles {
			select {
			case paths <- rel:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	units := make(map[string]*domain.SourceUnit, len(scan.PythonFiles))
	var failures []domain.ParseFailure
	for r := range results {
		if r.failure != nil {
			failures = append(failures, *r.failure)
			continue
		}
		units[r.unit.Path] = r.unit
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	return units, failures
}

// asFailure converts a parser error into a recorded failure, keeping
// the line position when the parser provided one.
func asFailure(rel string, err error) *domain.ParseFailure {
	var perr *domain.ParseError
	if errors.As(err, &perr) {
		f := perr.Failure()
		return &f
	}
	return &domain.ParseFailure{Path: rel, Reason: err.Error()}
}

func (s *AuditService) buildMeta(a *Analysis) domain.RunMeta {
	meta := domain.RunMeta{
		RootPath:   a.Scan.RootPath,
		Timestamp:  time.Now().UTC(),
		Units:      len(a.Graph.Units),
		Edges:      a.Graph.EdgeCount(),
		Frameworks: a.Info.Frameworks,
		Layers:     layer.Census(a.Layers.Layers),
	}
	if s.git.IsGitRepo(a.Scan.RootPath) {
		if hash, err := s.git.CommitHash(a.Scan.RootPath); err == nil {
			meta.CommitHash = hash
		}
	}
	return meta
}
