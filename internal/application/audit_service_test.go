package application_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/archlint/archlint/internal/adapters/outbound/config"
	"github.com/archlint/archlint/internal/adapters/outbound/detector"
	"github.com/archlint/archlint/internal/adapters/outbound/gitinfo"
	"github.com/archlint/archlint/internal/adapters/outbound/parser"
	"github.com/archlint/archlint/internal/adapters/outbound/scanner"
	"github.com/archlint/archlint/internal/application"
	"github.com/archlint/archlint/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../testdata/python-layered"

func newService() *application.AuditService {
	return application.NewAuditService(
		scanner.New(),
		parser.New(),
		config.New(),
		detector.New(),
		gitinfo.New(),
	)
}

func fixture(name string) string {
	return filepath.Join(fixtureDir, name)
}

// --- Run Tests ---

func TestRun_CleanProject(t *testing.T) {
	outcome := newService().Run(context.Background(), fixture("clean"), application.Options{})

	require.Equal(t, domain.RunCompleted, outcome.Status)
	rep := outcome.Report
	require.NotNil(t, rep)

	assert.Zero(t, rep.Summary.Total, "the layered fixture conforms: %+v", rep.Findings)
	assert.Equal(t, 6, rep.Meta.Units)
	assert.Equal(t, 9, rep.Meta.Edges)
	assert.Equal(t, []string{"fastapi", "pydantic", "sqlite3"}, rep.Meta.Frameworks)
	assert.False(t, rep.HasSeverity(domain.SeveritySuggestion))
}

func TestRun_CleanProjectLayerCensus(t *testing.T) {
	outcome := newService().Run(context.Background(), fixture("clean"), application.Options{})
	require.Equal(t, domain.RunCompleted, outcome.Status)

	layers := outcome.Report.Meta.Layers
	assert.Equal(t, 1, layers["router"])
	assert.Equal(t, 1, layers["database"])
	assert.Equal(t, 1, layers["model"])
	assert.Equal(t, 2, layers["operations"])
	assert.Equal(t, 1, layers["unclassified"], "the composition root stays unclassified")
}

func TestRun_TangledProject(t *testing.T) {
	outcome := newService().Run(context.Background(), fixture("tangled"), application.Options{})

	require.Equal(t, domain.RunCompleted, outcome.Status)
	rep := outcome.Report
	require.NotNil(t, rep)

	assert.Equal(t, 15, rep.Summary.Total)
	assert.Equal(t, 10, rep.Meta.Units)
	assert.Equal(t, 5, rep.CountBySeverity(domain.SeverityCritical))
	assert.Equal(t, 6, rep.CountBySeverity(domain.SeverityImportant))
	assert.Equal(t, 4, rep.CountBySeverity(domain.SeveritySuggestion))

	wantByRule := map[string]int{
		"layer-order":              2,
		"circular-import":          1,
		"missing-composition-root": 2,
		"wildcard-import":          1,
		"god-unit":                 1,
		"deep-nesting":             1,
		"broad-except":             1,
		"layer-skip":               1,
		"private-access":           1,
		"flag-parameter":           1,
		"demeter-chain":            1,
		"module-naming":            1,
		"resource-open":            1,
	}
	assert.Equal(t, wantByRule, rep.Summary.ByRule)

	require.NotEmpty(t, rep.Findings)
	assert.Equal(t, domain.SeverityCritical, rep.Findings[0].Severity, "findings are sorted most severe first")
}

func TestRun_BrokenFileIsIsolated(t *testing.T) {
	outcome := newService().Run(context.Background(), fixture("broken"), application.Options{})

	require.Equal(t, domain.RunCompleted, outcome.Status)
	rep := outcome.Report

	assert.Equal(t, 1, rep.Summary.ParseFailures)
	assert.Zero(t, rep.Summary.Analysis)
	assert.Equal(t, 1, rep.Summary.Total)
	assert.Equal(t, 1, rep.Meta.Units, "the parsable file still gets analyzed")

	require.Len(t, rep.Findings, 1)
	f := rep.Findings[0]
	assert.Equal(t, domain.RuleParseError, f.Rule)
	assert.Equal(t, domain.SeverityImportant, f.Severity)
	assert.Equal(t, "bad_string.py", f.Unit)
	assert.Equal(t, 1, f.Line)
	assert.Equal(t, "file could not be parsed: unterminated triple-quoted string", f.Description)
}

func TestRun_EmptyProject(t *testing.T) {
	outcome := newService().Run(context.Background(), fixture("empty"), application.Options{})

	require.Equal(t, domain.RunCompleted, outcome.Status)
	assert.Zero(t, outcome.Report.Meta.Units)
	assert.Zero(t, outcome.Report.Summary.Total)
}

func TestRun_MissingRootIsFatal(t *testing.T) {
	outcome := newService().Run(context.Background(), fixture("does-not-exist"), application.Options{})

	assert.Equal(t, domain.RunFatal, outcome.Status)
	assert.Equal(t, "analysis aborted", outcome.Reason)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "scanning project")
	assert.Nil(t, outcome.Report)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := newService().Run(ctx, fixture("tangled"), application.Options{})

	assert.Equal(t, domain.RunCancelled, outcome.Status)
	assert.Equal(t, "run cancelled", outcome.Reason)
	assert.Nil(t, outcome.Report)
}

func TestRun_SingleWorkerMatchesDefault(t *testing.T) {
	def := newService().Run(context.Background(), fixture("tangled"), application.Options{})
	one := newService().Run(context.Background(), fixture("tangled"), application.Options{Workers: 1})

	require.Equal(t, domain.RunCompleted, def.Status)
	require.Equal(t, domain.RunCompleted, one.Status)
	assert.Equal(t, def.Report.Findings, one.Report.Findings, "pool size never changes the result")
}

// --- Analyze Tests ---

func TestAnalyze_ProducesSharedArtifacts(t *testing.T) {
	a, err := newService().Analyze(context.Background(), fixture("clean"), application.Options{})
	require.NoError(t, err)

	assert.Len(t, a.Units, 6)
	require.NotNil(t, a.Graph)
	require.NotNil(t, a.Layers)
	assert.Equal(t, domain.LayerRouter, a.Layers.Layers["app/routers/users.py"])
	assert.Equal(t, domain.LayerDatabase, a.Layers.Layers["app/database/user_repo.py"])
	assert.Contains(t, a.Info.Frameworks, "fastapi")
	assert.Empty(t, a.Failures)
	assert.Equal(t, 3, a.Config.NestingLimit, "no config file means defaults")
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService().Analyze(ctx, fixture("clean"), application.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
