package e2e_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/archlint/archlint/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build binary before running tests
	dir, err := os.MkdirTemp("", "archlint-e2e")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	binaryPath = filepath.Join(dir, "archlint")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/archlint")
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func fixturePath(name string) string {
	abs, _ := filepath.Abs(filepath.Join("../../testdata/python-layered", name))
	return abs
}

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return string(out), exitCode
}

// --- Audit Tests ---

func TestE2E_Audit(t *testing.T) {
	out, code := run(t, "audit", fixturePath("clean"))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "archlint")
	assert.Contains(t, out, "conforms")
}

func TestE2E_AuditFindings(t *testing.T) {
	out, code := run(t, "audit", fixturePath("tangled"))
	assert.Equal(t, 1, code, "critical findings should exit 1")
	assert.Contains(t, out, "5 critical violations")
	assert.Contains(t, out, "import cycle")
}

func TestE2E_AuditFailOnNone(t *testing.T) {
	_, code := run(t, "audit", fixturePath("tangled"), "--fail-on", "none")
	assert.Equal(t, 0, code, "--fail-on none should never fail the run")
}

func TestE2E_AuditParseFailure(t *testing.T) {
	out, code := run(t, "audit", fixturePath("broken"))
	assert.Equal(t, 0, code, "parse failures alone should pass the critical bar")
	assert.Contains(t, out, "could not be parsed")

	_, code = run(t, "audit", fixturePath("broken"), "--fail-on", "important")
	assert.Equal(t, 1, code)
}

func TestE2E_AuditJSON(t *testing.T) {
	out, code := run(t, "audit", fixturePath("clean"), "--json")
	assert.Equal(t, 0, code)

	var rep domain.Report
	err := json.Unmarshal([]byte(out), &rep)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Summary.Total)
	assert.Equal(t, 6, rep.Meta.Units)
	assert.Equal(t, 9, rep.Meta.Edges)
	assert.Contains(t, rep.Meta.Frameworks, "fastapi")
}

func TestE2E_AuditDeterministic(t *testing.T) {
	firstOut, _ := run(t, "audit", fixturePath("tangled"), "--json")
	secondOut, _ := run(t, "audit", fixturePath("tangled"), "--json")

	var first, second domain.Report
	require.NoError(t, json.Unmarshal([]byte(firstOut), &first))
	require.NoError(t, json.Unmarshal([]byte(secondOut), &second))

	assert.Equal(t, first.Findings, second.Findings, "finding order should be stable across runs")
	assert.Equal(t, first.Summary, second.Summary)
}

func TestE2E_AuditMissingPath(t *testing.T) {
	out, code := run(t, "audit", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "analysis aborted")
}

// --- Graph Tests ---

func TestE2E_Graph(t *testing.T) {
	out, code := run(t, "graph", fixturePath("tangled"))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Dependency Graph")
	assert.Contains(t, out, "1 cycles")
}

func TestE2E_GraphJSON(t *testing.T) {
	out, code := run(t, "graph", fixturePath("clean"), "--json")
	assert.Equal(t, 0, code)

	var payload struct {
		Units  int        `json:"units"`
		Edges  int        `json:"edges"`
		Cycles [][]string `json:"cycles"`
	}
	err := json.Unmarshal([]byte(out), &payload)
	require.NoError(t, err)
	assert.Equal(t, 6, payload.Units)
	assert.Equal(t, 9, payload.Edges)
	assert.Empty(t, payload.Cycles)
}

// --- Rules Tests ---

func TestE2E_Rules(t *testing.T) {
	out, code := run(t, "rules")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "layer-order")
	assert.Contains(t, out, "fix: ")
}

// --- Init Tests ---

func TestE2E_Init(t *testing.T) {
	dir := t.TempDir()

	out, code := run(t, "init", dir)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Created .archlint.yaml")
	_, err := os.Stat(filepath.Join(dir, ".archlint.yaml"))
	require.NoError(t, err)

	out, code = run(t, "init", dir)
	assert.Equal(t, 2, code, "refusing to overwrite is a hard error")
	assert.Contains(t, out, "already exists")
}

// --- Version Test ---

func TestE2E_Version(t *testing.T) {
	out, code := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "archlint")
}
