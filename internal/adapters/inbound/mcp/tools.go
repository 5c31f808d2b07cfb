package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/archlint/archlint/internal/adapters/outbound/config"
	"github.com/archlint/archlint/internal/adapters/outbound/detector"
	"github.com/archlint/archlint/internal/adapters/outbound/gitinfo"
	"github.com/archlint/archlint/internal/adapters/outbound/parser"
	"github.com/archlint/archlint/internal/adapters/outbound/scanner"
	"github.com/archlint/archlint/internal/application"
	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/rules"
)

// registerTools registers all archlint MCP tools on the given server.
func registerTools(s *server.MCPServer, projectPath string) {
	// 1. archlint_audit
	s.AddTool(
		mcplib.NewTool("archlint_audit",
			mcplib.WithDescription("Run the full architecture audit and return the report as JSON"),
		),
		handleAudit(projectPath),
	)

	// 2. archlint_audit_file
	s.AddTool(
		mcplib.NewTool("archlint_audit_file",
			mcplib.WithDescription("Return audit findings for a single file in the project"),
			mcplib.WithString("file",
				mcplib.Required(),
				mcplib.Description("Relative path to the file to audit"),
			),
		),
		handleAuditFile(projectPath),
	)

	// 3. archlint_graph
	s.AddTool(
		mcplib.NewTool("archlint_graph",
			mcplib.WithDescription("Return dependency graph metrics: edges, cycles, and fan-in/fan-out per unit"),
		),
		handleGraph(projectPath),
	)

	// 4. archlint_rules
	s.AddTool(
		mcplib.NewTool("archlint_rules",
			mcplib.WithDescription("Return the conformance rule table with severities and fix hints"),
		),
		handleRules(),
	)

	// 5. archlint_classify
	s.AddTool(
		mcplib.NewTool("archlint_classify",
			mcplib.WithDescription("Return the layer classification for every unit plus detected frameworks"),
		),
		handleClassify(projectPath),
	)
}

// newAuditService creates the standard set of outbound adapters wired
// into an audit service.
func newAuditService() *application.AuditService {
	return application.NewAuditService(
		scanner.New(),
		parser.New(),
		config.New(),
		detector.New(),
		gitinfo.New(),
	)
}

func handleAudit(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		outcome := newAuditService().Run(ctx, projectPath, application.Options{})
		switch outcome.Status {
		case domain.RunCancelled:
			return errorResult("audit cancelled"), nil
		case domain.RunFatal:
			return errorResult(fmt.Sprintf("%s: %v", outcome.Reason, outcome.Err)), nil
		}
		return jsonResult(outcome.Report)
	}
}

func handleAuditFile(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		file, err := request.RequireString("file")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		outcome := newAuditService().Run(ctx, projectPath, application.Options{})
		switch outcome.Status {
		case domain.RunCancelled:
			return errorResult("audit cancelled"), nil
		case domain.RunFatal:
			return errorResult(fmt.Sprintf("%s: %v", outcome.Reason, outcome.Err)), nil
		}

		type fileFindings struct {
			File     string           `json:"file"`
			Findings []domain.Finding `json:"findings"`
		}

		result := fileFindings{File: file, Findings: []domain.Finding{}}
		for _, f := range outcome.Report.Findings {
			if f.Unit == file || strings.HasSuffix(f.Unit, "/"+file) {
				result.Findings = append(result.Findings, f)
			}
		}

		return jsonResult(result)
	}
}

type graphPayload struct {
	Units    int              `json:"units"`
	Edges    int              `json:"edges"`
	Cycles   [][]string       `json:"cycles"`
	Metrics  []unitMetrics    `json:"unit_metrics"`
	Outliers []outlierMetrics `json:"coupling_outliers"`
}

type unitMetrics struct {
	Unit   string `json:"unit"`
	Module string `json:"module"`
	Layer  string `json:"layer"`
	FanIn  int    `json:"fan_in"`
	FanOut int    `json:"fan_out"`
}

type outlierMetrics struct {
	Unit      string  `json:"unit"`
	FanOut    int     `json:"fan_out"`
	MedianOut float64 `json:"median_fan_out"`
}

func handleGraph(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		a, err := newAuditService().Analyze(ctx, projectPath, application.Options{})
		if err != nil {
			return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		payload := graphPayload{
			Units:    len(a.Graph.Units),
			Edges:    a.Graph.EdgeCount(),
			Cycles:   [][]string{},
			Metrics:  []unitMetrics{},
			Outliers: []outlierMetrics{},
		}
		if cycles := a.Graph.Cycles(); cycles != nil {
			payload.Cycles = cycles
		}
		for _, p := range sortedUnitPaths(a) {
			payload.Metrics = append(payload.Metrics, unitMetrics{
				Unit:   p,
				Module: a.Units[p].Module,
				Layer:  string(a.Layers.Layers[p]),
				FanIn:  a.Graph.FanIn(p),
				FanOut: a.Graph.FanOutInternal(p),
			})
		}
		for _, o := range a.Graph.CouplingOutliers(2.0) {
			payload.Outliers = append(payload.Outliers, outlierMetrics{
				Unit:      o.Unit,
				FanOut:    o.FanOut,
				MedianOut: o.MedianOut,
			})
		}

		return jsonResult(payload)
	}
}

func handleRules() server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return jsonResult(ruleTable())
	}
}

type rulePayload struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	FixKey   string `json:"fix_key"`
	FixHint  string `json:"fix_hint"`
}

func ruleTable() []rulePayload {
	specs := rules.Table()
	out := make([]rulePayload, 0, len(specs))
	for _, spec := range specs {
		key := rules.FixKey(spec.ID)
		out = append(out, rulePayload{
			ID:       spec.ID,
			Severity: string(spec.Severity),
			Summary:  spec.Summary,
			FixKey:   key,
			FixHint:  rules.FixHint(key),
		})
	}
	return out
}

func handleClassify(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		a, err := newAuditService().Analyze(ctx, projectPath, application.Options{})
		if err != nil {
			return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		type classification struct {
			Frameworks []string          `json:"frameworks"`
			Layers     map[string]string `json:"layers"`
			Census     map[string]int    `json:"census"`
		}

		result := classification{
			Frameworks: a.Info.Frameworks,
			Layers:     make(map[string]string, len(a.Layers.Layers)),
			Census:     make(map[string]int),
		}
		if result.Frameworks == nil {
			result.Frameworks = []string{}
		}
		for p, l := range a.Layers.Layers {
			result.Layers[p] = string(l)
			result.Census[string(l)]++
		}

		return jsonResult(result)
	}
}

func sortedUnitPaths(a *application.Analysis) []string {
	paths := make([]string, 0, len(a.Units))
	for p := range a.Units {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
