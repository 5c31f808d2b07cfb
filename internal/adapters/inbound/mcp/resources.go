package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/archlint/archlint/internal/application"
	"github.com/archlint/archlint/internal/domain"
)

// registerResources registers all archlint MCP resources on the given server.
func registerResources(s *server.MCPServer, projectPath string) {
	// 1. archlint://report - full audit report
	s.AddResource(
		mcplib.NewResource(
			"archlint://report",
			"Audit Report",
			mcplib.WithResourceDescription("Current architecture audit report for the project"),
			mcplib.WithMIMEType("application/json"),
		),
		handleReportResource(projectPath),
	)

	// 2. archlint://graph - dependency graph metrics
	s.AddResource(
		mcplib.NewResource(
			"archlint://graph",
			"Dependency Graph",
			mcplib.WithResourceDescription("Module dependency graph with cycles and coupling metrics"),
			mcplib.WithMIMEType("application/json"),
		),
		handleGraphResource(projectPath),
	)

	// 3. archlint://rules - the rule table
	s.AddResource(
		mcplib.NewResource(
			"archlint://rules",
			"Rule Table",
			mcplib.WithResourceDescription("Every conformance rule with severity and fix hint"),
			mcplib.WithMIMEType("application/json"),
		),
		handleRulesResource(),
	)

	// 4. archlint://layers/{layer} - units in one layer (resource template)
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"archlint://layers/{layer}",
			"Layer Units",
			mcplib.WithTemplateDescription("Units classified into a specific layer, with their metrics"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		handleLayerResource(projectPath),
	)
}

func handleReportResource(projectPath string) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		outcome := newAuditService().Run(ctx, projectPath, application.Options{})
		switch outcome.Status {
		case domain.RunCancelled:
			return nil, fmt.Errorf("audit cancelled")
		case domain.RunFatal:
			return nil, fmt.Errorf("%s: %w", outcome.Reason, outcome.Err)
		}

		return textResource("archlint://report", outcome.Report)
	}
}

func handleGraphResource(projectPath string) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		a, err := newAuditService().Analyze(ctx, projectPath, application.Options{})
		if err != nil {
			return nil, fmt.Errorf("analysis failed: %w", err)
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

		return textResource("archlint://graph", payload)
	}
}

func handleRulesResource() server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		return textResource("archlint://rules", ruleTable())
	}
}

func handleLayerResource(projectPath string) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		// Extract layer name from the arguments (populated by template matching)
		layerName, ok := request.Params.Arguments["layer"].(string)
		if !ok || layerName == "" {
			return nil, fmt.Errorf("layer name is required")
		}

		known := false
		for _, l := range domain.KnownLayers {
			if string(l) == layerName {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown layer %q", layerName)
		}

		a, err := newAuditService().Analyze(ctx, projectPath, application.Options{})
		if err != nil {
			return nil, fmt.Errorf("analysis failed: %w", err)
		}

		type layerUnit struct {
			Unit    string         `json:"unit"`
			Module  string         `json:"module"`
			Metrics domain.Metrics `json:"metrics"`
		}
		type layerListing struct {
			Layer string      `json:"layer"`
			Units []layerUnit `json:"units"`
		}

		listing := layerListing{Layer: layerName, Units: []layerUnit{}}
		for _, p := range sortedUnitPaths(a) {
			if string(a.Layers.Layers[p]) != layerName {
				continue
			}
			listing.Units = append(listing.Units, layerUnit{
				Unit:    p,
				Module:  a.Units[p].Module,
				Metrics: a.Graph.MetricsFor(a.Units[p]),
			})
		}

		return textResource(request.Params.URI, listing)
	}
}

// textResource marshals v and wraps it as a single JSON resource.
func textResource(uri string, v interface{}) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
