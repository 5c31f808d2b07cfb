package cli

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/archlint/archlint/internal/adapters/outbound/config"
	"github.com/archlint/archlint/internal/adapters/outbound/detector"
	"github.com/archlint/archlint/internal/adapters/outbound/gitinfo"
	"github.com/archlint/archlint/internal/adapters/outbound/parser"
	"github.com/archlint/archlint/internal/adapters/outbound/scanner"
	"github.com/archlint/archlint/internal/adapters/outbound/tui"
	"github.com/archlint/archlint/internal/application"
)

func newGraphCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Visualize the module dependency graph",
		Long:  "Analyze a Python project's internal import structure and display unit metrics, layer assignments, cycles, and coupling outliers.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			svc := application.NewAuditService(
				scanner.New(),
				parser.New(),
				config.New(),
				detector.New(),
				gitinfo.New(),
			)

			a, err := svc.Analyze(cmd.Context(), absPath, application.Options{})
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if jsonOutput {
				return renderGraphJSON(cmd, a)
			}

			fmt.Fprint(cmd.OutOrStdout(), tui.RenderGraph(a.Graph, a.Layers.Layers, absPath))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output graph metrics as JSON")
	return cmd
}

type graphJSONOutput struct {
	RootPath string        `json:"root_path"`
	Units    int           `json:"units"`
	Edges    int           `json:"edges"`
	Cycles   [][]string    `json:"cycles"`
	Outliers []outlierJSON `json:"coupling_outliers"`
	Metrics  []unitJSON    `json:"unit_metrics"`
}

type outlierJSON struct {
	Unit      string  `json:"unit"`
	FanOut    int     `json:"fan_out"`
	MedianOut float64 `json:"median_fan_out"`
}

type unitJSON struct {
	Unit   string `json:"unit"`
	Module string `json:"module"`
	Layer  string `json:"layer"`
	FanIn  int    `json:"fan_in"`
	FanOut int    `json:"fan_out"`
}

func renderGraphJSON(cmd *cobra.Command, a *application.Analysis) error {
	out := graphJSONOutput{
		RootPath: a.Scan.RootPath,
		Units:    len(a.Graph.Units),
		Edges:    a.Graph.EdgeCount(),
		Cycles:   [][]string{},
		Outliers: []outlierJSON{},
		Metrics:  []unitJSON{},
	}

	if cycles := a.Graph.Cycles(); cycles != nil {
		out.Cycles = cycles
	}

	for _, o := range a.Graph.CouplingOutliers(2.0) {
		out.Outliers = append(out.Outliers, outlierJSON{
			Unit:      o.Unit,
			FanOut:    o.FanOut,
			MedianOut: o.MedianOut,
		})
	}

	// Sort by unit path for deterministic output.
	paths := make([]string, 0, len(a.Graph.Units))
	for p := range a.Graph.Units {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		out.Metrics = append(out.Metrics, unitJSON{
			Unit:   p,
			Module: a.Graph.Units[p].Module,
			Layer:  string(a.Layers.Layers[p]),
			FanIn:  a.Graph.FanIn(p),
			FanOut: a.Graph.FanOutInternal(p),
		})
	}

	return writeJSON(cmd, out)
}
