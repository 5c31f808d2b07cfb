package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archlint/archlint/internal/adapters/outbound/config"
	"github.com/archlint/archlint/internal/adapters/outbound/detector"
	"github.com/archlint/archlint/internal/adapters/outbound/gitinfo"
	"github.com/archlint/archlint/internal/adapters/outbound/parser"
	"github.com/archlint/archlint/internal/adapters/outbound/scanner"
	"github.com/archlint/archlint/internal/application"
	"github.com/archlint/archlint/internal/domain"
)

const configFileName = ".archlint.yaml"

func newInitCmd() *cobra.Command {
	var (
		scan  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a .archlint.yaml configuration file",
		Long:  "Create a .archlint.yaml with stock thresholds, or with --scan, thresholds fitted to the project's current shape.",
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

			dest := filepath.Join(absPath, configFileName)

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", configFileName)
				}
			}

			cfg := domain.DefaultConfig()
			if scan {
				svc := application.NewAuditService(
					scanner.New(),
					parser.New(),
					config.New(),
					detector.New(),
					gitinfo.New(),
				)
				a, err := svc.Analyze(cmd.Context(), absPath, application.Options{})
				if err != nil {
					return fmt.Errorf("scanning project: %w", err)
				}
				norms := domain.ComputeNorms(a.Units)
				cfg = norms.ProposedConfig()
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d units; thresholds fitted to the 90th percentile.\n", norms.Units)
			}

			if err := os.WriteFile(dest, []byte(generateConfig(cfg)), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configFileName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&scan, "scan", false, "Fit thresholds to the project's current shape")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing .archlint.yaml")

	return cmd
}

func generateConfig(cfg domain.Config) string {
	var b strings.Builder

	b.WriteString("# archlint configuration\n\n")

	// Ordered output for readability
	b.WriteString("layer_markers:\n")
	for _, l := range []domain.Layer{domain.LayerRouter, domain.LayerOperations, domain.LayerDatabase, domain.LayerModel} {
		markers := cfg.LayerMarkers[string(l)]
		b.WriteString(fmt.Sprintf("  %s: [%s]\n", l, strings.Join(markers, ", ")))
	}

	fmt.Fprintf(&b, "\ngod_unit_thresholds:\n  max_attributes: %d\n  max_methods: %d\n  max_lines: %d\n",
		cfg.GodUnit.MaxAttributes, cfg.GodUnit.MaxMethods, cfg.GodUnit.MaxLines)

	fmt.Fprintf(&b, "\nnesting_limit: %d\nmax_parameters: %d\n", cfg.NestingLimit, cfg.MaxParameters)

	b.WriteString(`
# layer_overrides:
#   - glob: "legacy/**"
#     layer: operations

# excluded_paths:
#   - migrations
#   - generated

# disabled_rules:
#   - module-naming
`)

	return b.String()
}
