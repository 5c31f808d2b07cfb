package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/archlint/archlint/internal/adapters/outbound/baseline"
	"github.com/archlint/archlint/internal/application"
)

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the accepted-findings baseline",
		Long:  "Commands for the stored baseline that audit --baseline compares against.",
	}
	cmd.AddCommand(newBaselineClearCmd())
	return cmd
}

func newBaselineClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [path]",
		Short: "Remove the stored baseline",
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

			if err := application.NewBaselineService(baseline.New()).Clear(absPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Baseline cleared.")
			return nil
		},
	}
}
