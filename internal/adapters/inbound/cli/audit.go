package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/archlint/archlint/internal/adapters/outbound/baseline"
	"github.com/archlint/archlint/internal/adapters/outbound/config"
	"github.com/archlint/archlint/internal/adapters/outbound/detector"
	"github.com/archlint/archlint/internal/adapters/outbound/gitinfo"
	"github.com/archlint/archlint/internal/adapters/outbound/history"
	"github.com/archlint/archlint/internal/adapters/outbound/parser"
	"github.com/archlint/archlint/internal/adapters/outbound/scanner"
	"github.com/archlint/archlint/internal/adapters/outbound/tui"
	"github.com/archlint/archlint/internal/application"
	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/report"
)

func newAuditCmd() *cobra.Command {
	var (
		jsonOutput      bool
		failOn          string
		saveHistory     bool
		compareBaseline bool
		saveBaseline    bool
		workers         int
		timeout         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "audit [path]",
		Short: "Audit a Python project's architecture",
		Long:  "Scan a Python project, build its dependency graph, and evaluate every conformance rule. Exit code 1 when findings reach the --fail-on severity, 2 on fatal errors or cancellation.",
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

			bar, barSet, err := severityBar(failOn)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			svc := application.NewAuditService(
				scanner.New(),
				parser.New(),
				config.New(),
				detector.New(),
				gitinfo.New(),
			)

			outcome := svc.Run(ctx, absPath, application.Options{Workers: workers})
			switch outcome.Status {
			case domain.RunCancelled:
				return &exitError{code: 2, msg: "audit cancelled"}
			case domain.RunFatal:
				return &exitError{code: 2, msg: fmt.Sprintf("%s: %v", outcome.Reason, outcome.Err)}
			}
			rep := outcome.Report

			if saveHistory {
				_ = history.New().Save(absPath, rep.HistoryEntry()) // best-effort
			}

			baselines := application.NewBaselineService(baseline.New())

			var diff report.Diff
			haveDiff := false
			if compareBaseline {
				d, found, err := baselines.Compare(absPath, rep)
				if err != nil {
					return err
				}
				if found {
					diff, haveDiff = d, true
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No baseline found; run audit --save-baseline to create one.")
				}
			}

			if saveBaseline {
				if err := baselines.Accept(absPath, rep); err != nil {
					return err
				}
			}

			switch {
			case jsonOutput && haveDiff:
				if err := writeJSON(cmd, diff); err != nil {
					return err
				}
			case jsonOutput:
				if err := writeJSON(cmd, rep); err != nil {
					return err
				}
			case haveDiff:
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderDiff(diff))
			default:
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(rep))
			}

			if saveBaseline && !jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), "Baseline saved.")
			}

			if barSet {
				failed := rep.HasSeverity(bar)
				if haveDiff {
					failed = diff.HasRegressions(bar)
				}
				if failed {
					return &exitError{code: 1}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().StringVar(&failOn, "fail-on", "critical", "Severity that fails the run (critical, important, suggestion, none)")
	cmd.Flags().BoolVar(&saveHistory, "save", false, "Append this run to the project history")
	cmd.Flags().BoolVar(&compareBaseline, "baseline", false, "Compare against the stored baseline and fail only on new findings")
	cmd.Flags().BoolVar(&saveBaseline, "save-baseline", false, "Store this run's findings as the new baseline")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parse worker count (0 = auto)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the audit after this duration (0 = no limit)")

	return cmd
}

// severityBar maps a --fail-on value to the severity threshold. The
// bool is false for "none", meaning findings never fail the run.
func severityBar(s string) (domain.Severity, bool, error) {
	switch s {
	case "none":
		return "", false, nil
	case string(domain.SeverityCritical), string(domain.SeverityImportant), string(domain.SeveritySuggestion):
		return domain.Severity(s), true, nil
	default:
		return "", false, fmt.Errorf("unknown --fail-on value %q (critical, important, suggestion, none)", s)
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
