package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archlint/archlint/internal/adapters/outbound/tui"
	"github.com/archlint/archlint/internal/domain/rules"
)

func newRulesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List every conformance rule",
		Long:  "Show the full rule table with severities, summaries, and suggested fixes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := rules.Table()

			if jsonOutput {
				out := make([]ruleJSON, 0, len(specs))
				for _, spec := range specs {
					key := rules.FixKey(spec.ID)
					out = append(out, ruleJSON{
						ID:       spec.ID,
						Severity: string(spec.Severity),
						Summary:  spec.Summary,
						FixKey:   key,
						FixHint:  rules.FixHint(key),
					})
				}
				return writeJSON(cmd, out)
			}

			fmt.Fprint(cmd.OutOrStdout(), tui.RenderRules(specs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the rule table as JSON")
	return cmd
}

type ruleJSON struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	FixKey   string `json:"fix_key"`
	FixHint  string `json:"fix_hint"`
}
