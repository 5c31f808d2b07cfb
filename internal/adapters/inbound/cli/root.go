package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// exitError carries a process exit code through cobra's error path.
// An empty msg means the command already printed its verdict.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "archlint",
		Short:         "Architecture conformance for Python codebases",
		Long:          "Archlint audits a Python project against layered-architecture rules: dependency direction, composition, cohesion, and code hygiene.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newGraphCmd())
	cmd.AddCommand(newRulesCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newBaselineCmd())
	cmd.AddCommand(newMCPCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI and returns the process exit code: 0 for a
// conforming run, 1 when findings break the severity bar, 2 for
// fatal errors or cancellation.
func Execute() int {
	cmd := newRootCmd()
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	return 2
}
