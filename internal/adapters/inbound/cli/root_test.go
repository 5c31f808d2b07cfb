package cli_test

import (
	"bytes"
	"testing"

	"github.com/archlint/archlint/internal/adapters/inbound/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "archlint dev (none)")
}

func TestHistoryCommand_Empty(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"history", t.TempDir()})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No run history found.")
}

func TestBaselineClearCommand(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"baseline", "clear", t.TempDir()})
	require.NoError(t, cmd.Execute(), "clearing a missing baseline is not an error")
	assert.Contains(t, buf.String(), "Baseline cleared.")
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"lint"})
	assert.Error(t, cmd.Execute())
}
