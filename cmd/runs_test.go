package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestRunsRejectsPositionalArgs(t *testing.T) {
	assert.Error(t, runsCmd.Args(runsCmd, []string{"bogus"}))
	assert.NoError(t, runsCmd.Args(runsCmd, nil))
	assert.Error(t, runsListCmd.Args(runsListCmd, []string{"bogus"}))
}

func TestRunsListEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	root := GetRootCmd()
	root.SetArgs([]string{"runs", "list", "--limit", "5"})
	require.NoError(t, root.Execute())
}
