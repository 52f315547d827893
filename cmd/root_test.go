package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaultCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "model name", args: []string{"persistence", "--fields"}, want: []string{"run", "persistence", "--fields"}},
		{name: "subcommand", args: []string{"models"}, want: []string{"models"}},
		{name: "run spelled out", args: []string{"run", "persistence"}, want: []string{"run", "persistence"}},
		{name: "help", args: []string{"help"}, want: []string{"help"}},
		{name: "flag first", args: []string{"--help"}, want: []string{"--help"}},
		{name: "no args", args: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withDefaultCommand(tt.args))
		})
	}
}

func TestRootRunsModelByName(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	root := GetRootCmd()
	root.SetArgs(withDefaultCommand([]string{"persistence", "--fields"}))
	require.NoError(t, root.Execute())
}
