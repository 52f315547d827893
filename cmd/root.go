package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inovacc/aimodels/internal/application"
)

var rootCmd = &cobra.Command{
	Use:   application.AppName,
	Short: "Run AI-based weather forecasting models",
	Long: `ai-models prepares the input fields, runs a data-driven weather
forecasting model and writes the forecast. Input fields come from MARS,
the Climate Data Store, ECMWF open data or a local file; model weights
are downloaded and verified on demand.`,
}

func Execute() {
	rootCmd.SetArgs(withDefaultCommand(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDefaultCommand makes "ai-models MODEL ..." shorthand for
// "ai-models run MODEL ...": a first argument that is not a known
// subcommand is treated as a model name.
func withDefaultCommand(args []string) []string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") || isSubcommand(args[0]) {
		return args
	}
	return append([]string{"run"}, args...)
}

func isSubcommand(name string) bool {
	switch name {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

// GetRootCmd returns the root command for introspection purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Accept underscored flag spellings like --lead_time.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().Bool("debug", false, "Turn on debug logging")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Output logs in JSON format")
}

// setupLogger builds the logger from the persistent logging flags.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	jsonOutput, _ := cmd.Flags().GetBool("json-logs")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
