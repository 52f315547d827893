package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/inovacc/aimodels/internal/application"
	"github.com/inovacc/aimodels/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run history",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func listRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	dir, err := application.GetApplicationDirectory()
	if err != nil {
		return err
	}

	st, err := store.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runs, err := st.ListRuns(limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tMODEL\tDATE\tTIME\tLEAD\tSTATUS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%02d\t%dh\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Model, r.Date, r.Time, r.LeadTime, r.Status,
			r.Duration.Round(time.Second),
		)
	}
	return w.Flush()
}

var runsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one run in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := application.GetApplicationDirectory()
		if err != nil {
			return err
		}

		st, err := store.Open(dir)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		run, err := st.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("no run with id %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	runsCmd.PersistentFlags().Int("limit", 20, "Maximum number of runs to show, 0 for all")
	runsCmd.PersistentFlags().Bool("json", false, "Output as JSON")
}
