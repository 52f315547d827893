package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inovacc/aimodels/internal/application"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ai-models version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(application.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
