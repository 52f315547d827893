package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/inovacc/aimodels/internal/config"
	"github.com/inovacc/aimodels/internal/model"
	"github.com/inovacc/aimodels/internal/remote"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteFlag, _ := cmd.Flags().GetBool("remote")

		if !remoteFlag {
			for _, name := range model.Available() {
				fmt.Println(name)
			}
			return nil
		}

		logger := setupLogger(cmd)
		slog.SetDefault(logger)

		envCfg, err := config.FromEnv()
		if err != nil {
			return err
		}

		client, err := remote.NewClient(envCfg, logger)
		if err != nil {
			return err
		}

		names, err := client.Models(cmd.Context())
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No models available on the remote server")
			return nil
		}

		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().Bool("remote", false, "List the models available on the remote server")
}
