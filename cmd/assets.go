package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inovacc/aimodels/internal/assets"
	"github.com/inovacc/aimodels/internal/cli"
	"github.com/inovacc/aimodels/internal/config"
	"github.com/inovacc/aimodels/internal/model"
	"github.com/inovacc/aimodels/internal/store"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage model weights and other assets",
}

var assetsListCmd = &cobra.Command{
	Use:   "list MODEL",
	Short: "List the asset files a model needs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model.Load(args[0])
		if err != nil {
			return err
		}

		manager, err := assetManager(cmd, m)
		if err != nil {
			return err
		}

		spec := m.Spec()
		for _, f := range spec.Files {
			path := manager.Path(f)
			status := "missing"
			if _, err := os.Stat(path); err == nil {
				status = "present"
			}
			fmt.Printf("%-8s %s\n", status, path)
		}
		return nil
	},
}

var assetsDownloadCmd = &cobra.Command{
	Use:   "download MODEL",
	Short: "Download the asset files a model needs",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsDownload,
}

func runAssetsDownload(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	m, err := model.Load(args[0])
	if err != nil {
		return err
	}
	spec := m.Spec()

	if len(spec.Files) == 0 {
		fmt.Printf("%s has no assets to download\n", spec.Name)
		return nil
	}
	if spec.DownloadURL == "" {
		return assets.ErrNoDownloadURL
	}

	manager, err := assetManager(cmd, m)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	noTUI, _ := cmd.Flags().GetBool("no-tui")

	download := func(ctx context.Context, progressFn func(assets.Progress)) error {
		opts := []assets.DownloadOption{
			assets.WithConcurrency(concurrency),
			assets.WithProgress(progressFn),
		}
		if force {
			opts = append(opts, assets.WithForce())
		}
		return manager.Download(ctx, spec.Files, opts...)
	}

	if noTUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		err := download(cmd.Context(), func(p assets.Progress) {
			logger.Info("downloaded asset",
				slog.String("file", p.CurrentFile),
				slog.Int("completed", p.FilesCompleted),
				slog.Int("total", p.FilesTotal),
			)
		})
		if err != nil {
			return err
		}
		recordDownloadedAssets(logger, manager, spec)
		return nil
	}

	view := cli.NewDownloadModel(spec.Name, len(spec.Files), download)
	p := tea.NewProgram(view)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if err := finalModel.(*cli.DownloadModel).Error(); err != nil {
		return err
	}

	recordDownloadedAssets(logger, manager, spec)
	return nil
}

// recordDownloadedAssets indexes the downloaded files in the local
// store. Best effort, like the run history.
func recordDownloadedAssets(logger *slog.Logger, manager *assets.Manager, spec model.Spec) {
	st := openStore(logger)
	if st == nil {
		return
	}
	defer st.Close()

	for _, f := range spec.Files {
		path := manager.Path(f)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		rec := &store.AssetRecord{
			Path:         path,
			Model:        spec.Name,
			Size:         info.Size(),
			SHA256:       f.SHA256,
			DownloadedAt: time.Now().UTC(),
		}
		if err := st.SaveAsset(rec); err != nil {
			logger.Warn("failed to record asset", "path", path, "error", err)
		}
	}
}

// assetManager builds the asset manager for a model from the assets
// flags and the environment.
func assetManager(cmd *cobra.Command, m model.Model) (*assets.Manager, error) {
	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	dir, _ := cmd.Flags().GetString("assets")
	subDir, _ := cmd.Flags().GetBool("assets-sub-directory")

	if !cmd.Flags().Changed("assets") {
		dir = envCfg.Assets
	}

	spec := m.Spec()
	if subDir {
		dir = filepath.Join(dir, spec.Name)
	}
	if spec.AssetsExtraDir != "" {
		dir = filepath.Join(dir, spec.AssetsExtraDir)
	}

	return assets.NewManager(dir, spec.DownloadURL, nil, slog.Default()), nil
}

func init() {
	rootCmd.AddCommand(assetsCmd)
	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsDownloadCmd)

	for _, c := range []*cobra.Command{assetsListCmd, assetsDownloadCmd} {
		c.Flags().String("assets", ".", "Directory containing the model weights and other assets")
		c.Flags().Bool("assets-sub-directory", false, "Use a per-model subdirectory of --assets")
	}

	assetsDownloadCmd.Flags().Bool("force", false, "Re-download assets that already exist")
	assetsDownloadCmd.Flags().Int("concurrency", assets.DefaultConcurrency, "Number of concurrent downloads")
	assetsDownloadCmd.Flags().Bool("no-tui", false, "Run without interactive progress (for scripts/CI)")
}
