package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inovacc/aimodels/internal/application"
	"github.com/inovacc/aimodels/internal/assets"
	"github.com/inovacc/aimodels/internal/config"
	"github.com/inovacc/aimodels/internal/model"
	"github.com/inovacc/aimodels/internal/runner"
	"github.com/inovacc/aimodels/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run MODEL",
	Short: "Run a forecast model",
	Long: `Run a forecast model: retrieve the input fields, execute the
inference loop and write the forecast.

Examples:
  # Ten day forecast from yesterday's 12z analysis
  ai-models run panguweather --download-assets

  # Start from ECMWF open data instead of MARS
  ai-models run panguweather --input opendata

  # Print the MARS retrieve requests without running
  ai-models run panguweather --retrieve-requests

  # Save the archive requests alongside the output
  ai-models run panguweather --archive-requests requests.txt

  # Run on the hosted inference service
  ai-models run panguweather --remote`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	envCfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	file, _ := cmd.Flags().GetString("file")
	output, _ := cmd.Flags().GetString("output")
	path, _ := cmd.Flags().GetString("path")
	date, _ := cmd.Flags().GetInt("date")
	analysisTime, _ := cmd.Flags().GetInt("time")
	leadTime, _ := cmd.Flags().GetInt("lead-time")
	assetsDir, _ := cmd.Flags().GetString("assets")
	assetsSubDir, _ := cmd.Flags().GetBool("assets-sub-directory")
	assetsList, _ := cmd.Flags().GetBool("assets-list")
	downloadAssets, _ := cmd.Flags().GetBool("download-assets")
	fieldsFlag, _ := cmd.Flags().GetBool("fields")
	retrieveRequests, _ := cmd.Flags().GetBool("retrieve-requests")
	archiveRequests, _ := cmd.Flags().GetString("archive-requests")
	requestsExtra, _ := cmd.Flags().GetString("requests-extra")
	jsonRequests, _ := cmd.Flags().GetBool("json")
	fieldsType, _ := cmd.Flags().GetString("retrieve-fields-type")
	onlyOneDate, _ := cmd.Flags().GetBool("retrieve-only-one-date")
	dumpProvenance, _ := cmd.Flags().GetString("dump-provenance")
	expver, _ := cmd.Flags().GetString("expver")
	class, _ := cmd.Flags().GetString("class")
	metadataKVs, _ := cmd.Flags().GetStringArray("metadata")
	numThreads, _ := cmd.Flags().GetInt("num-threads")
	modelVersion, _ := cmd.Flags().GetString("model-version")
	hindcastYear, _ := cmd.Flags().GetInt("hindcast-reference-year")
	hindcastDate, _ := cmd.Flags().GetInt("hindcast-reference-date")
	stagingDates, _ := cmd.Flags().GetString("staging-dates")
	deterministic, _ := cmd.Flags().GetBool("deterministic")
	remoteFlag, _ := cmd.Flags().GetBool("remote")

	// A local input file implies the file source.
	if file != "" {
		input = "file"
	}

	if !cmd.Flags().Changed("assets") {
		assetsDir = envCfg.Assets
	}

	if requestsExtra != "" && !retrieveRequests && archiveRequests == "" {
		return fmt.Errorf("--requests-extra requires --retrieve-requests or --archive-requests")
	}

	metadata, err := parseMetadata(metadataKVs)
	if err != nil {
		return err
	}
	if expver != "" {
		metadata["expver"] = expver
	}
	if class != "" {
		metadata["class"] = class
	}

	st := openStore(logger)
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	opts := runner.Options{
		Model:        args[0],
		ModelVersion: modelVersion,

		Input: input,
		File:  file,

		Output: output,
		Path:   path,

		Date:     date,
		Time:     analysisTime,
		LeadTime: leadTime,

		Assets:             assetsDir,
		AssetsSubDirectory: assetsSubDir,
		DownloadAssets:     downloadAssets,

		StagingDates: stagingDates,

		HindcastReferenceYear: hindcastYear,
		HindcastReferenceDate: hindcastDate,

		Metadata: metadata,

		ArchiveRequests:     archiveRequests,
		RequestsExtra:       requestsExtra,
		JSON:                jsonRequests,
		RetrieveFieldsType:  fieldsType,
		RetrieveOnlyOneDate: onlyOneDate,

		NumThreads:    numThreads,
		Deterministic: deterministic,

		Remote: remoteFlag || envCfg.Remote,
		Env:    envCfg,

		DumpProvenance: dumpProvenance,

		Logger: logger,
		Store:  st,

		DownloadProgress: func(p assets.Progress) {
			logger.Info("downloaded asset",
				slog.String("file", p.CurrentFile),
				slog.Int("completed", p.FilesCompleted),
				slog.Int("total", p.FilesTotal),
			)
		},
	}

	ctx := cmd.Context()

	r, err := runner.New(ctx, opts)
	if err != nil {
		return err
	}

	if fieldsFlag {
		r.PrintFields(os.Stdout)
		return nil
	}

	// --requests-extra alone implies printing, kept for backwards
	// compatibility with existing scripts.
	if retrieveRequests || (requestsExtra != "" && archiveRequests == "") {
		return r.PrintRequests(os.Stdout)
	}

	if assetsList {
		r.PrintAssets(os.Stdout)
		return nil
	}

	timer := model.NewTimer("total time")
	defer timer.Stop()

	return r.Run(ctx)
}

// parseMetadata turns KEY=VALUE pairs into a map.
func parseMetadata(kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected KEY=VALUE", kv)
		}
		out[key] = value
	}
	return out, nil
}

// openStore opens the run history store. Failure is not fatal: the run
// proceeds without history.
func openStore(logger *slog.Logger) store.Store {
	dir, err := application.GetApplicationDirectory()
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return nil
	}

	st, err := store.Open(dir)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return nil
	}
	return st
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Input
	runCmd.Flags().String("input", "mars", "Input source: mars, cds, opendata or file")
	runCmd.Flags().String("file", "", "Input file, implies --input file")
	runCmd.Flags().Int("date", -1, "Analysis date as YYYYMMDD, or <= 0 for days before today")
	runCmd.Flags().Int("time", 12, "Analysis time: 0, 6, 12 or 18")
	runCmd.Flags().String("staging-dates", "", "File with one ISO datetime per line, for hindcast-like runs")

	// Output
	runCmd.Flags().String("output", "file", "Output destination: file or none")
	runCmd.Flags().String("path", "{model}.nc", "Where to write the model output")
	runCmd.Flags().Int("lead-time", 240, "Length of the forecast in hours")
	runCmd.Flags().String("expver", "", "Experiment version of the output, overrides --metadata")
	runCmd.Flags().String("class", "", "Class metadata of the output, overrides --metadata")
	runCmd.Flags().StringArray("metadata", nil, "Additional output metadata as KEY=VALUE")
	runCmd.Flags().Int("hindcast-reference-year", 0, "Encode output as hindcast of this reference year")
	runCmd.Flags().Int("hindcast-reference-date", 0, "Encode output as hindcast of this reference date")

	// Assets
	runCmd.Flags().String("assets", ".", "Directory containing the model weights and other assets")
	runCmd.Flags().Bool("assets-sub-directory", false, "Load assets from a per-model subdirectory of --assets")
	runCmd.Flags().Bool("assets-list", false, "List the assets used by the model and exit")
	runCmd.Flags().Bool("download-assets", false, "Download assets if they do not exist")

	// Requests
	runCmd.Flags().Bool("fields", false, "Show the input fields required by the model and exit")
	runCmd.Flags().Bool("retrieve-requests", false, "Print the MARS retrieve requests and exit")
	runCmd.Flags().String("archive-requests", "", "Save the MARS archive requests to FILE")
	runCmd.Flags().String("requests-extra", "", "Extend requests with key1=value1,key2=value2")
	runCmd.Flags().Bool("json", false, "Dump the requests in JSON format")
	runCmd.Flags().String("retrieve-fields-type", "all", "Fields to retrieve: all, constants or prognostics")
	runCmd.Flags().Bool("retrieve-only-one-date", false, "Only retrieve the last analysis date/time")

	// Execution
	runCmd.Flags().Int("num-threads", 1, "Number of threads, only relevant for some models")
	runCmd.Flags().Bool("deterministic", false, "Request bit-reproducible inference")
	runCmd.Flags().String("model-version", "latest", "Model version")
	runCmd.Flags().Bool("remote", false, "Run on the remote inference server")
	runCmd.Flags().String("dump-provenance", "", "Dump provenance information to FILE")
}
