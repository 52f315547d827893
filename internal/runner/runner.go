// Package runner orchestrates one forecast: it resolves the model and the
// analysis datetimes, gathers the input fields, drives the inference loop
// and routes every written field to the output and the archive collector.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inovacc/aimodels/internal/application"
	"github.com/inovacc/aimodels/internal/assets"
	"github.com/inovacc/aimodels/internal/config"
	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/inputs"
	"github.com/inovacc/aimodels/internal/mars"
	"github.com/inovacc/aimodels/internal/model"
	"github.com/inovacc/aimodels/internal/outputs"
	"github.com/inovacc/aimodels/internal/provenance"
	"github.com/inovacc/aimodels/internal/remote"
	"github.com/inovacc/aimodels/internal/store"
)

// Options mirrors the run command's flags.
type Options struct {
	Model        string
	ModelVersion string

	// Input names the source: mars, cds, opendata or file.
	Input string
	File  string

	// Output names the destination: file or none. Path may carry
	// {date}, {time}, {step}, {levtype} and {param} templates.
	Output string
	Path   string

	// Date is YYYYMMDD, or <= 0 for that many days before today.
	// Time is the analysis hour, 12 or 1200 forms both accepted.
	Date     int
	Time     int
	LeadTime int

	Assets             string
	AssetsSubDirectory bool
	DownloadAssets     bool

	// StagingDates points to a file with one ISO datetime per line,
	// replacing the single --date/--time analysis.
	StagingDates string

	HindcastReferenceYear int
	HindcastReferenceDate int

	// Metadata is merged into the output; expver and class flags are
	// folded in by the command layer.
	Metadata map[string]string

	// ArchiveRequests saves the MARS archive requests to this file.
	// RequestsExtra extends retrieve and archive requests with
	// key=value pairs. JSON switches both to JSON rendering.
	ArchiveRequests     string
	RequestsExtra       string
	JSON                bool
	RetrieveFieldsType  string
	RetrieveOnlyOneDate bool

	NumThreads    int
	Deterministic bool

	// Remote runs the model on the hosted inference server.
	Remote bool
	Env    config.Env

	// DumpProvenance writes a JSON provenance record to this file.
	DumpProvenance string

	Logger *slog.Logger
	Store  store.Store

	// DownloadProgress receives asset download updates.
	DownloadProgress func(assets.Progress)
}

// Runner is a fully resolved run: model loaded, datetimes expanded,
// extra request keys parsed.
type Runner struct {
	opts      Options
	model     model.Model
	spec      model.Spec
	datetimes []mars.DateTime
	extra     mars.Request
	manager   *assets.Manager
	logger    *slog.Logger

	date int
	hour int
}

// New loads the model (locally or from the remote server) and resolves
// the analysis datetimes.
func New(ctx context.Context, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		m   model.Model
		err error
	)
	if opts.Remote {
		client, err := remote.NewClient(opts.Env, logger)
		if err != nil {
			return nil, err
		}
		m, err = remote.NewModel(ctx, client, opts.Model, opts.ModelVersion)
		if err != nil {
			return nil, err
		}
	} else {
		m, err = model.Load(opts.Model)
		if err != nil {
			return nil, err
		}
	}
	spec := m.Spec()

	hour, err := model.NormalizeTime(opts.Time)
	if err != nil {
		return nil, err
	}
	date := model.ResolveDate(opts.Date, time.Now())

	var datetimes []mars.DateTime
	if opts.StagingDates != "" {
		datetimes, err = model.StagingDateTimes(opts.StagingDates, spec.Lagged)
		if err != nil {
			return nil, err
		}
	} else {
		datetimes = model.AnalysisDateTimes(date, hour, spec.Lagged)
	}

	var extra mars.Request
	if opts.RequestsExtra != "" {
		extra, err = mars.ParseExtra(opts.RequestsExtra)
		if err != nil {
			return nil, err
		}
	}

	dir := opts.Assets
	if opts.AssetsSubDirectory {
		dir = filepath.Join(dir, spec.Name)
	}
	if spec.AssetsExtraDir != "" {
		dir = filepath.Join(dir, spec.AssetsExtraDir)
	}

	return &Runner{
		opts:      opts,
		model:     m,
		spec:      spec,
		datetimes: datetimes,
		extra:     extra,
		manager:   assets.NewManager(dir, spec.DownloadURL, nil, logger),
		logger:    logger,
		date:      date,
		hour:      hour,
	}, nil
}

// Spec returns the resolved model description.
func (r *Runner) Spec() model.Spec {
	return r.spec
}

// AssetFiles returns the absolute paths of the model's asset files.
func (r *Runner) AssetFiles() []string {
	return r.manager.Paths(r.spec.Files)
}

// PrintAssets lists the model's asset files, one per line.
func (r *Runner) PrintAssets(w io.Writer) {
	for _, f := range r.spec.Files {
		fmt.Fprintln(w, f.Path)
	}
}

// PrintFields describes the input fields the model consumes.
func (r *Runner) PrintFields(w io.Writer) {
	in := r.spec.Input
	fmt.Fprintln(w, "Grid:", in.Grid)
	fmt.Fprintln(w, "Area:", in.Area)
	fmt.Fprintln(w, "Pressure levels:")
	fmt.Fprintln(w, "   Levels:", in.LevelPL)
	fmt.Fprintln(w, "   Params:", in.ParamPL)
	fmt.Fprintln(w, "Single levels:")
	fmt.Fprintln(w, "   Params:", in.ParamSfc)
}

// RetrieveRequests builds the MARS retrieve requests for the run,
// filtered according to the retrieve flags.
func (r *Runner) RetrieveRequests() []mars.Request {
	reqs := mars.Build(r.spec.Input, r.datetimes, mars.BuildOptions{
		Target: "input.nc",
		Extra:  r.extra,
		Patch:  r.patch(),
	})

	ft := mars.FieldsType(r.opts.RetrieveFieldsType)
	if ft == "" {
		ft = mars.FieldsAll
	}

	return mars.Filter(reqs, ft, r.spec.ConstantFields, r.opts.RetrieveOnlyOneDate)
}

// PrintRequests writes the retrieve requests, as MARS text or JSON.
func (r *Runner) PrintRequests(w io.Writer) error {
	reqs := r.RetrieveRequests()

	if r.opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(reqs)
	}

	for _, req := range reqs {
		req.Format(w, "retrieve")
	}
	return nil
}

// EnsureAssets checks the model's asset files, downloading them first
// when --download-assets is active. A missing asset without the flag is
// reported with the rerun hint.
func (r *Runner) EnsureAssets(ctx context.Context) error {
	if len(r.spec.Files) == 0 {
		return nil
	}

	if r.opts.DownloadAssets {
		if r.spec.DownloadURL == "" {
			return assets.ErrNoDownloadURL
		}

		opts := []assets.DownloadOption{}
		if r.opts.DownloadProgress != nil {
			opts = append(opts, assets.WithProgress(r.opts.DownloadProgress))
		}
		if err := r.manager.Download(ctx, r.spec.Files, opts...); err != nil {
			return err
		}
		r.recordAssets()
		return nil
	}

	if err := r.manager.Check(r.spec.Files); err != nil {
		if errors.Is(err, assets.ErrMissing) {
			return fmt.Errorf("%w\nsome files required by %s are missing, rerun with --download-assets", err, r.spec.Name)
		}
		return err
	}
	return nil
}

// InputFields resolves the input fields from the configured source.
func (r *Runner) InputFields(ctx context.Context) (fields.List, error) {
	cacheDir, err := application.CacheDirectory()
	if err != nil {
		return nil, err
	}

	src, err := inputs.New(r.opts.Input, inputs.Params{
		Input:     r.spec.Input,
		DateTimes: r.datetimes,
		Patch:     r.patch(),
		File:      r.opts.File,
		CacheDir:  cacheDir,
		Logger:    r.logger,
	})
	if err != nil {
		return nil, err
	}

	timer := model.NewTimer("loading input fields")
	defer timer.Stop()

	return src.Fields(ctx)
}

// Run executes the forecast end to end and records the result in the
// run store when one is configured.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()
	err := r.run(ctx)
	r.recordRun(started, err)
	return err
}

func (r *Runner) run(ctx context.Context) error {
	if err := r.EnsureAssets(ctx); err != nil {
		return err
	}

	input, err := r.InputFields(ctx)
	if err != nil {
		return err
	}
	if len(input) == 0 {
		return fmt.Errorf("no input fields for %s", r.spec.Name)
	}

	out, err := r.newOutput()
	if err != nil {
		return err
	}

	collectors := make(map[string]*mars.ArchiveCollector)
	var paths []string

	write := func(f *fields.Field) error {
		keys, path, err := out.Write(f)
		if err != nil {
			return err
		}
		if r.opts.ArchiveRequests == "" || path == "" {
			return nil
		}
		c, ok := collectors[path]
		if !ok {
			c = mars.NewArchiveCollector()
			collectors[path] = c
			paths = append(paths, path)
		}
		return c.Add(keys)
	}

	if err := writeAnalysis(input, write); err != nil {
		return err
	}

	run := &model.Run{
		Spec:          r.spec,
		Fields:        input,
		LeadTime:      r.opts.LeadTime,
		AssetsDir:     r.manager.Dir(),
		NumThreads:    r.opts.NumThreads,
		Deterministic: r.opts.Deterministic,
		Write:         write,
		Logger:        r.logger,
		Stepper: func(step int) *model.Stepper {
			return model.NewStepper(step, r.opts.LeadTime, r.logger)
		},
	}

	if err := r.model.Predict(ctx, run); err != nil {
		return err
	}

	if err := out.Finalise(); err != nil {
		return err
	}

	if r.opts.ArchiveRequests != "" {
		if err := r.writeArchiveRequests(collectors, paths); err != nil {
			return err
		}
	}

	if r.opts.DumpProvenance != "" {
		if err := r.dumpProvenance(); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) newOutput() (outputs.Output, error) {
	metadata := make(map[string]string, len(r.spec.ExtraMetadata)+len(r.opts.Metadata))
	for k, v := range r.spec.ExtraMetadata {
		metadata[k] = v
	}
	for k, v := range r.opts.Metadata {
		metadata[k] = v
	}

	out, err := outputs.New(r.opts.Output, outputs.Params{
		Path:     strings.ReplaceAll(r.opts.Path, "{model}", r.spec.Name),
		Metadata: metadata,
		Expver:   r.spec.Expver,
		Version:  r.spec.Version,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, err
	}

	if r.opts.HindcastReferenceYear != 0 || r.opts.HindcastReferenceDate != 0 {
		return outputs.NewHindcastRelabel(out, r.opts.HindcastReferenceYear, r.opts.HindcastReferenceDate)
	}
	return out, nil
}

// writeAnalysis emits the analysis fields as step 0 of the forecast.
func writeAnalysis(input fields.List, write func(*fields.Field) error) error {
	start, ok := input.StartTime()
	if !ok {
		return nil
	}

	timer := model.NewTimer("writing step 0")
	defer timer.Stop()

	for _, f := range input {
		if f.ValidTime().Unix() != start {
			continue
		}
		out := f.Clone()
		valid := f.ValidTime()
		out.Date = valid.Year()*10000 + int(valid.Month())*100 + valid.Day()
		out.Time = valid.Hour() * 100
		out.Step = 0
		if err := write(out); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) writeArchiveRequests(collectors map[string]*mars.ArchiveCollector, paths []string) error {
	f, err := os.Create(r.opts.ArchiveRequests)
	if err != nil {
		return fmt.Errorf("archive requests: %w", err)
	}
	defer f.Close()

	if r.opts.JSON {
		reqs := make([]mars.Request, 0, len(paths))
		for _, path := range paths {
			reqs = append(reqs, collectors[path].Request(path, r.extra))
		}
		return json.NewEncoder(f).Encode(reqs)
	}

	for _, path := range paths {
		collectors[path].Request(path, r.extra).Format(f, "archive")
	}
	return f.Sync()
}

func (r *Runner) dumpProvenance() error {
	timer := model.NewTimer("collecting provenance")
	defer timer.Stop()

	rec := provenance.Gather()

	var existing []string
	for _, path := range r.AssetFiles() {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if err := rec.AddAssets(existing); err != nil {
		return err
	}

	return rec.WriteFile(r.opts.DumpProvenance)
}

func (r *Runner) recordAssets() {
	if r.opts.Store == nil {
		return
	}
	for _, spec := range r.spec.Files {
		path := r.manager.Path(spec)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		rec := &store.AssetRecord{
			Path:         path,
			Model:        r.spec.Name,
			Size:         info.Size(),
			SHA256:       spec.SHA256,
			DownloadedAt: time.Now().UTC(),
		}
		if err := r.opts.Store.SaveAsset(rec); err != nil {
			r.logger.Warn("failed to record asset", "path", path, "error", err)
		}
	}
}

func (r *Runner) recordRun(started time.Time, runErr error) {
	if r.opts.Store == nil {
		return
	}

	rec := &store.RunRecord{
		ID:        uuid.NewString(),
		Model:     r.spec.Name,
		Date:      r.date,
		Time:      r.hour,
		LeadTime:  r.opts.LeadTime,
		Input:     r.opts.Input,
		Output:    r.opts.Output,
		Path:      r.opts.Path,
		Remote:    r.opts.Remote,
		Status:    store.RunStatusCompleted,
		StartedAt: started.UTC(),
		Duration:  time.Since(started),
	}
	if runErr != nil {
		rec.Status = store.RunStatusFailed
		rec.Error = runErr.Error()
	}

	if err := r.opts.Store.SaveRun(rec); err != nil {
		r.logger.Warn("failed to record run", "id", rec.ID, "error", err)
	}
}

func (r *Runner) patch() func(mars.Request) {
	if p, ok := r.model.(model.RequestPatcher); ok {
		return p.PatchRetrieveRequest
	}
	return nil
}
