// Package model defines the forecast model contract and the registry of
// installed models.
package model

import (
	"context"
	"log/slog"

	"github.com/inovacc/aimodels/internal/assets"
	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

// Spec is the static description of a forecast model: which input fields
// it consumes, on which grid, and which weight assets it needs.
type Spec struct {
	// Name is the model name as used on the command line.
	Name string

	// Version is encoded as generatingProcessIdentifier in the output.
	Version int

	// Expver is the default experiment version of the output.
	Expver string

	// Input describes the fields the model consumes.
	Input mars.Input

	// ConstantFields are the single-level parameters that do not change
	// between analyses (orography etc).
	ConstantFields []string

	// Lagged lists input time offsets in hours for models that consume
	// more than one analysis. Empty means a single analysis at offset 0.
	Lagged []int

	// Step is the forecast step length in hours.
	Step int

	// DownloadURL is the asset URL template; "{file}" expands to the
	// asset path.
	DownloadURL string

	// Files are the assets the model loads at run time.
	Files []assets.FileSpec

	// AssetsExtraDir is appended to the asset directory when
	// --assets-sub-directory is active.
	AssetsExtraDir string

	// ExtraMetadata is merged into the metadata of every written field.
	ExtraMetadata map[string]string
}

// Run is the execution context handed to a model: the resolved input
// fields plus the hooks to emit output.
type Run struct {
	// Spec is the running model's spec.
	Spec Spec

	// Fields are all input fields, surface and upper-air.
	Fields fields.List

	// LeadTime is the forecast length in hours.
	LeadTime int

	// AssetsDir is the resolved asset directory.
	AssetsDir string

	// NumThreads is advisory for models that parallelize inference.
	NumThreads int

	// Deterministic requests bit-reproducible inference.
	Deterministic bool

	// Write emits one forecast field to the configured output.
	Write func(f *fields.Field) error

	// Logger carries the run-scoped logger.
	Logger *slog.Logger

	// Stepper is created by the runner right before the step loop and
	// reports per-step progress and ETA.
	Stepper func(step int) *Stepper
}

// Model is a forecast model plugin.
type Model interface {
	// Spec returns the static model description.
	Spec() Spec

	// Predict runs the inference loop, writing each forecast step
	// through run.Write.
	Predict(ctx context.Context, run *Run) error
}

// RequestPatcher is implemented by models that need to rewrite retrieve
// requests before they are sent (for example to force a stream).
type RequestPatcher interface {
	PatchRetrieveRequest(r mars.Request)
}
