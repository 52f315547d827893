package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
	"github.com/inovacc/aimodels/internal/model"
)

// metadataParams are the model parameters fetched from the server at
// construction time.
var metadataParams = []string{
	"expver",
	"version",
	"grid",
	"area",
	"param_level_ml",
	"param_level_pl",
	"param_sfc",
	"lagged",
	"extra_metadata",
	"retrieve",
	"remote_has_patch",
}

// Model runs a model hosted on the remote server. It satisfies the same
// contract as a local model: the input fields are gathered locally,
// shipped to the server for inference, and the result fields flow back
// through the normal output path.
type Model struct {
	name     string
	version  string
	client   *Client
	spec     model.Spec
	hasPatch bool
}

// NewModel fetches the metadata of the named model from the server and
// builds a runnable model from it.
func NewModel(ctx context.Context, client *Client, name, version string) (*Model, error) {
	if version == "" {
		version = "latest"
	}

	names, err := client.Models(ctx)
	if err != nil {
		return nil, err
	}
	if !containsString(names, name) {
		return nil, fmt.Errorf("remote: model %q not available on server, run 'ai-models models --remote' to list them", name)
	}

	meta, err := client.Metadata(ctx, name, version, metadataParams)
	if err != nil {
		return nil, err
	}

	m := &Model{
		name:    name,
		version: version,
		client:  client,
	}
	m.spec, m.hasPatch = specFromMetadata(name, meta)

	return m, nil
}

// Spec returns the model description assembled from server metadata.
func (m *Model) Spec() model.Spec {
	return m.spec
}

// Predict ships the input fields to the server, waits for the task to
// finish and replays the result through run.Write.
func (m *Model) Predict(ctx context.Context, run *model.Run) error {
	tmp, err := os.MkdirTemp("", "ai-models-remote-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	inputFile := filepath.Join(tmp, "input.nc")
	outputFile := filepath.Join(tmp, "output.nc")

	if err := fields.WriteFile(inputFile, run.Fields, nil); err != nil {
		return fmt.Errorf("remote: saving input fields: %w", err)
	}

	cfg := map[string]any{
		"model":           m.name,
		"model_version":   m.version,
		"lead_time":       run.LeadTime,
		"download_assets": false,
	}

	progress := func(p TaskProgress) {
		run.Logger.Info("remote inference", "step", p.Step, "total", p.Total, "eta", p.ETA)
	}

	if err := m.client.Run(ctx, cfg, inputFile, outputFile, progress); err != nil {
		return err
	}

	result, err := fields.ReadFile(outputFile)
	if err != nil {
		return fmt.Errorf("remote: reading result: %w", err)
	}

	for _, f := range result {
		if err := run.Write(f); err != nil {
			return err
		}
	}

	return nil
}

// PatchRetrieveRequest asks the server to rewrite a retrieve request
// when the hosted model declares it needs patches.
func (m *Model) PatchRetrieveRequest(r mars.Request) {
	if !m.hasPatch {
		return
	}

	body := map[string]any{
		"model":         m.name,
		"model_version": m.version,
		"patchrequest":  requestMap(r),
	}

	data, err := m.client.post(context.Background(), "patch", body)
	if err != nil {
		m.client.logger.Warn("patch request failed", "error", err)
		return
	}

	var patched map[string]any
	if err := json.Unmarshal(data, &patched); err != nil {
		m.client.logger.Warn("patch response malformed", "error", err)
		return
	}

	for key, value := range patched {
		r.Set(key, anyToStrings(value)...)
	}
}

func specFromMetadata(name string, meta map[string]any) (model.Spec, bool) {
	spec := model.Spec{
		Name:    name,
		Version: int(anyToFloat(meta["version"])),
		Expver:  anyToString(meta["expver"]),
		Input: mars.Input{
			ParamSfc: anyToStrings(meta["param_sfc"]),
			Grid:     anyToFloats(meta["grid"]),
			Area:     anyToFloats(meta["area"]),
			Retrieve: anyToStringMap(meta["retrieve"]),
		},
		Lagged:        anyToInts(meta["lagged"]),
		ExtraMetadata: anyToStringMap(meta["extra_metadata"]),
	}

	spec.Input.ParamPL, spec.Input.LevelPL = anyToParamLevel(meta["param_level_pl"])
	spec.Input.ParamML, spec.Input.LevelML = anyToParamLevel(meta["param_level_ml"])

	hasPatch, _ := meta["remote_has_patch"].(bool)

	return spec, hasPatch
}

// requestMap flattens a request for JSON transport, single values as
// scalars and multiple values as lists.
func requestMap(r mars.Request) map[string]any {
	out := make(map[string]any, len(r))
	for key, values := range r {
		if len(values) == 1 {
			out[key] = values[0]
		} else {
			out[key] = values
		}
	}
	return out
}

// Metadata values arrive as generic JSON, so numbers are float64 and
// lists are []any. The helpers below coerce them.

func anyToString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func anyToFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func anyToStrings(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func anyToInts(v any) []int {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, int(anyToFloat(item)))
	}
	return out
}

func anyToFloats(v any) []float64 {
	switch val := v.(type) {
	case float64:
		return []float64{val}
	case []any:
		out := make([]float64, 0, len(val))
		for _, item := range val {
			out = append(out, anyToFloat(item))
		}
		return out
	}
	return nil
}

func anyToStringMap(v any) map[string]string {
	src, ok := v.(map[string]any)
	if !ok || len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = fmt.Sprint(value)
	}
	return out
}

// anyToParamLevel decodes the ([params], [levels]) pair used for
// upper-air parameters.
func anyToParamLevel(v any) ([]string, []int) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return nil, nil
	}
	return anyToStrings(pair[0]), anyToInts(pair[1])
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
