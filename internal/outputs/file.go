package outputs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inovacc/aimodels/internal/fields"
)

func init() {
	register("file", newFileOutput)
}

// fileOutput buffers fields per expanded path and writes one NetCDF file
// per path at finalise time. Path templates like "{model}-{step}.nc" split
// the output across files.
type fileOutput struct {
	params   Params
	metadata map[string]string
	buffered map[string]fields.List
	order    []string
}

func newFileOutput(p Params) (Output, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("file output requires a path")
	}

	// setdefault semantics: user metadata wins.
	metadata := map[string]string{
		"stream": "oper",
		"class":  "ml",
		"type":   "fc",
	}
	if p.Expver != "" {
		metadata["expver"] = p.Expver
	}
	for k, v := range p.Metadata {
		metadata[k] = v
	}

	p.logger().Info("writing results", "to", p.Path)

	return &fileOutput{
		params:   p,
		metadata: metadata,
		buffered: make(map[string]fields.List),
	}, nil
}

func (o *fileOutput) Write(f *fields.Field) (map[string]string, string, error) {
	for _, v := range f.Values {
		if math.IsNaN(float64(v)) {
			return nil, "", fmt.Errorf("NaN values found in field %s", f)
		}
		if math.IsInf(float64(v), 0) {
			return nil, "", fmt.Errorf("infinite values found in field %s", f)
		}
	}

	path := expandPath(o.params.Path, f)
	if _, seen := o.buffered[path]; !seen {
		o.order = append(o.order, path)
	}
	o.buffered[path] = append(o.buffered[path], f)

	return o.marsKeys(f), path, nil
}

func (o *fileOutput) Finalise() error {
	for _, path := range o.order {
		if err := fields.WriteFile(path, o.buffered[path], o.globalAttrs()); err != nil {
			return err
		}
	}
	return nil
}

func (o *fileOutput) globalAttrs() map[string]string {
	attrs := make(map[string]string, len(o.metadata)+1)
	for k, v := range o.metadata {
		attrs[k] = v
	}
	attrs["generatingProcessIdentifier"] = strconv.Itoa(o.params.Version)
	return attrs
}

func (o *fileOutput) marsKeys(f *fields.Field) map[string]string {
	keys := map[string]string{
		"date":    strconv.Itoa(f.Date),
		"time":    fmt.Sprintf("%04d", f.Time),
		"step":    strconv.Itoa(f.Step),
		"param":   f.Param,
		"levtype": f.Levtype,
	}
	if f.Levtype != fields.LevtypeSurface {
		keys["levelist"] = strconv.Itoa(f.Level)
	}
	if f.HDate != 0 {
		keys["hdate"] = strconv.Itoa(f.HDate)
	}
	for k, v := range o.metadata {
		keys[k] = v
	}
	return keys
}

// expandPath substitutes {date}, {time}, {step}, {levtype} and {param}
// keys in the output path template.
func expandPath(tmpl string, f *fields.Field) string {
	r := strings.NewReplacer(
		"{date}", strconv.Itoa(f.Date),
		"{time}", fmt.Sprintf("%04d", f.Time),
		"{step}", strconv.Itoa(f.Step),
		"{levtype}", f.Levtype,
		"{param}", f.Param,
	)
	return r.Replace(tmpl)
}
