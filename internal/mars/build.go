package mars

import (
	"strconv"
)

// DateTime is an analysis date (YYYYMMDD) and time (hour, 0-23).
type DateTime struct {
	Date int
	Time int
}

// Input describes what a model needs from the archive: which parameters on
// which levels, on which grid and area, plus extra retrieve keys the model
// insists on.
type Input struct {
	// ParamPL and LevelPL are the pressure-level parameters and levels.
	ParamPL []string
	LevelPL []int

	// ParamML and LevelML are the model-level parameters and levels.
	ParamML []string
	LevelML []int

	// ParamSfc are the single-level parameters.
	ParamSfc []string

	// Grid is the lat/lon increment pair, e.g. [0.25, 0.25].
	Grid []float64

	// Area is north/west/south/east.
	Area []float64

	// Retrieve holds extra retrieve keys (e.g. class, stream, type).
	Retrieve map[string]string
}

// BuildOptions tunes request construction.
type BuildOptions struct {
	// Target is the target file of the first request.
	Target string

	// Extra is merged into every request, overriding computed keys.
	Extra Request

	// Patch, when set, is applied to every request after construction.
	// Models override retrieve keys this way.
	Patch func(Request)
}

// Build constructs the unfiltered retrieve requests: for every analysis
// datetime one pressure-level request followed by one single-level request.
// Grid, area and target ride on the first datetime's requests only; the
// single-level request inherits them from the pressure-level one.
func Build(in Input, datetimes []DateTime, opts BuildOptions) []Request {
	first := Request{}
	if opts.Target != "" {
		first.Set("target", opts.Target)
	}
	if len(in.Grid) > 0 {
		first.Set("grid", formatFloats(in.Grid)...)
	}
	if len(in.Area) > 0 {
		first.Set("area", formatFloats(in.Area)...)
	}
	for k, v := range in.Retrieve {
		first.Set(k, v)
	}

	var out []Request
	for _, dt := range datetimes {
		r := Request{}
		r.Set("levtype", "pl")
		r.SetInt("levelist", in.LevelPL...)
		r.Set("param", in.ParamPL...)
		r.SetInt("date", dt.Date)
		r.SetInt("time", dt.Time)

		r.Update(first)
		first = Request{}

		if opts.Extra != nil {
			r.Update(opts.Extra)
		}
		if opts.Patch != nil {
			opts.Patch(r)
		}
		out = append(out, r.Clone())

		r.Set("levtype", "sfc")
		r.Set("param", in.ParamSfc...)
		delete(r, "levelist")

		if opts.Patch != nil {
			opts.Patch(r)
		}
		out = append(out, r)
	}

	return out
}

func formatFloats(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}
