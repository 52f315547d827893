package mars

import "strconv"

// FieldsType selects which requests to keep when printing retrieve
// requests.
type FieldsType string

const (
	FieldsAll         FieldsType = "all"
	FieldsConstants   FieldsType = "constants"
	FieldsPrognostics FieldsType = "prognostics"
)

// Filter reduces requests according to the requested fields type and,
// optionally, to the most recent analysis datetime only.
func Filter(reqs []Request, ft FieldsType, constantFields []string, onlyLastDate bool) []Request {
	keep := func(Request) bool { return true }

	switch ft {
	case FieldsConstants:
		keep = filterConstants(constantFields)
	case FieldsPrognostics:
		keep = filterPrognostics(constantFields)
	}

	var lastDate func(Request) bool
	if onlyLastDate {
		lastDate = filterLastDate(reqs)
	}

	var out []Request
	for _, r := range reqs {
		if !keep(r) {
			continue
		}
		if lastDate != nil && !lastDate(r) {
			continue
		}
		out = append(out, r)
	}

	return out
}

// Constants only make sense on single levels: param "z" is ambiguous on
// pressure levels.
func filterConstants(constantFields []string) func(Request) bool {
	set := toSet(constantFields)
	return func(r Request) bool {
		if r.First("levtype") != "sfc" {
			return false
		}
		var kept []string
		for _, p := range r.Get("param") {
			if _, ok := set[p]; ok {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return false
		}
		r.Set("param", kept...)
		return true
	}
}

// Prognostic fields are assumed to be the non-constant ones.
func filterPrognostics(constantFields []string) func(Request) bool {
	set := toSet(constantFields)
	return func(r Request) bool {
		if r.First("levtype") != "sfc" {
			return true
		}
		var kept []string
		for _, p := range r.Get("param") {
			if _, ok := set[p]; !ok {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return false
		}
		r.Set("param", kept...)
		return true
	}
}

func filterLastDate(reqs []Request) func(Request) bool {
	maxDate, maxTime := -1, -1
	for _, r := range reqs {
		d, _ := strconv.Atoi(r.First("date"))
		t, _ := strconv.Atoi(r.First("time"))
		if d > maxDate || (d == maxDate && t > maxTime) {
			maxDate, maxTime = d, t
		}
	}
	return func(r Request) bool {
		d, _ := strconv.Atoi(r.First("date"))
		t, _ := strconv.Atoi(r.First("time"))
		return d == maxDate && t == maxTime
	}
}

func toSet(vals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}
