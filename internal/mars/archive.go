package mars

import (
	"fmt"
	"sort"
	"strconv"
)

// Keys that must hold a single value across every field written to one
// output target.
var uniqueKeys = map[string]struct{}{
	"date":          {},
	"hdate":         {},
	"time":          {},
	"referenceDate": {},
	"type":          {},
	"stream":        {},
	"expver":        {},
}

// ArchiveCollector accumulates the MARS keys of written fields into a
// single archive request per output target.
type ArchiveCollector struct {
	// Expect counts the fields added.
	Expect int

	request map[string]map[string]struct{}
}

// NewArchiveCollector returns an empty collector.
func NewArchiveCollector() *ArchiveCollector {
	return &ArchiveCollector{request: make(map[string]map[string]struct{})}
}

// Add records the MARS keys of one written field. It fails when a
// unique key would end up with more than one value.
func (a *ArchiveCollector) Add(keys map[string]string) error {
	a.Expect++
	for k, v := range keys {
		set := a.request[k]
		if set == nil {
			set = make(map[string]struct{})
			a.request[k] = set
		}
		set[v] = struct{}{}

		if _, unique := uniqueKeys[k]; unique && len(set) > 1 {
			return fmt.Errorf("field has different values for %s: %v", k, setValues(set))
		}
	}
	return nil
}

// Request renders the collected keys as an archive request, including the
// expect count and, when known, the source path.
func (a *ArchiveCollector) Request(source string, extra Request) Request {
	r := Request{}
	r.Set("expect", strconv.Itoa(a.Expect))
	if source != "" {
		r.Set("source", fmt.Sprintf("%q", source))
	}
	for k, set := range a.request {
		r.Set(k, setValues(set)...)
	}
	if extra != nil {
		r.Update(extra)
	}
	return r
}

func setValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
