// Package mars builds, filters and renders MARS retrieve and archive
// requests for model input data.
package mars

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Keys whose values keep their original order when rendered. Everything
// else is sorted, matching the MARS text convention.
var unsortedKeys = map[string]struct{}{
	"area":     {},
	"grid":     {},
	"frame":    {},
	"rotation": {},
	"bitmap":   {},
}

// Request is a MARS request: key to one or more values.
type Request map[string][]string

// Set replaces the values for key.
func (r Request) Set(key string, values ...string) {
	r[key] = append([]string(nil), values...)
}

// SetInt replaces the values for key with formatted integers.
func (r Request) SetInt(key string, values ...int) {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	r[key] = out
}

// Get returns the values for key, nil when absent.
func (r Request) Get(key string) []string {
	return r[key]
}

// First returns the first value for key, empty when absent.
func (r Request) First(key string) string {
	if v := r[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Clone returns a deep copy of the request.
func (r Request) Clone() Request {
	out := make(Request, len(r))
	for k, v := range r {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Update merges other into r, overriding existing keys.
func (r Request) Update(other Request) {
	for k, v := range other {
		r[k] = append([]string(nil), v...)
	}
}

// Format renders the request in MARS text form:
//
//	retrieve,
//	   date=20230101,
//	   param=msl/2t
func (r Request) Format(w io.Writer, verb string) {
	parts := []string{verb}

	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := append([]string(nil), r[k]...)
		if _, keep := unsortedKeys[k]; !keep {
			sort.Strings(v)
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, strings.Join(v, "/")))
	}

	fmt.Fprintln(w, strings.Join(parts, ",\n   "))
	fmt.Fprintln(w)
}

// MarshalJSON renders single-valued keys as scalars and multi-valued keys
// as arrays.
func (r Request) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// ParseExtra parses a "key1=value1,key2=value2" flag value into a request
// fragment. Values containing "/" become multi-valued.
func ParseExtra(s string) (Request, error) {
	out := Request{}
	if s == "" {
		return out, nil
	}

	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", kv)
		}
		out.Set(k, strings.Split(v, "/")...)
	}

	return out, nil
}
