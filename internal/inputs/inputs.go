// Package inputs resolves the initial-condition fields a model run starts
// from: the MARS archive, the climate data store, ECMWF open data, or a
// local file.
package inputs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

// Source delivers the input fields for a run.
type Source interface {
	// Fields returns every input field: surface, pressure levels and
	// model levels.
	Fields(ctx context.Context) (fields.List, error)
}

// Params carries everything a source needs to resolve input data.
type Params struct {
	// Input describes the requested parameters, levels, grid and area.
	Input mars.Input

	// DateTimes are the analysis datetimes to fetch.
	DateTimes []mars.DateTime

	// Patch, when set, rewrites each retrieve request before submission.
	Patch func(mars.Request)

	// File is the local input file for the file source.
	File string

	// CacheDir stores downloaded files.
	CacheDir string

	Logger *slog.Logger
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

type factory func(Params) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]factory)
)

func register(name string, f factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Available returns the sorted names of all input sources.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the named input source.
func New(name string, p Params) (Source, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown input %q (available: %v)", name, Available())
	}
	return f(p)
}
