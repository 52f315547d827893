// Package outputs writes forecast fields to their destination.
package outputs

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/inovacc/aimodels/internal/fields"
)

// Output receives forecast fields one at a time. Write returns the MARS
// keys of the written field and the path it was routed to, so the runner
// can collect archive requests per target.
type Output interface {
	Write(f *fields.Field) (keys map[string]string, path string, err error)

	// Finalise flushes buffered data. No Write may follow.
	Finalise() error
}

// Params configures an output.
type Params struct {
	// Path is the output path, possibly templated with {date}, {time},
	// {step}, {levtype} or {param} keys.
	Path string

	// Metadata is merged into the output file's global attributes and
	// into the archive keys of every field.
	Metadata map[string]string

	// Expver is the model's default experiment version, used when the
	// metadata does not set one.
	Expver string

	// Version is the model version, recorded as the generating process.
	Version int

	Logger *slog.Logger
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

type factory func(Params) (Output, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]factory)
)

func register(name string, f factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Available returns the sorted names of all outputs.
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

// New instantiates the named output.
func New(name string, p Params) (Output, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown output %q (available: %v)", name, Available())
	}
	return f(p)
}
