package model

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh model instance.
type Factory func() Model

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register installs a model factory under name. Models register from their
// package init; registering the same name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("model %q registered twice", name))
	}
	registry[name] = f
}

// Available returns the sorted names of all registered models.
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

// Load instantiates the named model.
func Load(name string) (Model, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %v)", name, Available())
	}
	return f(), nil
}
