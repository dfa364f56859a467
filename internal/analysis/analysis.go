// Package analysis resolves likelihood engines by name. Real engines (ray
// tracing, inversions) live in external modules and register themselves; the
// built-in analytic engine keeps fits, chains, grids and the aggregator
// runnable end-to-end without external numerics.
package analysis

import (
	"fmt"
	"sort"
	"sync"

	"caustic/internal/dataset"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
)

// Factory builds an engine bound to a dataset and a spec. The dataset may
// be nil for model-only fits.
type Factory func(ds *dataset.Dataset, spec *model.Spec) (nonlinear.Analysis, error)

var (
	mu      sync.RWMutex
	engines = make(map[string]Factory)
)

// Register makes an engine available under a name, matching the engine:
// field of config and pipeline settings. It panics on an empty name, nil
// factory or duplicate registration: engines register from init, and those
// are programmer errors.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		panic("analysis: Register with empty engine name")
	}
	if factory == nil {
		panic("analysis: Register with nil factory for " + name)
	}
	if _, dup := engines[name]; dup {
		panic("analysis: Register called twice for " + name)
	}
	engines[name] = factory
}

// New builds the named engine for a dataset and spec.
func New(name string, ds *dataset.Dataset, spec *model.Spec) (nonlinear.Analysis, error) {
	mu.RLock()
	factory, ok := engines[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown analysis engine: %q", name)
	}
	return factory(ds, spec)
}

// Names returns the registered engine names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
