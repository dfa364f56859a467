// Package profiles maps component type names ("light.Sersic",
// "mass.Isothermal") to factories. Pipelines resolve the names in their
// model blocks here, and workspace init materializes every registered
// component's default priors into editable config files.
package profiles

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"caustic/internal/model"
	"caustic/internal/prior"
	"caustic/internal/profiles/light"
	"caustic/internal/profiles/mass"
	"caustic/internal/profiles/point"
)

// Factory returns a fresh zero-valued component.
type Factory func() any

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

func init() {
	builtins := map[string]Factory{
		"light.Gaussian":    func() any { return &light.Gaussian{} },
		"light.Sersic":      func() any { return &light.Sersic{} },
		"light.Exponential": func() any { return &light.Exponential{} },
		"light.SersicCore":  func() any { return &light.SersicCore{} },

		"mass.IsothermalSph": func() any { return &mass.IsothermalSph{} },
		"mass.Isothermal":    func() any { return &mass.Isothermal{} },
		"mass.PowerLaw":      func() any { return &mass.PowerLaw{} },
		"mass.NFWSph":        func() any { return &mass.NFWSph{} },
		"mass.NFW":           func() any { return &mass.NFW{} },
		"mass.ExternalShear": func() any { return &mass.ExternalShear{} },

		"point.Point":     func() any { return &point.Point{} },
		"point.PointFlux": func() any { return &point.PointFlux{} },
	}
	for name, f := range builtins {
		Register(name, f)
	}
}

// Register adds a component factory. The name must match what the model
// walker records for the component's type (package base dot type name), or
// prior config lookups will miss. Registering a duplicate or nil factory
// panics; registration is an init-time programmer action, like
// database/sql driver registration.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || f == nil {
		panic("profiles: Register with empty name or nil factory")
	}
	if _, dup := registry[name]; dup {
		panic("profiles: Register called twice for " + name)
	}
	registry[name] = f
}

// New constructs a fresh component by registry name.
func New(name string) (any, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown component type: %q", name)
	}
	return f(), nil
}

// Names returns all registered component names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultLibrary collects every registered component's default priors into
// a prior library, keyed exactly as ApplyPriorLibrary looks them up.
func DefaultLibrary() *prior.Library {
	lib := prior.NewLibrary()
	for _, name := range Names() {
		comp, err := New(name)
		if err != nil {
			continue
		}
		d, ok := comp.(model.Defaulter)
		if !ok {
			continue
		}
		for leaf, pr := range d.DefaultPriors() {
			lib.Set(name, leaf, pr.Config())
		}
	}
	return lib
}

// WriteDefaultLibrary materializes the default priors under dir, one YAML
// file per component family (light.yaml, mass.yaml, point.yaml). Workspace
// init calls this so users can edit priors without recompiling.
func WriteDefaultLibrary(dir string) error {
	lib := DefaultLibrary()

	families := make(map[string][]string)
	for _, name := range lib.Types() {
		family := name
		if i := strings.Index(name, "."); i > 0 {
			family = name[:i]
		}
		families[family] = append(families[family], name)
	}

	for family, names := range families {
		path := fmt.Sprintf("%s/%s.yaml", dir, family)
		if err := lib.Save(path, names...); err != nil {
			return fmt.Errorf("failed to write %s priors: %w", family, err)
		}
	}
	return nil
}
