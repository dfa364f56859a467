// Package galaxy defines the composition unit of lens models: a redshift
// plus named profile components. Model composition reflects over galaxies
// the same as over bare profiles; the component map splices inline, so a
// galaxy at galaxies.lens with a "mass" component produces
// galaxies.lens.mass.* paths.
package galaxy

import "sort"

// Galaxy is a redshift with named components. Redshift is fixed at its
// value by default (no default prior); free it explicitly for
// redshift-fitting models.
type Galaxy struct {
	Redshift   float64        `param:"redshift"`
	Components map[string]any `param:",inline"`
}

// New returns a galaxy at a redshift with no components.
func New(redshift float64) *Galaxy {
	return &Galaxy{
		Redshift:   redshift,
		Components: make(map[string]any),
	}
}

// Set attaches a named component, replacing any existing one. Returns the
// galaxy for chaining.
func (g *Galaxy) Set(name string, component any) *Galaxy {
	if g.Components == nil {
		g.Components = make(map[string]any)
	}
	g.Components[name] = component
	return g
}

// Component returns a component by name.
func (g *Galaxy) Component(name string) (any, bool) {
	c, ok := g.Components[name]
	return c, ok
}

// Names returns the component names, sorted.
func (g *Galaxy) Names() []string {
	names := make([]string, 0, len(g.Components))
	for name := range g.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
