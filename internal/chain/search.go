package chain

import (
	"fmt"

	"caustic/internal/nonlinear"
	"caustic/internal/nonlinear/drawer"
	"caustic/internal/nonlinear/mcmc"
)

// NewSearch returns the built-in search for a sampler name. An empty name
// selects the drawer, matching the config default.
func NewSearch(name string) (nonlinear.Search, error) {
	switch name {
	case "", "drawer":
		return drawer.Drawer{}, nil
	case "mcmc":
		return &mcmc.Ensemble{}, nil
	default:
		return nil, fmt.Errorf("unknown sampler: %q", name)
	}
}
