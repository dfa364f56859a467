// Package nonlinear defines the search abstraction every fit runs through:
// the Analysis likelihood contract, run Settings with a deterministic
// fingerprint, the immutable Result bundle threaded between chain steps, and
// the on-disk store that lets interrupted runs resume instead of recompute.
//
// Search engines live in subpackages (drawer, mcmc); anything satisfying the
// Search interface plugs into chains and grids unchanged.
package nonlinear

import (
	"context"

	"caustic/internal/model"
)

// Analysis maps a parameter instance to a log likelihood. Implementations
// return -Inf (not an error) for unphysical but well-formed instances;
// errors abort the search.
type Analysis interface {
	LogLikelihood(inst *model.Instance) (float64, error)
}

// QuantityDeriver is optionally implemented by analyses that compute
// auxiliary scalars from an instance. Searches evaluate it once at the
// maximum-likelihood point and carry the values on the result, where later
// chain steps read them (positions_spread in particular).
type QuantityDeriver interface {
	DeriveQuantities(inst *model.Instance) map[string]float64
}

// Search runs one fit to completion. Implementations honor ctx
// cancellation, write outputs through Store, and return the stored result
// unchanged when their output directory is already completed.
type Search interface {
	// Name identifies the engine ("drawer", "mcmc") and feeds the run
	// identifier.
	Name() string

	Fit(ctx context.Context, spec *model.Spec, analysis Analysis, set Settings) (*Result, error)
}
