// Package mcmc implements an affine-invariant ensemble sampler using
// stretch moves (Goodman & Weare). An ensemble of walkers explores the
// posterior; each proposal stretches one walker along the line through a
// randomly chosen companion, which keeps proposals well-scaled without
// tuning per-parameter step sizes.
package mcmc

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"caustic/internal/logging"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
)

const (
	DefaultSteps    = 500
	DefaultStretchA = 2.0
	DefaultBurnIn   = 0.25

	// MinWalkers floors the default ensemble size for low-dimensional
	// models, where 2*ndim walkers would mix poorly.
	MinWalkers = 10

	// initRetries bounds the prior draws spent finding a finite-probability
	// start per walker.
	initRetries = 100
)

// Ensemble is the stretch-move sampler. Field values apply only when the
// settings carry none; zero everywhere yields an even ensemble of
// max(2*ndim, 10) walkers, 500 steps, stretch 2.0 and a 25% burn-in.
type Ensemble struct {
	Walkers  int
	Steps    int
	StretchA float64
}

// Name implements nonlinear.Search.
func (Ensemble) Name() string { return "mcmc" }

// Fit implements nonlinear.Search. Walkers initialize from prior draws,
// burn-in steps are discarded, and every retained walker position becomes
// one unit-weight sample. Runs are reproducible from the settings seed.
func (e Ensemble) Fit(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error) {
	st, id, err := nonlinear.OpenRun(spec, e.Name(), set)
	if err != nil {
		return nil, err
	}
	if st.Completed() {
		logging.Search("mcmc %s: resuming completed run %s", set.Name, id)
		return nonlinear.Load(st.Dir())
	}

	paths := nonlinear.ColumnPaths(spec)
	ndim := len(paths)
	if ndim == 0 {
		return nil, fmt.Errorf("mcmc: model has no free parameters")
	}

	walkers := set.Walkers
	if walkers <= 0 {
		walkers = e.Walkers
	}
	if walkers <= 0 {
		walkers = 2 * ndim
		if walkers < MinWalkers {
			walkers = MinWalkers
		}
	}
	if walkers%2 != 0 {
		walkers++
	}
	if walkers < 2*ndim {
		return nil, fmt.Errorf("mcmc: %d walkers cannot explore %d dimensions, need at least %d", walkers, ndim, 2*ndim)
	}

	steps := set.Steps
	if steps <= 0 {
		steps = e.Steps
	}
	if steps <= 0 {
		steps = DefaultSteps
	}

	a := set.StretchA
	if a == 0 {
		a = e.StretchA
	}
	if a == 0 {
		a = DefaultStretchA
	}
	if a <= 1 {
		return nil, fmt.Errorf("mcmc: stretch parameter %g must exceed 1", a)
	}

	burnIn := set.BurnIn
	if burnIn == 0 {
		burnIn = DefaultBurnIn
	}
	if burnIn < 0 || burnIn >= 1 {
		return nil, fmt.Errorf("mcmc: burn-in fraction %g must be in [0, 1)", burnIn)
	}
	burnSteps := int(burnIn * float64(steps))

	if err := st.Begin(spec, e.Name(), id, set); err != nil {
		return nil, err
	}
	logging.Search("mcmc %s: %d walkers x %d steps over %d parameters (stretch %g, burn %d, seed %d)",
		set.Name, walkers, steps, ndim, a, burnSteps, set.Seed)

	rng := rand.New(rand.NewSource(set.Seed))

	pos := make([][]float64, walkers)
	lpost := make([]float64, walkers)
	llike := make([]float64, walkers)
	for k := range pos {
		started := false
		for try := 0; try < initRetries; try++ {
			vec := spec.DrawVector(rng)
			lp, ll, err := logProb(spec, analysis, vec)
			if err != nil {
				return nil, fmt.Errorf("mcmc %s: initializing walker %d: %w", set.Name, k, err)
			}
			if !math.IsInf(lp, -1) {
				pos[k], lpost[k], llike[k] = vec, lp, ll
				started = true
				break
			}
		}
		if !started {
			return nil, fmt.Errorf("mcmc %s: walker %d found no finite-probability start in %d prior draws",
				set.Name, k, initRetries)
		}
	}

	samples := nonlinear.NewSamples(paths)
	w, err := st.SamplesWriter(paths)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	accepted, proposals := 0, 0
	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mcmc %s: %w", set.Name, err)
		}
		if err := st.Heartbeat(nonlinear.DefaultHeartbeatInterval); err != nil {
			return nil, err
		}

		for k := 0; k < walkers; k++ {
			// Companion walker, uniform over the rest of the ensemble.
			j := rng.Intn(walkers - 1)
			if j >= k {
				j++
			}

			// Stretch factor z on [1/a, a] with density proportional to
			// 1/sqrt(z).
			u := rng.Float64()
			z := ((a-1)*u + 1) * ((a-1)*u + 1) / a

			prop := make([]float64, ndim)
			for dim := 0; dim < ndim; dim++ {
				prop[dim] = pos[j][dim] + z*(pos[k][dim]-pos[j][dim])
			}

			lpY, llY, err := logProb(spec, analysis, prop)
			if err != nil {
				return nil, fmt.Errorf("mcmc %s: step %d walker %d: %w", set.Name, step, k, err)
			}
			proposals++

			logAccept := float64(ndim-1)*math.Log(z) + lpY - lpost[k]
			if logAccept >= 0 || math.Log(rng.Float64()) < logAccept {
				pos[k], lpost[k], llike[k] = prop, lpY, llY
				accepted++
			}
		}

		if step < burnSteps {
			continue
		}
		for k := 0; k < walkers; k++ {
			samples.Append(pos[k], llike[k], 1.0)
			if err := w.Append(pos[k], llike[k], 1.0); err != nil {
				return nil, err
			}
		}
		if err := w.Flush(); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	rate := float64(accepted) / float64(proposals)
	logging.SearchDebug("mcmc %s: acceptance rate %.3f (%d/%d)", set.Name, rate, accepted, proposals)

	best, err := spec.Instance(samples.Vector(samples.BestIndex()))
	if err != nil {
		return nil, err
	}
	var derived map[string]float64
	if deriver, ok := analysis.(nonlinear.QuantityDeriver); ok {
		derived = deriver.DeriveQuantities(best)
	}

	res, err := nonlinear.NewResult(spec, samples, derived, math.NaN())
	if err != nil {
		return nil, err
	}
	if err := st.Complete(res); err != nil {
		return nil, err
	}
	logging.Search("mcmc %s: done, %d samples, max logL %.4f, acceptance %.3f",
		set.Name, samples.Len(), res.MaxLogLikelihood, rate)
	return res, nil
}

// logProb evaluates the posterior density of a vector: the summed log prior
// plus the analysis log likelihood. Returns -Inf for both values outside
// prior support without calling the analysis.
func logProb(spec *model.Spec, analysis nonlinear.Analysis, vec []float64) (lpost, logL float64, err error) {
	lprior, err := spec.LogPrior(vec)
	if err != nil {
		return 0, 0, err
	}
	if math.IsInf(lprior, -1) {
		return math.Inf(-1), math.Inf(-1), nil
	}
	inst, err := spec.Instance(vec)
	if err != nil {
		return 0, 0, err
	}
	logL, err = analysis.LogLikelihood(inst)
	if err != nil {
		return 0, 0, err
	}
	return lprior + logL, logL, nil
}
