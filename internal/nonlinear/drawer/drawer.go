// Package drawer implements the baseline search engine: it draws parameter
// vectors straight from the priors, evaluates every draw, and weights
// samples by relative likelihood. No optimization happens; the engine
// exists for smoke fits, initialization studies, and exercising the full
// run plumbing without sampler dynamics.
package drawer

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"caustic/internal/logging"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
)

// DefaultDraws applies when neither the settings nor the engine carry a
// draw count.
const DefaultDraws = 1000

// Drawer draws from the priors. Draws is used only when the settings carry
// none.
type Drawer struct {
	Draws int
}

// Name implements nonlinear.Search.
func (Drawer) Name() string { return "drawer" }

// Fit implements nonlinear.Search. A completed output directory short
// circuits to the stored result; otherwise every draw is evaluated, weighted
// by likelihood relative to the best draw, and stored.
func (d Drawer) Fit(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error) {
	st, id, err := nonlinear.OpenRun(spec, d.Name(), set)
	if err != nil {
		return nil, err
	}
	if st.Completed() {
		logging.Search("drawer %s: resuming completed run %s", set.Name, id)
		return nonlinear.Load(st.Dir())
	}

	draws := set.Draws
	if draws <= 0 {
		draws = d.Draws
	}
	if draws <= 0 {
		draws = DefaultDraws
	}

	paths := nonlinear.ColumnPaths(spec)
	if len(paths) == 0 {
		return nil, fmt.Errorf("drawer: model has no free parameters")
	}

	if err := st.Begin(spec, d.Name(), id, set); err != nil {
		return nil, err
	}
	logging.Search("drawer %s: %d draws over %d parameters (seed %d)", set.Name, draws, len(paths), set.Seed)

	rng := rand.New(rand.NewSource(set.Seed))
	vectors := make([][]float64, 0, draws)
	logLs := make([]float64, 0, draws)
	maxLogL := math.Inf(-1)

	for i := 0; i < draws; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("drawer %s: %w", set.Name, err)
		}
		if err := st.Heartbeat(nonlinear.DefaultHeartbeatInterval); err != nil {
			return nil, err
		}

		vec := spec.DrawVector(rng)
		inst, err := spec.Instance(vec)
		if err != nil {
			return nil, err
		}
		logL, err := analysis.LogLikelihood(inst)
		if err != nil {
			return nil, fmt.Errorf("drawer %s: draw %d: %w", set.Name, i, err)
		}

		vectors = append(vectors, vec)
		logLs = append(logLs, logL)
		if logL > maxLogL {
			maxLogL = logL
		}
	}

	if math.IsInf(maxLogL, -1) {
		return nil, fmt.Errorf("drawer %s: no draw had finite likelihood", set.Name)
	}

	// Weights are relative likelihoods, and with draws taken from the prior
	// their mean estimates the evidence.
	samples := nonlinear.NewSamples(paths)
	w, err := st.SamplesWriter(paths)
	if err != nil {
		return nil, err
	}
	sumRel := 0.0
	for i, vec := range vectors {
		rel := math.Exp(logLs[i] - maxLogL)
		sumRel += rel
		samples.Append(vec, logLs[i], rel)
		if err := w.Append(vec, logLs[i], rel); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	logEvidence := maxLogL + math.Log(sumRel/float64(draws))

	best, err := spec.Instance(samples.Vector(samples.BestIndex()))
	if err != nil {
		return nil, err
	}
	var derived map[string]float64
	if deriver, ok := analysis.(nonlinear.QuantityDeriver); ok {
		derived = deriver.DeriveQuantities(best)
	}

	res, err := nonlinear.NewResult(spec, samples, derived, logEvidence)
	if err != nil {
		return nil, err
	}
	if err := st.Complete(res); err != nil {
		return nil, err
	}
	logging.Search("drawer %s: done, max logL %.4f, log evidence %.4f", set.Name, res.MaxLogLikelihood, logEvidence)
	return res, nil
}
