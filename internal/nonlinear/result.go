package nonlinear

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"caustic/internal/model"
	"caustic/internal/prior"
)

// Result is the outcome bundle of one search run. It is created once, at
// the end of a run or by loading a completed directory, and is read-only
// from then on: chains thread results between steps and never write them.
type Result struct {
	// Instance is the maximum-likelihood instance.
	Instance *model.Instance

	// Model is a prior-seeded view of the fitted spec: every free parameter
	// carries a Gaussian centred on its maximum-likelihood value with the
	// posterior standard deviation as sigma. Later steps take from it to
	// start where this fit converged.
	Model *model.Spec

	// Samples is the posterior sample set the run produced.
	Samples *Samples

	// MaxLogLikelihood is the best sample's log likelihood.
	MaxLogLikelihood float64

	// LogEvidence is NaN unless the engine reports one.
	LogEvidence float64

	// Derived holds analysis-computed scalars evaluated at the
	// maximum-likelihood instance.
	Derived map[string]float64
}

// NewResult assembles the immutable bundle from a fitted spec and its
// samples. Pass NaN for logEvidence when the engine reports none.
func NewResult(spec *model.Spec, samples *Samples, derived map[string]float64, logEvidence float64) (*Result, error) {
	best := samples.BestIndex()
	if best < 0 {
		return nil, fmt.Errorf("cannot build a result from an empty sample set")
	}

	inst, err := spec.Instance(samples.Vector(best))
	if err != nil {
		return nil, fmt.Errorf("building maximum-likelihood instance: %w", err)
	}

	seeded, err := seedModel(spec, samples)
	if err != nil {
		return nil, err
	}

	d := make(map[string]float64, len(derived))
	for k, v := range derived {
		d[k] = v
	}

	return &Result{
		Instance:         inst,
		Model:            seeded,
		Samples:          samples,
		MaxLogLikelihood: samples.MaxLogLikelihood(),
		LogEvidence:      logEvidence,
		Derived:          d,
	}, nil
}

// seedModel clones the spec and re-priors every free group with a Gaussian
// at the maximum-likelihood value. Sigma is the posterior standard
// deviation; when that is degenerate (zero, or undefined for tiny sample
// sets) it falls back to half the original prior's width so the seeded
// search still explores. Hard limits of the original prior carry over, and
// linked groups stay linked because the clone's shared parameters are
// re-priored in place.
func seedModel(spec *model.Spec, samples *Samples) (*model.Spec, error) {
	groups := spec.FreeGroups()
	if samples.Columns() != len(groups) {
		return nil, fmt.Errorf("sample set has %d columns, model has %d free parameters",
			samples.Columns(), len(groups))
	}

	best := samples.Vector(samples.BestIndex())
	out := spec.Clone()
	for gi, group := range groups {
		leader := group[0]
		param, ok := out.At(leader)
		if !ok {
			return nil, fmt.Errorf("clone is missing parameter path %s", leader)
		}
		orig := param.Prior()

		mu := best[gi]
		sigma := samples.StdDev(gi)
		if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma <= 0 {
			sigma = orig.Width() / 2
		}

		var seeded prior.Prior
		if lo, hi, bounded := orig.Limits(); bounded {
			seeded = prior.NewGaussianLimited(mu, sigma, lo, hi)
		} else {
			seeded = prior.NewGaussian(mu, sigma)
		}
		if err := out.Free(leader, seeded); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DerivedValue returns a derived scalar, zero when the analysis did not
// report it. The zero default composes with the positions-threshold clamp:
// a missing spread leaves the floor in charge.
func (r *Result) DerivedValue(name string) float64 {
	return r.Derived[name]
}

// Summary renders the run outcome appended to model.info: best likelihood,
// evidence when present, and the weighted posterior per free parameter.
func (r *Result) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "samples: %d\n", r.Samples.Len())
	fmt.Fprintf(&b, "maximum log likelihood: %.6f\n", r.MaxLogLikelihood)
	if !math.IsNaN(r.LogEvidence) {
		fmt.Fprintf(&b, "log evidence: %.6f\n", r.LogEvidence)
	}

	paths := r.Samples.Paths()
	width := 0
	for _, p := range paths {
		if len(p) > width {
			width = len(p)
		}
	}
	b.WriteString("\n")
	for i, p := range paths {
		fmt.Fprintf(&b, "%-*s  %g ± %g\n", width, p, r.Samples.Mean(i), r.Samples.StdDev(i))
	}

	if len(r.Derived) > 0 {
		b.WriteString("\nderived:\n")
		names := make([]string, 0, len(r.Derived))
		for name := range r.Derived {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s = %g\n", name, r.Derived[name])
		}
	}

	return b.String()
}
