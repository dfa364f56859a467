package chain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"caustic/internal/chain"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
	"caustic/internal/prior"
)

// History keeps builder signatures in the tests readable.
type History = chain.History

// fakeSearch satisfies nonlinear.Search with pluggable behavior.
type fakeSearch struct {
	name    string
	calls   int
	fitFunc func(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error)
}

func (f *fakeSearch) Name() string { return f.name }

func (f *fakeSearch) Fit(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error) {
	f.calls++
	return f.fitFunc(ctx, spec, analysis, set)
}

// fakeAnalysis satisfies nonlinear.Analysis with a pluggable likelihood.
type fakeAnalysis struct {
	calls             int
	logLikelihoodFunc func(inst *model.Instance) (float64, error)
}

func (f *fakeAnalysis) LogLikelihood(inst *model.Instance) (float64, error) {
	f.calls++
	return f.logLikelihoodFunc(inst)
}

// fakeDerivingAnalysis adds DeriveQuantities.
type fakeDerivingAnalysis struct {
	fakeAnalysis
	deriveFunc func(inst *model.Instance) map[string]float64
}

func (f *fakeDerivingAnalysis) DeriveQuantities(inst *model.Instance) map[string]float64 {
	return f.deriveFunc(inst)
}

type scalarComponent struct {
	X float64
}

func (scalarComponent) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{"x": prior.NewUniform(-1, 1)}
}

// newScalarSpec returns a one-parameter spec with the free path "par.x".
func newScalarSpec(t *testing.T) *model.Spec {
	t.Helper()
	s := model.New()
	require.NoError(t, s.Add("par", scalarComponent{}))
	return s
}

// centredLikelihood peaks at x = c.
func centredLikelihood(c float64) func(*model.Instance) (float64, error) {
	return func(inst *model.Instance) (float64, error) {
		v, _ := inst.Value("par.x")
		d := (v - c) / 0.1
		return -0.5 * d * d, nil
	}
}

// newRunResult builds a small in-memory result whose best sample sits at
// bestX with the given derived quantities.
func newRunResult(t *testing.T, spec *model.Spec, bestX float64, derived map[string]float64) *nonlinear.Result {
	t.Helper()
	samples := nonlinear.NewSamples(nonlinear.ColumnPaths(spec))
	samples.Append([]float64{bestX - 0.1}, -4.0, 1.0)
	samples.Append([]float64{bestX}, -1.0, 1.0)
	samples.Append([]float64{bestX + 0.2}, -3.0, 1.0)
	res, err := nonlinear.NewResult(spec, samples, derived, -2.5)
	require.NoError(t, err)
	return res
}
