package drawer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"caustic/internal/model"
	"caustic/internal/prior"
)

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

// gaussianLikelihood scores an instance against fixed per-path centres.
func gaussianLikelihood(centres map[string]float64, sigma float64) func(*model.Instance) (float64, error) {
	return func(inst *model.Instance) (float64, error) {
		sum := 0.0
		for path, c := range centres {
			v, _ := inst.Value(path)
			d := (v - c) / sigma
			sum += -0.5 * d * d
		}
		return sum, nil
	}
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
