package mcmc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"caustic/internal/model"
	"caustic/internal/prior"
)

type fakeAnalysis struct {
	calls             int
	logLikelihoodFunc func(inst *model.Instance) (float64, error)
}

func (f *fakeAnalysis) LogLikelihood(inst *model.Instance) (float64, error) {
	f.calls++
	return f.logLikelihoodFunc(inst)
}

type fakeDerivingAnalysis struct {
	fakeAnalysis
	deriveFunc func(inst *model.Instance) map[string]float64
}

func (f *fakeDerivingAnalysis) DeriveQuantities(inst *model.Instance) map[string]float64 {
	return f.deriveFunc(inst)
}

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

type planeComponent struct {
	X float64
	Y float64
}

func (planeComponent) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"x": prior.NewUniform(-1, 1),
		"y": prior.NewUniform(-1, 1),
	}
}

// newPlaneSpec returns a two-parameter spec with free paths par.x and par.y.
func newPlaneSpec(t *testing.T) *model.Spec {
	t.Helper()
	s := model.New()
	require.NoError(t, s.Add("par", planeComponent{}))
	return s
}

type tripleComponent struct {
	A float64
	B float64
	C float64
}

func (tripleComponent) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"a": prior.NewUniform(-1, 1),
		"b": prior.NewUniform(-1, 1),
		"c": prior.NewUniform(-1, 1),
	}
}

func newTripleSpec(t *testing.T) *model.Spec {
	t.Helper()
	s := model.New()
	require.NoError(t, s.Add("par", tripleComponent{}))
	return s
}
