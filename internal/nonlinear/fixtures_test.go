package nonlinear_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"caustic/internal/model"
	"caustic/internal/nonlinear"
	"caustic/internal/prior"
)

// fixtureProfile is a minimal component: two-dimensional centre plus an
// intensity, giving three free parameters in a known column order.
type fixtureProfile struct {
	Centre    [2]float64
	Intensity float64
}

func (fixtureProfile) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0": prior.NewUniform(-1, 1),
		"centre.centre_1": prior.NewUniform(-1, 1),
		"intensity":       prior.NewLogUniform(1e-3, 1e3),
	}
}

// newFixtureSpec returns a spec with columns
// galaxies.lens.bulge.centre.centre_0, ...centre_1, ...intensity.
func newFixtureSpec(t *testing.T) *model.Spec {
	t.Helper()
	s := model.New()
	require.NoError(t, s.Add("galaxies.lens.bulge", fixtureProfile{}))
	return s
}

// newFixtureSamples returns a spread-out sample set whose best sample is
// known: vector [0.2, -0.1, 4] at logL -1.
func newFixtureSamples(t *testing.T, spec *model.Spec) *nonlinear.Samples {
	t.Helper()
	groups := spec.FreeGroups()
	paths := make([]string, len(groups))
	for i, g := range groups {
		paths[i] = g[0]
	}
	samples := nonlinear.NewSamples(paths)
	samples.Append([]float64{0.1, 0.3, 2.0}, -5.0, 1.0)
	samples.Append([]float64{0.2, -0.1, 4.0}, -1.0, 1.0)
	samples.Append([]float64{-0.4, 0.2, 8.0}, -3.0, 1.0)
	samples.Append([]float64{0.3, 0.1, 3.0}, -2.0, 1.0)
	return samples
}
