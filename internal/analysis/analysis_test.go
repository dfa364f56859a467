package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caustic/internal/analysis"
	"caustic/internal/dataset"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
	"caustic/internal/prior"
)

// diskComponent is a minimal component: a two-dimensional centre plus a
// radius, giving three free parameters in a known column order.
type diskComponent struct {
	Centre [2]float64
	Radius float64
}

func (diskComponent) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0": prior.NewUniform(-1, 1),
		"centre.centre_1": prior.NewUniform(-1, 1),
		"radius":          prior.NewGaussian(2, 0.5),
	}
}

func newDiskSpec(t *testing.T) *model.Spec {
	t.Helper()
	s := model.New()
	require.NoError(t, s.Add("galaxies.lens.disk", diskComponent{}))
	return s
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := analysis.New("tracer", nil, newDiskSpec(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown analysis engine: "tracer"`)
}

func TestNames_IncludesAnalytic(t *testing.T) {
	assert.Contains(t, analysis.Names(), "analytic")
}

func TestRegister_Validation(t *testing.T) {
	factory := func(ds *dataset.Dataset, spec *model.Spec) (nonlinear.Analysis, error) {
		return nil, nil
	}

	assert.Panics(t, func() { analysis.Register("", factory) })
	assert.Panics(t, func() { analysis.Register("nil-factory", nil) })

	analysis.Register("registered-once", factory)
	assert.Panics(t, func() { analysis.Register("registered-once", factory) })
}

func TestNew_ResolvesRegisteredEngine(t *testing.T) {
	want := &analysis.Analytic{}
	analysis.Register("custom-engine", func(ds *dataset.Dataset, spec *model.Spec) (nonlinear.Analysis, error) {
		return want, nil
	})

	got, err := analysis.New("custom-engine", nil, newDiskSpec(t))
	require.NoError(t, err)
	assert.Same(t, want, got)
}
