package grid_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"caustic/internal/model"
	"caustic/internal/nonlinear"
	"caustic/internal/prior"
)

// fakeBase satisfies nonlinear.Search with a pluggable fit.
type fakeBase struct {
	name    string
	fitFunc func(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error)
}

func (f *fakeBase) Name() string { return f.name }

func (f *fakeBase) Fit(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error) {
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

// planeComponent spans the grid axes: x over [0,4] and y over [0,2].
type planeComponent struct {
	X float64
	Y float64
}

func (planeComponent) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"x": prior.NewUniform(0, 4),
		"y": prior.NewUniform(0, 2),
	}
}

func newPlaneSpec(t *testing.T) *model.Spec {
	t.Helper()
	s := model.New()
	require.NoError(t, s.Add("par", planeComponent{}))
	return s
}

// peakedLikelihood scores an instance against a peak at (cx, cy).
func peakedLikelihood(cx, cy float64) func(*model.Instance) (float64, error) {
	return func(inst *model.Instance) (float64, error) {
		x, _ := inst.Value("par.x")
		y, _ := inst.Value("par.y")
		dx := (x - cx) / 0.2
		dy := (y - cy) / 0.2
		return -0.5 * (dx*dx + dy*dy), nil
	}
}

// newCellResult builds a minimal result for a cell spec.
func newCellResult(t *testing.T, spec *model.Spec, logL float64) *nonlinear.Result {
	t.Helper()
	paths := nonlinear.ColumnPaths(spec)
	samples := nonlinear.NewSamples(paths)
	vec := make([]float64, len(paths))
	samples.Append(vec, logL, 1.0)
	res, err := nonlinear.NewResult(spec, samples, nil, logL)
	require.NoError(t, err)
	return res
}

func gridSettings(root string) nonlinear.Settings {
	return nonlinear.Settings{
		PathPrefix: "pipe",
		Name:       "lens_grid",
		OutputRoot: root,
		DatasetTag: "fixture",
		Seed:       19,
		Draws:      40,
	}
}
