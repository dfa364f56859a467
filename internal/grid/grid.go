// Package grid runs a search over a two-parameter grid. Each cell narrows
// the priors of the two target parameters to its sub-range and fits the
// narrowed model independently; cells run in a bounded pool and resume
// individually, so an interrupted grid picks up where it stopped.
package grid

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"caustic/internal/logging"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
	"caustic/internal/prior"
)

// Cell is one fitted sub-range of the grid.
type Cell struct {
	I, J             int
	LowerA, UpperA   float64
	LowerB, UpperB   float64
	OutputDir        string
	Result           *nonlinear.Result
	MaxLogLikelihood float64
	LogEvidence      float64
}

// CellRef addresses a cell by its grid indices.
type CellRef struct {
	I, J int
}

/// Result is the fitted grid: Cells[i][j] covers the i-th sub-range of
// ParamA and the j-th of ParamB.
type Result struct {
	Cells [][]Cell
	Best  CellRef
}

// BestCell returns the cell with the highest maximum log likelihood.
func (r *Result) BestCell() Cell {
	return r.Cells[r.Best.I][r.Best.J]
}

// Search fits a model over a StepsPerDim x StepsPerDim grid of two free
// parameters. Cores bounds how many cells fit concurrently; zero means
// serial.
type Search struct {
	Base        nonlinear.Search
	ParamA      string
	ParamB      string
	StepsPerDim int
	Cores       int
}

// Name implements nonlinear.Search.
func (s *Search) Name() string {
	if s.Base == nil {
		return "grid"
	}
	return "grid_" + s.Base.Name()
}

// Fit implements nonlinear.Search: it runs the grid and returns the parent
// result, which carries the best cell's samples reseeded onto the parent
// model.
func (s *Search) Fit(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Result, error) {
	st, _, err := s.run(ctx, spec, analysis, set)
	if err != nil {
		return nil, err
	}
	return nonlinear.Load(st.Dir())
}

// Run executes the grid and returns the per-cell results.
func (s *Search) Run(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*Result, error) {
	_, res, err := s.run(ctx, spec, analysis, set)
	return res, err
}

func (s *Search) run(ctx context.Context, spec *model.Spec, analysis nonlinear.Analysis, set nonlinear.Settings) (*nonlinear.Store, *Result, error) {
	if s.Base == nil {
		return nil, nil, fmt.Errorf("grid: no base search")
	}
	n := s.StepsPerDim
	if n < 1 {
		return nil, nil, fmt.Errorf("grid: steps per dimension must be at least 1, got %d", n)
	}
	if s.ParamA == s.ParamB {
		return nil, nil, fmt.Errorf("grid: both axes target %s", s.ParamA)
	}

	loA, hiA, err := s.axisRange(spec, s.ParamA)
	if err != nil {
		return nil, nil, err
	}
	loB, hiB, err := s.axisRange(spec, s.ParamB)
	if err != nil {
		return nil, nil, err
	}
	pA, _ := spec.At(s.ParamA)
	pB, _ := spec.At(s.ParamB)
	if pA == pB {
		return nil, nil, fmt.Errorf("grid: %s and %s share a parameter", s.ParamA, s.ParamB)
	}

	st, id, err := nonlinear.OpenRun(spec, s.Name(), set)
	if err != nil {
		return nil, nil, err
	}
	parentDir := st.Dir()

	cores := s.Cores
	if cores < 1 {
		cores = 1
	}
	widthA := (hiA - loA) / float64(n)
	widthB := (hiB - loB) / float64(n)

	timer := logging.StartTimer(logging.CategoryGrid, "grid run")
	logging.Grid("%s: %dx%d cells over %s x %s, %d cores", id, n, n, s.ParamA, s.ParamB, cores)

	cells := make([][]Cell, n)
	for i := range cells {
		cells[i] = make([]Cell, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cores)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			i, j := i, j
			g.Go(func() error {
				cell := Cell{
					I:      i,
					J:      j,
					LowerA: loA + float64(i)*widthA,
					UpperA: loA + float64(i+1)*widthA,
					LowerB: loB + float64(j)*widthB,
					UpperB: loB + float64(j+1)*widthB,
				}

				cellSpec := spec.Clone()
				if err := cellSpec.Free(s.ParamA, prior.NewUniform(cell.LowerA, cell.UpperA)); err != nil {
					return err
				}
				if err := cellSpec.Free(s.ParamB, prior.NewUniform(cell.LowerB, cell.UpperB)); err != nil {
					return err
				}

				cellSet := set
				cellSet.OutputRoot = parentDir
				cellSet.PathPrefix = "grid"
				cellSet.Name = fmt.Sprintf("cell_%d_%d", i, j)
				cellSet.Seed = set.Seed + int64(i*n+j)

				cellStore, _, err := nonlinear.OpenRun(cellSpec, s.Base.Name(), cellSet)
				if err != nil {
					return err
				}

				res, err := s.Base.Fit(gctx, cellSpec, analysis, cellSet)
				if err != nil {
					return fmt.Errorf("cell (%d,%d): %w", i, j, err)
				}

				cell.Result = res
				cell.MaxLogLikelihood = res.MaxLogLikelihood
				cell.LogEvidence = res.LogEvidence
				cell.OutputDir = cellStore.Dir()
				logging.GridDebug("cell (%d,%d): max logL %.4f", i, j, res.MaxLogLikelihood)
				cells[i][j] = cell
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	res := &Result{Cells: cells}
	for i := range cells {
		for j := range cells[i] {
			if cells[i][j].MaxLogLikelihood > res.BestCell().MaxLogLikelihood {
				res.Best = CellRef{I: i, J: j}
			}
		}
	}

	if err := s.completeParent(st, id, spec, set, res); err != nil {
		return nil, nil, err
	}
	timer.StopWithInfo()
	logging.Grid("%s: best cell (%d,%d), max logL %.4f", id, res.Best.I, res.Best.J, res.BestCell().MaxLogLikelihood)
	return st, res, nil
}

// axisRange resolves the full range a grid axis subdivides.
func (s *Search) axisRange(spec *model.Spec, path string) (float64, float64, error) {
	p, ok := spec.At(path)
	if !ok {
		return 0, 0, fmt.Errorf("grid: unknown parameter path: %s", path)
	}
	if !p.IsFree() {
		return 0, 0, fmt.Errorf("grid: parameter %s is fixed", path)
	}
	lo, hi, ok := p.Prior().Limits()
	if !ok {
		return 0, 0, fmt.Errorf("grid: prior for %s has no finite limits", path)
	}
	return lo, hi, nil
}

// completeParent writes the grid's own store: the best cell's samples
// against the parent model, so chains and the aggregator see the grid as
// one completed fit.
func (s *Search) completeParent(st *nonlinear.Store, id string, spec *model.Spec, set nonlinear.Settings, res *Result) error {
	best := res.BestCell()
	if err := st.Begin(spec, s.Name(), id, set); err != nil {
		return err
	}
	paths := nonlinear.ColumnPaths(spec)
	w, err := st.SamplesWriter(paths)
	if err != nil {
		return err
	}
	samples := best.Result.Samples
	for i := 0; i < samples.Len(); i++ {
		if err := w.Append(samples.Vector(i), samples.LogLikelihood(i), samples.Weight(i)); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	derived := make(map[string]float64, len(best.Result.Derived)+2)
	for k, v := range best.Result.Derived {
		derived[k] = v
	}
	derived["grid_cell_i"] = float64(best.I)
	derived["grid_cell_j"] = float64(best.J)

	parentRes, err := nonlinear.NewResult(spec, samples, derived, best.LogEvidence)
	if err != nil {
		return err
	}
	return st.Complete(parentRes)
}
