package nonlinear

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"caustic/internal/model"
)

// ColumnPaths returns the sample column names for a spec: the first path of
// each free group, in vector order.
func ColumnPaths(spec *model.Spec) []string {
	groups := spec.FreeGroups()
	paths := make([]string, len(groups))
	for i, g := range groups {
		paths[i] = g[0]
	}
	return paths
}

// Samples is a posterior sample set in free-group vector layout: one column
// per distinct free parameter, named by the group's first path. Weight
// conventions belong to the engine that produced the set (uniform for MCMC
// chains, relative likelihood for prior draws); the weighted statistics
// below accept either.
type Samples struct {
	paths   []string
	vectors [][]float64
	logLs   []float64
	weights []float64
}

// NewSamples returns an empty sample set over the given columns.
func NewSamples(paths []string) *Samples {
	return &Samples{paths: append([]string(nil), paths...)}
}

// Append records one sample; the vector is copied and must carry one entry
// per column.
func (s *Samples) Append(vector []float64, logL, weight float64) {
	s.vectors = append(s.vectors, append([]float64(nil), vector...))
	s.logLs = append(s.logLs, logL)
	s.weights = append(s.weights, weight)
}

// Len returns the number of samples.
func (s *Samples) Len() int { return len(s.vectors) }

// Columns returns the number of free-parameter columns.
func (s *Samples) Columns() int { return len(s.paths) }

// Paths returns the column names, in vector order.
func (s *Samples) Paths() []string {
	return append([]string(nil), s.paths...)
}

// PathIndex returns the column index of a path.
func (s *Samples) PathIndex(path string) (int, bool) {
	for i, p := range s.paths {
		if p == path {
			return i, true
		}
	}
	return 0, false
}

// Vector returns a copy of sample i.
func (s *Samples) Vector(i int) []float64 {
	return append([]float64(nil), s.vectors[i]...)
}

// LogLikelihood returns sample i's log likelihood.
func (s *Samples) LogLikelihood(i int) float64 { return s.logLs[i] }

// Weight returns sample i's weight.
func (s *Samples) Weight(i int) float64 { return s.weights[i] }

// BestIndex returns the index of the maximum-likelihood sample, -1 when the
// set is empty. Ties keep the earliest sample so results stay reproducible.
func (s *Samples) BestIndex() int {
	best := -1
	bestLogL := math.Inf(-1)
	for i, logL := range s.logLs {
		if logL > bestLogL {
			best, bestLogL = i, logL
		}
	}
	return best
}

// MaxLogLikelihood returns the best sample's log likelihood, -Inf when the
// set is empty.
func (s *Samples) MaxLogLikelihood() float64 {
	if i := s.BestIndex(); i >= 0 {
		return s.logLs[i]
	}
	return math.Inf(-1)
}

// column extracts column i's values and a matching weight slice.
func (s *Samples) column(i int) (xs, ws []float64) {
	xs = make([]float64, len(s.vectors))
	ws = make([]float64, len(s.vectors))
	for r, vec := range s.vectors {
		xs[r] = vec[i]
		ws[r] = s.weights[r]
	}
	return xs, ws
}

// Mean returns the weighted posterior mean of column i.
func (s *Samples) Mean(i int) float64 {
	xs, ws := s.column(i)
	return stat.Mean(xs, ws)
}

// StdDev returns the weighted posterior standard deviation of column i, NaN
// when fewer than two samples carry weight.
func (s *Samples) StdDev(i int) float64 {
	xs, ws := s.column(i)
	return stat.StdDev(xs, ws)
}

// Quantile returns the weighted empirical p-quantile of column i.
func (s *Samples) Quantile(i int, p float64) float64 {
	xs, ws := s.column(i)
	stat.SortWeighted(xs, ws)
	return stat.Quantile(p, stat.Empirical, xs, ws)
}

// Means returns the weighted posterior mean per column.
func (s *Samples) Means() []float64 {
	out := make([]float64, s.Columns())
	for i := range out {
		out[i] = s.Mean(i)
	}
	return out
}

// StdDevs returns the weighted posterior standard deviation per column.
func (s *Samples) StdDevs() []float64 {
	out := make([]float64, s.Columns())
	for i := range out {
		out[i] = s.StdDev(i)
	}
	return out
}
