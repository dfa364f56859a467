// Package prior defines the probability distributions attached to free model
// parameters. Every non-linear search samples in the unit hypercube; priors
// map unit-cube coordinates to physical parameter values and supply the
// densities used for posterior weighting.
package prior

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Prior maps unit-cube samples to physical parameter values.
//
// Implementations are immutable value types: replacing a parameter's prior
// always swaps the whole value, so priors can be shared freely between
// linked parameters.
type Prior interface {
	// TransformUnit maps u in [0, 1] to a physical value.
	TransformUnit(u float64) float64

	// Draw samples a physical value from the prior.
	Draw(rng *rand.Rand) float64

	// LogPDF returns the log prior density at x, -Inf outside support.
	LogPDF(x float64) float64

	// Mean returns the central value, used to seed deterministic fits.
	Mean() float64

	// Width returns the characteristic width, used as a fallback sigma
	// when a posterior estimate is degenerate.
	Width() float64

	// Limits returns hard physical limits. ok is false when the prior
	// is unbounded.
	Limits() (lower, upper float64, ok bool)

	// Describe returns a deterministic one-line description. It feeds the
	// model description that search identifiers are hashed from, so the
	// format must be stable across releases.
	Describe() string

	// Config returns the serializable form of the prior.
	Config() Config
}

// =============================================================================
// UNIFORM
// =============================================================================

// Uniform is flat between Lower and Upper.
type Uniform struct {
	Lower float64
	Upper float64
}

// NewUniform returns a uniform prior on [lower, upper].
func NewUniform(lower, upper float64) Uniform {
	return Uniform{Lower: lower, Upper: upper}
}

func (p Uniform) TransformUnit(u float64) float64 {
	return p.Lower + u*(p.Upper-p.Lower)
}

func (p Uniform) Draw(rng *rand.Rand) float64 {
	return p.TransformUnit(rng.Float64())
}

func (p Uniform) LogPDF(x float64) float64 {
	if x < p.Lower || x > p.Upper {
		return math.Inf(-1)
	}
	return -math.Log(p.Upper - p.Lower)
}

func (p Uniform) Mean() float64 {
	return 0.5 * (p.Lower + p.Upper)
}

func (p Uniform) Width() float64 {
	return p.Upper - p.Lower
}

func (p Uniform) Limits() (float64, float64, bool) {
	return p.Lower, p.Upper, true
}

func (p Uniform) Describe() string {
	return fmt.Sprintf("Uniform(lower=%g, upper=%g)", p.Lower, p.Upper)
}

func (p Uniform) Config() Config {
	return Config{Type: TypeUniform, Lower: p.Lower, Upper: p.Upper}
}

// =============================================================================
// LOG UNIFORM
// =============================================================================

// LogUniform is flat in log10 between Lower and Upper. Lower must be > 0.
// Used for strictly positive scale parameters (intensities, masses).
type LogUniform struct {
	Lower float64
	Upper float64
}

// NewLogUniform returns a log10-uniform prior on [lower, upper].
func NewLogUniform(lower, upper float64) LogUniform {
	return LogUniform{Lower: lower, Upper: upper}
}

func (p LogUniform) TransformUnit(u float64) float64 {
	lo := math.Log10(p.Lower)
	hi := math.Log10(p.Upper)
	return math.Pow(10, lo+u*(hi-lo))
}

func (p LogUniform) Draw(rng *rand.Rand) float64 {
	return p.TransformUnit(rng.Float64())
}

func (p LogUniform) LogPDF(x float64) float64 {
	if x < p.Lower || x > p.Upper {
		return math.Inf(-1)
	}
	// Density 1/(x ln(U/L)).
	return -math.Log(x) - math.Log(math.Log(p.Upper/p.Lower))
}

// Mean returns the geometric mean, the midpoint in log space.
func (p LogUniform) Mean() float64 {
	return math.Sqrt(p.Lower * p.Upper)
}

func (p LogUniform) Width() float64 {
	return p.Upper - p.Lower
}

func (p LogUniform) Limits() (float64, float64, bool) {
	return p.Lower, p.Upper, true
}

func (p LogUniform) Describe() string {
	return fmt.Sprintf("LogUniform(lower=%g, upper=%g)", p.Lower, p.Upper)
}

func (p LogUniform) Config() Config {
	return Config{Type: TypeLogUniform, Lower: p.Lower, Upper: p.Upper}
}

// =============================================================================
// GAUSSIAN
// =============================================================================

// Gaussian is a normal prior with optional hard limits. Limits are active
// only when Lower < Upper; the zero value of both fields means unbounded.
// Results seed follow-up fits with Gaussian priors centred on their
// maximum-likelihood values.
type Gaussian struct {
	Mu    float64
	Sigma float64
	Lower float64
	Upper float64
}

// NewGaussian returns an unbounded normal prior.
func NewGaussian(mu, sigma float64) Gaussian {
	return Gaussian{Mu: mu, Sigma: sigma}
}

// NewGaussianLimited returns a normal prior clamped to [lower, upper].
func NewGaussianLimited(mu, sigma, lower, upper float64) Gaussian {
	return Gaussian{Mu: mu, Sigma: sigma, Lower: lower, Upper: upper}
}

func (p Gaussian) dist() distuv.Normal {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}
}

func (p Gaussian) TransformUnit(u float64) float64 {
	x := p.dist().Quantile(u)
	return p.clamp(x)
}

func (p Gaussian) Draw(rng *rand.Rand) float64 {
	return p.clamp(p.Mu + p.Sigma*rng.NormFloat64())
}

func (p Gaussian) LogPDF(x float64) float64 {
	if lo, hi, ok := p.Limits(); ok && (x < lo || x > hi) {
		return math.Inf(-1)
	}
	return p.dist().LogProb(x)
}

func (p Gaussian) Mean() float64 {
	return p.Mu
}

func (p Gaussian) Width() float64 {
	return p.Sigma
}

func (p Gaussian) Limits() (float64, float64, bool) {
	return p.Lower, p.Upper, p.Lower < p.Upper
}

func (p Gaussian) clamp(x float64) float64 {
	lo, hi, ok := p.Limits()
	if !ok {
		return x
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func (p Gaussian) Describe() string {
	if lo, hi, ok := p.Limits(); ok {
		return fmt.Sprintf("Gaussian(mu=%g, sigma=%g, lower=%g, upper=%g)", p.Mu, p.Sigma, lo, hi)
	}
	return fmt.Sprintf("Gaussian(mu=%g, sigma=%g)", p.Mu, p.Sigma)
}

func (p Gaussian) Config() Config {
	return Config{Type: TypeGaussian, Mu: p.Mu, Sigma: p.Sigma, Lower: p.Lower, Upper: p.Upper}
}
