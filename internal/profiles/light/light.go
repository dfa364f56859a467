// Package light defines the parameter schemas of light profiles. The
// profiles carry no evaluation code, since surface-brightness math lives
// in external engines: only the fields, their model paths and default
// priors that model composition reflects over.
package light

import "caustic/internal/prior"

// Gaussian is a two-dimensional elliptical Gaussian surface brightness.
type Gaussian struct {
	Centre    [2]float64
	EllComps  [2]float64 `param:"ell_comps"`
	Intensity float64
	Sigma     float64
}

func (Gaussian) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewGaussian(0.0, 0.3),
		"centre.centre_1":       prior.NewGaussian(0.0, 0.3),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"intensity":             prior.NewLogUniform(1e-6, 1e6),
		"sigma":                 prior.NewUniform(0.0, 25.0),
	}
}

// Sersic is the standard Sersic surface-brightness parameterization.
type Sersic struct {
	Centre          [2]float64
	EllComps        [2]float64 `param:"ell_comps"`
	Intensity       float64
	EffectiveRadius float64
	SersicIndex     float64
}

func (Sersic) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewGaussian(0.0, 0.3),
		"centre.centre_1":       prior.NewGaussian(0.0, 0.3),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"intensity":             prior.NewLogUniform(1e-6, 1e6),
		"effective_radius":      prior.NewUniform(0.0, 30.0),
		"sersic_index":          prior.NewUniform(0.8, 5.0),
	}
}

// Exponential is a Sersic profile with the index pinned at 1, the common
// disk parameterization.
type Exponential struct {
	Centre          [2]float64
	EllComps        [2]float64 `param:"ell_comps"`
	Intensity       float64
	EffectiveRadius float64
}

func (Exponential) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewGaussian(0.0, 0.3),
		"centre.centre_1":       prior.NewGaussian(0.0, 0.3),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"intensity":             prior.NewLogUniform(1e-6, 1e6),
		"effective_radius":      prior.NewUniform(0.0, 30.0),
	}
}

// SersicCore is a cored Sersic: the inner profile flattens below the break
// radius. Used for massive ellipticals whose centres a plain Sersic
// over-concentrates.
type SersicCore struct {
	Centre          [2]float64
	EllComps        [2]float64 `param:"ell_comps"`
	Intensity       float64
	EffectiveRadius float64
	SersicIndex     float64
	RadiusBreak     float64
	Gamma           float64
	Alpha           float64
}

func (SersicCore) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewGaussian(0.0, 0.3),
		"centre.centre_1":       prior.NewGaussian(0.0, 0.3),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"intensity":             prior.NewLogUniform(1e-6, 1e6),
		"effective_radius":      prior.NewUniform(0.0, 30.0),
		"sersic_index":          prior.NewUniform(0.8, 5.0),
		"radius_break":          prior.NewUniform(0.0, 0.05),
		"gamma":                 prior.NewUniform(0.0, 0.45),
		"alpha":                 prior.NewUniform(1.0, 5.0),
	}
}
