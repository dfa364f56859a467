// Package mass defines the parameter schemas of mass profiles: the lensing
// side of model composition. Deflection-angle math is an external engine
// concern; these structs only define fields, paths and default priors.
package mass

import "caustic/internal/prior"

// IsothermalSph is a spherical isothermal sphere, the simplest lens mass
// parameterization.
type IsothermalSph struct {
	Centre         [2]float64
	EinsteinRadius float64
}

func (IsothermalSph) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0": prior.NewGaussian(0.0, 0.1),
		"centre.centre_1": prior.NewGaussian(0.0, 0.1),
		"einstein_radius": prior.NewUniform(0.0, 8.0),
	}
}

// Isothermal is the elliptical isothermal (SIE) mass profile.
type Isothermal struct {
	Centre         [2]float64
	EllComps       [2]float64 `param:"ell_comps"`
	EinsteinRadius float64
}

func (Isothermal) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewGaussian(0.0, 0.1),
		"centre.centre_1":       prior.NewGaussian(0.0, 0.1),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"einstein_radius":       prior.NewUniform(0.0, 8.0),
	}
}

// PowerLaw generalizes the isothermal profile with a free density slope
// (slope 2 recovers the isothermal case).
type PowerLaw struct {
	Centre         [2]float64
	EllComps       [2]float64 `param:"ell_comps"`
	EinsteinRadius float64
	Slope          float64
}

func (PowerLaw) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewGaussian(0.0, 0.1),
		"centre.centre_1":       prior.NewGaussian(0.0, 0.1),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"einstein_radius":       prior.NewUniform(0.0, 8.0),
		"slope":                 prior.NewUniform(1.5, 3.0),
	}
}

// NFWSph is a spherical NFW dark-matter halo, the workhorse of subhalo
// grid searches.
type NFWSph struct {
	Centre      [2]float64
	KappaS      float64
	ScaleRadius float64
}

func (NFWSph) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0": prior.NewUniform(-5.0, 5.0),
		"centre.centre_1": prior.NewUniform(-5.0, 5.0),
		"kappa_s":         prior.NewLogUniform(1e-4, 10.0),
		"scale_radius":    prior.NewUniform(0.0, 50.0),
	}
}

// NFW is the elliptical NFW halo.
type NFW struct {
	Centre      [2]float64
	EllComps    [2]float64 `param:"ell_comps"`
	KappaS      float64
	ScaleRadius float64
}

func (NFW) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0":       prior.NewUniform(-5.0, 5.0),
		"centre.centre_1":       prior.NewUniform(-5.0, 5.0),
		"ell_comps.ell_comps_0": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"ell_comps.ell_comps_1": prior.NewGaussianLimited(0.0, 0.3, -1.0, 1.0),
		"kappa_s":               prior.NewLogUniform(1e-4, 10.0),
		"scale_radius":          prior.NewUniform(0.0, 50.0),
	}
}

// ExternalShear models the tidal field of structure outside the lens as a
// two-component shear.
type ExternalShear struct {
	Gamma1 float64 `param:"gamma_1"`
	Gamma2 float64 `param:"gamma_2"`
}

func (ExternalShear) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"gamma_1": prior.NewGaussianLimited(0.0, 0.1, -1.0, 1.0),
		"gamma_2": prior.NewGaussianLimited(0.0, 0.1, -1.0, 1.0),
	}
}
