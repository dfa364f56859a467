// Package point defines point-source parameter schemas, used when a lensed
// quasar or supernova is modeled through its multiple image positions
// rather than extended surface brightness.
package point

import "caustic/internal/prior"

// Point is a bare source-plane position.
type Point struct {
	Centre [2]float64
}

func (Point) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0": prior.NewGaussian(0.0, 3.0),
		"centre.centre_1": prior.NewGaussian(0.0, 3.0),
	}
}

// PointFlux adds a flux normalization to the position, for datasets with
// measured image fluxes.
type PointFlux struct {
	Centre [2]float64
	Flux   float64
}

func (PointFlux) DefaultPriors() map[string]prior.Prior {
	return map[string]prior.Prior{
		"centre.centre_0": prior.NewGaussian(0.0, 3.0),
		"centre.centre_1": prior.NewGaussian(0.0, 3.0),
		"flux":            prior.NewLogUniform(1e-6, 1e6),
	}
}
