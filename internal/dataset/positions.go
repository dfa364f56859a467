package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Positions is a list of (y, x) sky coordinates in arcseconds, typically the
// observed multiple-image positions of a lensed source.
type Positions [][2]float64

// MaxSeparation returns the largest pairwise Euclidean distance, the scale
// chained fits derive their position-matching threshold from. Zero when
// fewer than two positions are present.
func (p Positions) MaxSeparation() float64 {
	var max float64
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			dy := p[i][0] - p[j][0]
			dx := p[i][1] - p[j][1]
			if d := math.Hypot(dy, dx); d > max {
				max = d
			}
		}
	}
	return max
}

// PointSource is one entry of the point_source_dict.json sidecar.
type PointSource struct {
	Positions Positions `json:"positions"`
	Fluxes    []float64 `json:"fluxes,omitempty"`
}

// LoadPositions reads a positions.json file: a JSON array of [y, x] pairs.
// The caller distinguishes a missing file via os.IsNotExist.
func LoadPositions(path string) (Positions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw [][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	pos := make(Positions, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("parsing %s: position %d has %d coordinates, want 2", path, i, len(pair))
		}
		pos[i] = [2]float64{pair[0], pair[1]}
	}
	return pos, nil
}

// LoadPointSources reads a point_source_dict.json file: a JSON object
// mapping point-source names to their positions and optional fluxes.
func LoadPointSources(path string) (map[string]PointSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var points map[string]PointSource
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, ps := range points {
		if len(ps.Positions) == 0 {
			return nil, fmt.Errorf("parsing %s: point source %q has no positions", path, name)
		}
		if len(ps.Fluxes) > 0 && len(ps.Fluxes) != len(ps.Positions) {
			return nil, fmt.Errorf("parsing %s: point source %q has %d fluxes for %d positions",
				path, name, len(ps.Fluxes), len(ps.Positions))
		}
	}
	return points, nil
}

// readJSONSidecar decodes an optional sidecar into out; a missing file is
// not an error.
func readJSONSidecar(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
