package nonlinear

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Settings carries everything a search run needs beyond the model and the
// analysis: where outputs go, how the run is labeled, and the sampler knobs.
// Engines read the knobs they understand and ignore the rest (LivePoints is
// carried for external nested-sampling bindings; the built-ins ignore it).
type Settings struct {
	// Name labels the run and becomes a path segment: it is the step name
	// inside a chain, or any caller-chosen label for standalone fits.
	Name string `yaml:"name"`

	// PathPrefix groups runs, typically the pipeline name and dataset tag.
	PathPrefix string `yaml:"path_prefix,omitempty"`

	// OutputRoot is the directory all run output nests under.
	OutputRoot string `yaml:"output_root"`

	// DatasetTag keys the identifier so the same model fit to two datasets
	// stores separately.
	DatasetTag string `yaml:"dataset_tag,omitempty"`

	// Engine names the analysis engine the run evaluates ("analytic", or a
	// registered external engine).
	Engine string `yaml:"engine,omitempty"`

	// Sampler names the search implementation ("drawer", "mcmc"). It is not
	// part of the settings fingerprint: the sampler reaches the identifier
	// through the search name.
	Sampler string `yaml:"sampler,omitempty"`

	Seed  int64 `yaml:"seed"`
	Cores int   `yaml:"cores,omitempty"`

	Draws      int     `yaml:"draws,omitempty"`
	Walkers    int     `yaml:"walkers,omitempty"`
	Steps      int     `yaml:"steps,omitempty"`
	StretchA   float64 `yaml:"stretch_a,omitempty"`
	BurnIn     float64 `yaml:"burn_in,omitempty"`
	LivePoints int     `yaml:"live_points,omitempty"`

	// PositionsThreshold is the position-matching tolerance in arcsec, zero
	// when the analysis applies none.
	PositionsThreshold float64 `yaml:"positions_threshold,omitempty"`
}

// Fingerprint renders the result-relevant settings as a stable
// newline-separated block for identifier hashing. Cores is excluded: worker
// count must never move outputs. Name, PathPrefix and OutputRoot are
// excluded for the same reason (they shape the path, not the result).
func (s Settings) Fingerprint() string {
	return strings.Join([]string{
		fmt.Sprintf("burn_in=%g", s.BurnIn),
		fmt.Sprintf("draws=%d", s.Draws),
		fmt.Sprintf("engine=%s", s.Engine),
		fmt.Sprintf("live_points=%d", s.LivePoints),
		fmt.Sprintf("positions_threshold=%g", s.PositionsThreshold),
		fmt.Sprintf("seed=%d", s.Seed),
		fmt.Sprintf("steps=%d", s.Steps),
		fmt.Sprintf("stretch_a=%g", s.StretchA),
		fmt.Sprintf("walkers=%d", s.Walkers),
	}, "\n")
}

// Dir returns the output directory for a run identifier:
// <output_root>/<path_prefix>/<name>/<identifier>.
func (s Settings) Dir(identifier string) string {
	return filepath.Join(s.OutputRoot, s.PathPrefix, s.Name, identifier)
}
