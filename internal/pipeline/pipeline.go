// Package pipeline compiles YAML pipeline documents into executable chain
// steps. A document names an ordered list of steps; each step declares the
// galaxies it models (component types resolved through the profiles
// registry), values to pin, paths to link, references that pull results out
// of earlier steps, and a settings block layered over the project defaults.
//
//	name: slacs_parametric
//	steps:
//	  - name: source_lp
//	    model:
//	      lens:
//	        redshift: 0.5
//	        mass: mass.Isothermal
//	      source:
//	        redshift: 1.0
//	        light: light.Sersic
//	    settings:
//	      sampler: drawer
//	  - name: mass_total
//	    model:
//	      lens:
//	        redshift: 0.5
//	        mass: mass.PowerLaw
//	      source:
//	        redshift: 1.0
//	        light: light.Sersic
//	    take:
//	      - from: {step: source_lp, take: instance, path: galaxies.source.light}
//	    settings:
//	      positions_threshold: {from_step: source_lp}
//
// Step order is execution order: a step may only reference steps above it.
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownStep marks a reference to a pipeline step that does not exist
// or runs later than the referencing step.
var ErrUnknownStep = errors.New("unknown pipeline step")

// Take kinds: what a reference pulls out of the source step's result.
const (
	// TakeModel copies the source's prior-seeded model, keeping the
	// subtree's free-parameter count.
	TakeModel = "model"

	// TakeInstance pins the subtree to the source's maximum-likelihood
	// values, removing its free parameters.
	TakeInstance = "instance"
)

// Document is a parsed pipeline file.
type Document struct {
	Name  string     `yaml:"name"`
	Steps []StepSpec `yaml:"steps"`
}

// StepSpec is one step of a pipeline document.
type StepSpec struct {
	Name     string                `yaml:"name"`
	Model    map[string]GalaxySpec `yaml:"model"`
	Takes    []TakeSpec            `yaml:"take,omitempty"`
	Fix      map[string]float64    `yaml:"fix,omitempty"`
	Links    [][]string            `yaml:"link,omitempty"`
	Settings SettingsSpec          `yaml:"settings,omitempty"`
}

// GalaxySpec declares one galaxy: a redshift plus named components mapped
// to registry type names. Component entries inline beside the redshift key.
type GalaxySpec struct {
	Redshift   float64           `yaml:"redshift"`
	Components map[string]string `yaml:",inline"`
}

// TakeSpec references an earlier step's result. At defaults to the source
// path, for the common case of passing a subtree to its own position.
type TakeSpec struct {
	From TakeFrom `yaml:"from"`
	At   string   `yaml:"at,omitempty"`
}

// TakeFrom names the source step, the take kind and the source subtree.
type TakeFrom struct {
	Step string `yaml:"step"`
	Take string `yaml:"take"`
	Path string `yaml:"path"`
}

// SettingsSpec is a step's settings block. Zero fields inherit the project
// defaults; Seed is a pointer so an explicit zero seed survives.
type SettingsSpec struct {
	Engine     string  `yaml:"engine,omitempty"`
	Sampler    string  `yaml:"sampler,omitempty"`
	Seed       *int64  `yaml:"seed,omitempty"`
	Draws      int     `yaml:"draws,omitempty"`
	Walkers    int     `yaml:"walkers,omitempty"`
	Steps      int     `yaml:"steps,omitempty"`
	StretchA   float64 `yaml:"stretch_a,omitempty"`
	BurnIn     float64 `yaml:"burn_in,omitempty"`
	LivePoints int     `yaml:"live_points,omitempty"`

	PositionsThreshold *ThresholdSpec `yaml:"positions_threshold,omitempty"`
}

// ThresholdSpec derives a position-matching threshold from an earlier
// step's positions spread: max(factor * spread, floor). Zero factor and
// floor inherit the project defaults.
type ThresholdSpec struct {
	FromStep string  `yaml:"from_step"`
	Factor   float64 `yaml:"factor,omitempty"`
	Floor    float64 `yaml:"floor,omitempty"`
}

// Load reads and parses a pipeline file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a pipeline document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline YAML: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks document structure and step references. Component types
// and parameter paths are resolved later, at compile time.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("pipeline has no name")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("pipeline %q has no steps", d.Name)
	}

	// Only steps above the current one are valid reference targets.
	earlier := make(map[string]bool, len(d.Steps))
	for i, sp := range d.Steps {
		if sp.Name == "" {
			return fmt.Errorf("step %d has no name", i+1)
		}
		if earlier[sp.Name] {
			return fmt.Errorf("duplicate step name: %q", sp.Name)
		}

		if len(sp.Model) == 0 {
			return fmt.Errorf("step %s models no galaxies", sp.Name)
		}
		for name, g := range sp.Model {
			if len(g.Components) == 0 {
				return fmt.Errorf("step %s: galaxy %s has no components", sp.Name, name)
			}
		}

		for _, take := range sp.Takes {
			if take.From.Path == "" {
				return fmt.Errorf("step %s: take from %q names no path", sp.Name, take.From.Step)
			}
			if take.From.Take != TakeModel && take.From.Take != TakeInstance {
				return fmt.Errorf("step %s: take kind must be %q or %q (got %q)",
					sp.Name, TakeModel, TakeInstance, take.From.Take)
			}
			if err := d.checkRef(earlier, sp.Name, take.From.Step); err != nil {
				return err
			}
		}

		if th := sp.Settings.PositionsThreshold; th != nil {
			if err := d.checkRef(earlier, sp.Name, th.FromStep); err != nil {
				return err
			}
		}

		for li, pair := range sp.Links {
			if len(pair) != 2 {
				return fmt.Errorf("step %s: link %d must name exactly two paths", sp.Name, li+1)
			}
		}

		earlier[sp.Name] = true
	}
	return nil
}

// checkRef rejects references to unknown steps and to steps that have not
// run yet when the referencing step starts.
func (d *Document) checkRef(earlier map[string]bool, step, ref string) error {
	if earlier[ref] {
		return nil
	}
	for _, sp := range d.Steps {
		if sp.Name == ref {
			return fmt.Errorf("step %s references %q before it runs: %w", step, ref, ErrUnknownStep)
		}
	}
	return fmt.Errorf("step %s references %q: %w", step, ref, ErrUnknownStep)
}
