package model

import (
	"fmt"
	"math/rand"
	"sort"
)

// Instance is a complete, immutable assignment of physical values to every
// leaf path of a Spec, free and fixed alike. Instances are what analyses
// evaluate and what results carry as their maximum-likelihood point.
type Instance struct {
	values map[string]float64
}

// NewInstance copies values into an Instance.
func NewInstance(values map[string]float64) *Instance {
	m := make(map[string]float64, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &Instance{values: m}
}

// Value returns the value at an exact leaf path.
func (i *Instance) Value(path string) (float64, bool) {
	v, ok := i.values[path]
	return v, ok
}

// Paths returns every stored leaf path, sorted.
func (i *Instance) Paths() []string {
	paths := make([]string, 0, len(i.values))
	for p := range i.values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Values returns a copy of the full path-to-value map.
func (i *Instance) Values() map[string]float64 {
	m := make(map[string]float64, len(i.values))
	for k, v := range i.values {
		m[k] = v
	}
	return m
}

// Instance expands a physical-space vector into a full instance. The vector
// matches the spec's free groups in order (one entry per distinct free
// parameter); linked paths all receive the shared entry and fixed paths
// their pinned values.
func (s *Spec) Instance(vector []float64) (*Instance, error) {
	groups := s.FreeGroups()
	if len(vector) != len(groups) {
		return nil, fmt.Errorf("vector has %d entries, model has %d free parameters", len(vector), len(groups))
	}

	byParam := make(map[*Param]float64, len(groups))
	for gi, group := range groups {
		byParam[s.params[group[0]]] = vector[gi]
	}

	values := make(map[string]float64, len(s.params))
	for path, param := range s.params {
		if param.IsFree() {
			values[path] = byParam[param]
		} else {
			values[path] = param.val
		}
	}
	return &Instance{values: values}, nil
}

// Vector projects an instance back onto the free-parameter vector. Linked
// paths must agree in the instance; fixed paths are ignored.
func (s *Spec) Vector(inst *Instance) ([]float64, error) {
	groups := s.FreeGroups()
	vector := make([]float64, len(groups))
	for gi, group := range groups {
		v, ok := inst.Value(group[0])
		if !ok {
			return nil, fmt.Errorf("instance has no value at %s", group[0])
		}
		for _, path := range group[1:] {
			other, ok := inst.Value(path)
			if !ok {
				return nil, fmt.Errorf("instance has no value at %s", path)
			}
			if other != v {
				return nil, fmt.Errorf("linked paths disagree: %s=%g, %s=%g", group[0], v, path, other)
			}
		}
		vector[gi] = v
	}
	return vector, nil
}

// TransformUnit maps a unit-hypercube point to a physical-space vector
// through each free parameter's prior, in free-group order.
func (s *Spec) TransformUnit(unit []float64) ([]float64, error) {
	groups := s.FreeGroups()
	if len(unit) != len(groups) {
		return nil, fmt.Errorf("unit point has %d entries, model has %d free parameters", len(unit), len(groups))
	}
	vector := make([]float64, len(groups))
	for gi, group := range groups {
		vector[gi] = s.params[group[0]].pr.TransformUnit(unit[gi])
	}
	return vector, nil
}

// DrawVector samples a physical-space vector from the priors.
func (s *Spec) DrawVector(rng *rand.Rand) []float64 {
	groups := s.FreeGroups()
	vector := make([]float64, len(groups))
	for gi, group := range groups {
		vector[gi] = s.params[group[0]].pr.Draw(rng)
	}
	return vector
}

// LogPrior returns the summed log prior density of a physical-space vector,
// -Inf outside any prior's support.
func (s *Spec) LogPrior(vector []float64) (float64, error) {
	groups := s.FreeGroups()
	if len(vector) != len(groups) {
		return 0, fmt.Errorf("vector has %d entries, model has %d free parameters", len(vector), len(groups))
	}
	sum := 0.0
	for gi, group := range groups {
		sum += s.params[group[0]].pr.LogPDF(vector[gi])
	}
	return sum, nil
}
