// Package model implements the parameter graph that every fit is defined
// over. A Spec maps dotted snake_case paths (galaxies.lens.mass.centre.centre_0)
// to parameters that are either free (carrying a prior) or fixed (carrying a
// value). Two paths may be linked so they resolve to the same underlying
// parameter: the optimizer then sees one dimension instead of two, and
// instance construction writes the same value through every linked path.
//
// Specs are assembled by reflecting over component structs (see Add), then
// shaped with Fix, Free and Link, and finally consumed by non-linear searches
// through Instance and Vector. Results of earlier searches feed later specs
// through TakeInstance (fixed constants) and TakeModel (prior seeds).
package model

import (
	"fmt"
	"sort"
	"strings"

	"caustic/internal/prior"
)

// Param is one underlying model parameter. Several paths may point at the
// same Param (linking); it is exactly one of free (prior != nil) or fixed.
type Param struct {
	pr  prior.Prior
	val float64
}

// FreeParam returns a parameter carrying a prior.
func FreeParam(p prior.Prior) *Param {
	return &Param{pr: p}
}

// FixedParam returns a parameter pinned to a value.
func FixedParam(v float64) *Param {
	return &Param{val: v}
}

// IsFree reports whether the parameter carries a prior.
func (p *Param) IsFree() bool { return p.pr != nil }

// Prior returns the prior, nil when fixed.
func (p *Param) Prior() prior.Prior { return p.pr }

// Value returns the fixed value; meaningless when the parameter is free.
func (p *Param) Value() float64 { return p.val }

// Spec is a parameter graph: leaf paths mapped to (possibly shared) Params,
// plus the component type name recorded at every composite node that was
// added from a registered struct. The zero Spec is not usable; call New.
type Spec struct {
	params map[string]*Param // leaf path -> parameter
	types  map[string]string // component path -> type name ("light.Sersic")
}

// New returns an empty Spec.
func New() *Spec {
	return &Spec{
		params: make(map[string]*Param),
		types:  make(map[string]string),
	}
}

// Paths returns every leaf path, sorted.
func (s *Spec) Paths() []string {
	paths := make([]string, 0, len(s.params))
	for p := range s.params {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FreePaths returns every leaf path whose parameter is free, sorted.
func (s *Spec) FreePaths() []string {
	var paths []string
	for p, param := range s.params {
		if param.IsFree() {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// At returns the parameter at an exact leaf path.
func (s *Spec) At(path string) (*Param, bool) {
	p, ok := s.params[path]
	return p, ok
}

// TypeName returns the component type recorded at a composite path.
func (s *Spec) TypeName(path string) (string, bool) {
	t, ok := s.types[path]
	return t, ok
}

// TypedPaths returns every composite path with a recorded type, sorted.
func (s *Spec) TypedPaths() []string {
	paths := make([]string, 0, len(s.types))
	for p := range s.types {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// PriorCount returns the number of distinct free parameters. Linked paths
// share one parameter and count once.
func (s *Spec) PriorCount() int {
	seen := make(map[*Param]bool)
	n := 0
	for _, path := range s.Paths() {
		param := s.params[path]
		if param.IsFree() && !seen[param] {
			seen[param] = true
			n++
		}
	}
	return n
}

// FreeGroups returns the distinct free parameters as groups of the leaf
// paths sharing them. Groups are ordered by their first path; unlinked
// parameters form singleton groups. The group order defines the layout of
// search vectors.
func (s *Spec) FreeGroups() [][]string {
	byParam := make(map[*Param][]string)
	var order []*Param
	for _, path := range s.Paths() {
		param := s.params[path]
		if !param.IsFree() {
			continue
		}
		if _, seen := byParam[param]; !seen {
			order = append(order, param)
		}
		byParam[param] = append(byParam[param], path)
	}

	groups := make([][]string, 0, len(order))
	for _, param := range order {
		groups = append(groups, byParam[param])
	}
	return groups
}

// LinkGroups returns the groups of two or more paths sharing one parameter
// (free or fixed), ordered by first path.
func (s *Spec) LinkGroups() [][]string {
	byParam := make(map[*Param][]string)
	var order []*Param
	for _, path := range s.Paths() {
		param := s.params[path]
		if _, seen := byParam[param]; !seen {
			order = append(order, param)
		}
		byParam[param] = append(byParam[param], path)
	}

	var groups [][]string
	for _, param := range order {
		if g := byParam[param]; len(g) > 1 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Fix pins the leaf at path to a value. When the path is linked, every
// linked path is pinned with it.
func (s *Spec) Fix(path string, v float64) error {
	param, ok := s.params[path]
	if !ok {
		return fmt.Errorf("unknown parameter path: %s", path)
	}
	param.pr = nil
	param.val = v
	return nil
}

// Free attaches a prior to the leaf at path. When the path is linked, every
// linked path is freed with it.
func (s *Spec) Free(path string, p prior.Prior) error {
	if p == nil {
		return fmt.Errorf("nil prior for path: %s", path)
	}
	param, ok := s.params[path]
	if !ok {
		return fmt.Errorf("unknown parameter path: %s", path)
	}
	param.pr = p
	return nil
}

// Link aliases path b onto path a, leaf by leaf. Both may be composite: the
// relative leaf layout under each must match exactly, and each pair then
// shares a's parameter. Linking already-linked paths is a no-op for pairs
// that already share.
func (s *Spec) Link(a, b string) error {
	if a == b {
		return fmt.Errorf("cannot link path to itself: %s", a)
	}

	aLeaves, err := s.leavesUnder(a)
	if err != nil {
		return err
	}
	bLeaves, err := s.leavesUnder(b)
	if err != nil {
		return err
	}
	if len(aLeaves) != len(bLeaves) {
		return fmt.Errorf("cannot link %s (%d leaves) to %s (%d leaves)", a, len(aLeaves), b, len(bLeaves))
	}

	for i := range aLeaves {
		relA := relativeTo(aLeaves[i], a)
		relB := relativeTo(bLeaves[i], b)
		if relA != relB {
			return fmt.Errorf("cannot link %s to %s: leaf layout differs (%s vs %s)", a, b, relA, relB)
		}
	}

	for i := range aLeaves {
		s.params[bLeaves[i]] = s.params[aLeaves[i]]
	}
	return nil
}

// Clone returns a deep copy. Linked paths in the original stay linked in
// the copy, and the copy shares no parameters with the original.
func (s *Spec) Clone() *Spec {
	out := New()
	copied := make(map[*Param]*Param)
	for path, param := range s.params {
		dup, ok := copied[param]
		if !ok {
			dup = &Param{pr: param.pr, val: param.val}
			copied[param] = dup
		}
		out.params[path] = dup
	}
	for path, t := range s.types {
		out.types[path] = t
	}
	return out
}

// leavesUnder returns the sorted leaf paths at or under path.
func (s *Spec) leavesUnder(path string) ([]string, error) {
	if _, ok := s.params[path]; ok {
		return []string{path}, nil
	}
	prefix := path + "."
	var leaves []string
	for p := range s.params {
		if strings.HasPrefix(p, prefix) {
			leaves = append(leaves, p)
		}
	}
	if len(leaves) == 0 {
		return nil, fmt.Errorf("unknown parameter path: %s", path)
	}
	sort.Strings(leaves)
	return leaves, nil
}

// relativeTo strips the subtree root from a leaf path. A leaf equal to the
// root maps to "".
func relativeTo(leaf, root string) string {
	if leaf == root {
		return ""
	}
	return strings.TrimPrefix(leaf, root+".")
}
