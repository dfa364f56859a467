package model

import (
	"fmt"
	"sort"
	"strings"

	"caustic/internal/prior"
)

// CanonicalDescription renders the spec as a sorted, newline-separated
// block: component types, free leaves with their prior descriptions, fixed
// leaves with their values, link groups. Identical specs produce identical
// text regardless of construction order, so search identifiers hash it
// directly. The format is stable; do not reorder sections.
func (s *Spec) CanonicalDescription() string {
	var lines []string

	for _, p := range s.TypedPaths() {
		lines = append(lines, fmt.Sprintf("type %s %s", p, s.types[p]))
	}
	for _, p := range s.Paths() {
		param := s.params[p]
		if param.IsFree() {
			lines = append(lines, fmt.Sprintf("free %s %s", p, param.pr.Describe()))
		} else {
			lines = append(lines, fmt.Sprintf("fixed %s %g", p, param.val))
		}
	}
	for _, group := range s.LinkGroups() {
		lines = append(lines, "link "+strings.Join(group, " "))
	}

	return strings.Join(lines, "\n")
}

// Snapshot is the serializable form of a Spec, written to model.yaml in
// every search output directory and read back on resume.
type Snapshot struct {
	Types map[string]string       `yaml:"types,omitempty"`
	Free  map[string]prior.Config `yaml:"free,omitempty"`
	Fixed map[string]float64      `yaml:"fixed,omitempty"`
	Links [][]string              `yaml:"links,omitempty"`
}

// Snapshot captures the spec's full parameter state.
func (s *Spec) Snapshot() *Snapshot {
	snap := &Snapshot{
		Types: make(map[string]string, len(s.types)),
		Free:  make(map[string]prior.Config),
		Fixed: make(map[string]float64),
	}
	for p, t := range s.types {
		snap.Types[p] = t
	}
	for p, param := range s.params {
		if param.IsFree() {
			snap.Free[p] = param.pr.Config()
		} else {
			snap.Fixed[p] = param.val
		}
	}
	snap.Links = s.LinkGroups()
	return snap
}

// FromSnapshot rebuilds a Spec from its serialized form. The result has no
// struct backing (Decode still works against instances produced from it, as
// layout lives in the paths).
func FromSnapshot(snap *Snapshot) (*Spec, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil model snapshot")
	}
	s := New()

	for p, cfg := range snap.Free {
		if _, dup := snap.Fixed[p]; dup {
			return nil, fmt.Errorf("path %s is both free and fixed in snapshot", p)
		}
		pr, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("snapshot prior at %s: %w", p, err)
		}
		s.params[p] = FreeParam(pr)
	}
	for p, v := range snap.Fixed {
		s.params[p] = FixedParam(v)
	}
	for p, t := range snap.Types {
		s.types[p] = t
	}

	for _, group := range snap.Links {
		if len(group) < 2 {
			continue
		}
		sorted := append([]string(nil), group...)
		sort.Strings(sorted)
		first, ok := s.params[sorted[0]]
		if !ok {
			return nil, fmt.Errorf("snapshot link references unknown path %s", sorted[0])
		}
		for _, p := range sorted[1:] {
			if _, ok := s.params[p]; !ok {
				return nil, fmt.Errorf("snapshot link references unknown path %s", p)
			}
			s.params[p] = first
		}
	}

	return s, nil
}

// Info renders a human-readable model summary, written to model.info beside
// the samples.
func (s *Spec) Info() string {
	var b strings.Builder

	fmt.Fprintf(&b, "free parameters: %d\n", s.PriorCount())
	fmt.Fprintf(&b, "leaf parameters: %d\n", len(s.params))

	paths := s.Paths()
	width := 0
	for _, p := range paths {
		if len(p) > width {
			width = len(p)
		}
	}

	b.WriteString("\n")
	for _, p := range paths {
		param := s.params[p]
		if param.IsFree() {
			fmt.Fprintf(&b, "%-*s  %s\n", width, p, param.pr.Describe())
		} else {
			fmt.Fprintf(&b, "%-*s  = %g\n", width, p, param.val)
		}
	}

	if links := s.LinkGroups(); len(links) > 0 {
		b.WriteString("\nlinked:\n")
		for _, group := range links {
			fmt.Fprintf(&b, "  %s\n", strings.Join(group, " == "))
		}
	}

	if typed := s.TypedPaths(); len(typed) > 0 {
		b.WriteString("\ncomponents:\n")
		for _, p := range typed {
			fmt.Fprintf(&b, "  %-*s  %s\n", width, p, s.types[p])
		}
	}

	return b.String()
}
