package model

import (
	"fmt"
	"strings"

	"caustic/internal/prior"
)

// TakeInstance pins the dst subtree to the source instance's values at the
// src subtree: every leaf under dstPath becomes fixed at the value the
// source holds for the matching leaf under srcPath. The passed subtree
// contributes zero free parameters afterwards. Linked leaves inside the
// subtree stay linked and must agree in the source.
func (s *Spec) TakeInstance(src *Instance, dstPath, srcPath string) error {
	if src == nil {
		return fmt.Errorf("nil source instance for %s", dstPath)
	}
	leaves, err := s.leavesUnder(dstPath)
	if err != nil {
		return err
	}

	// One fresh fixed parameter per current dst link group.
	replaced := make(map[*Param]*Param)
	for _, leaf := range leaves {
		srcLeaf := joinPath(srcPath, relativeTo(leaf, dstPath))
		v, ok := src.Value(srcLeaf)
		if !ok {
			return fmt.Errorf("source instance has no value at %s (for %s)", srcLeaf, leaf)
		}

		old := s.params[leaf]
		if dup, done := replaced[old]; done {
			if dup.val != v {
				return fmt.Errorf("linked path %s receives conflicting value %g (group already %g)", leaf, v, dup.val)
			}
			s.params[leaf] = dup
			continue
		}
		dup := FixedParam(v)
		replaced[old] = dup
		s.params[leaf] = dup
	}
	return nil
}

// TakeModel copies the source spec's parameters at the src subtree onto the
// dst subtree: free leaves arrive with the source's (already seeded) priors,
// fixed leaves with their values. Aliasing inside the copied subtree is
// preserved: source leaves sharing one parameter share a fresh one here.
// The free-parameter count of the subtree is unchanged by the pass.
func (s *Spec) TakeModel(src *Spec, dstPath, srcPath string) error {
	if src == nil {
		return fmt.Errorf("nil source model for %s", dstPath)
	}
	leaves, err := s.leavesUnder(dstPath)
	if err != nil {
		return err
	}

	copied := make(map[*Param]*Param)
	for _, leaf := range leaves {
		srcLeaf := joinPath(srcPath, relativeTo(leaf, dstPath))
		srcParam, ok := src.params[srcLeaf]
		if !ok {
			return fmt.Errorf("source model has no parameter at %s (for %s)", srcLeaf, leaf)
		}

		dup, done := copied[srcParam]
		if !done {
			dup = &Param{pr: srcParam.pr, val: srcParam.val}
			copied[srcParam] = dup
		}
		s.params[leaf] = dup
	}
	return nil
}

// ApplyPriorLibrary replaces the priors of free leaves with overrides from
// a prior library, keyed by each leaf's nearest enclosing component type.
// Fixed leaves are left alone. Call before linking; overrides apply leaf by
// leaf.
func (s *Spec) ApplyPriorLibrary(lib *prior.Library) error {
	if lib == nil {
		return nil
	}
	for _, leaf := range s.Paths() {
		param := s.params[leaf]
		if !param.IsFree() {
			continue
		}
		root, tname, ok := s.nearestTyped(leaf)
		if !ok {
			continue
		}
		cfg, ok := lib.Lookup(tname, relativeTo(leaf, root))
		if !ok {
			continue
		}
		pr, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("prior override for %s.%s: %w", tname, relativeTo(leaf, root), err)
		}
		param.pr = pr
	}
	return nil
}

// nearestTyped finds the closest ancestor of a leaf with a recorded
// component type.
func (s *Spec) nearestTyped(leaf string) (root, tname string, ok bool) {
	parts := strings.Split(leaf, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		if t, found := s.types[prefix]; found {
			return prefix, t, true
		}
	}
	return "", "", false
}

// joinPath appends a relative leaf suffix to a subtree root.
func joinPath(root, rel string) string {
	if rel == "" {
		return root
	}
	return root + "." + rel
}
