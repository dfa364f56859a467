package model

import (
	"testing"

	"caustic/internal/prior"
)

// sourceResult builds a "previous fit": a spec over one profile plus its
// maximum-likelihood instance and a Gaussian-seeded model view, the way a
// search result carries them.
func sourceResult(t *testing.T) (spec *Spec, inst *Instance, seeded *Spec) {
	t.Helper()

	spec = New()
	if err := spec.Add("galaxies.lens.mass", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	values := map[string]float64{
		"galaxies.lens.mass.centre.centre_0": 0.05,
		"galaxies.lens.mass.centre.centre_1": -0.02,
		"galaxies.lens.mass.effective_radius": 1.6,
		"galaxies.lens.mass.intensity":        4.0,
	}
	inst = NewInstance(values)

	seeded = spec.Clone()
	for _, p := range seeded.FreePaths() {
		if err := seeded.Free(p, prior.NewGaussian(values[p], 0.1)); err != nil {
			t.Fatalf("Free: %v", err)
		}
	}
	return spec, inst, seeded
}

func TestTakeInstance_RemovesSubtreeFromFreeCount(t *testing.T) {
	_, inst, _ := sourceResult(t)

	s := New()
	if err := s.Add("galaxies.lens.mass", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("galaxies.source.light", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n := s.PriorCount(); n != 8 {
		t.Fatalf("PriorCount=%d, want 8", n)
	}

	err := s.TakeInstance(inst, "galaxies.lens.mass", "galaxies.lens.mass")
	if err != nil {
		t.Fatalf("TakeInstance: %v", err)
	}

	// The passed subtree contributes zero free parameters.
	if n := s.PriorCount(); n != 4 {
		t.Errorf("PriorCount=%d, want 4", n)
	}
	p, _ := s.At("galaxies.lens.mass.effective_radius")
	if p.IsFree() || p.Value() != 1.6 {
		t.Errorf("taken leaf = (free=%v, value=%g), want fixed 1.6", p.IsFree(), p.Value())
	}
}

func TestTakeInstance_AcrossPaths(t *testing.T) {
	_, inst, _ := sourceResult(t)

	s := New()
	if err := s.Add("galaxies.lens.dark", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Destination path differs from the source path; leaves map by suffix.
	err := s.TakeInstance(inst, "galaxies.lens.dark", "galaxies.lens.mass")
	if err != nil {
		t.Fatalf("TakeInstance: %v", err)
	}
	p, _ := s.At("galaxies.lens.dark.centre.centre_0")
	if p.IsFree() || p.Value() != 0.05 {
		t.Errorf("taken leaf = (free=%v, value=%g), want fixed 0.05", p.IsFree(), p.Value())
	}
}

func TestTakeInstance_MissingSourceValue(t *testing.T) {
	s := New()
	if err := s.Add("galaxies.lens.mass", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	inst := NewInstance(map[string]float64{"elsewhere.x": 1})

	if err := s.TakeInstance(inst, "galaxies.lens.mass", "galaxies.lens.mass"); err == nil {
		t.Error("missing source values should fail")
	}
}

func TestTakeModel_PreservesFreeCountAndSeedsPriors(t *testing.T) {
	_, _, seeded := sourceResult(t)

	s := New()
	if err := s.Add("galaxies.lens.mass", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("galaxies.source.light", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	base := s.PriorCount()

	err := s.TakeModel(seeded, "galaxies.lens.mass", "galaxies.lens.mass")
	if err != nil {
		t.Fatalf("TakeModel: %v", err)
	}

	// Model passing keeps the subtree free.
	if n := s.PriorCount(); n != base {
		t.Errorf("PriorCount=%d, want %d", n, base)
	}

	// Priors arrive centred on the source's maximum-likelihood values.
	p, _ := s.At("galaxies.lens.mass.centre.centre_0")
	g, ok := p.Prior().(prior.Gaussian)
	if !ok {
		t.Fatalf("prior=%T, want Gaussian", p.Prior())
	}
	if g.Mu != 0.05 {
		t.Errorf("prior centre=%g, want 0.05", g.Mu)
	}
}

func TestTakeModel_PreservesAliasing(t *testing.T) {
	// Source spec with a linked centre, seeded.
	src := New()
	if err := src.Add("galaxies.lens.bulge", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := src.Add("galaxies.lens.disk", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := src.Link("galaxies.lens.bulge.centre", "galaxies.lens.disk.centre"); err != nil {
		t.Fatalf("Link: %v", err)
	}

	s := New()
	if err := s.Add("galaxies.lens.bulge", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("galaxies.lens.disk", &testProfile{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.TakeModel(src, "galaxies.lens", "galaxies.lens"); err != nil {
		t.Fatalf("TakeModel: %v", err)
	}

	// The source's centre link carries over: 8 - 2 shared.
	if n := s.PriorCount(); n != src.PriorCount() {
		t.Errorf("PriorCount=%d, want %d", n, src.PriorCount())
	}
	a, _ := s.At("galaxies.lens.bulge.centre.centre_0")
	b, _ := s.At("galaxies.lens.disk.centre.centre_0")
	if a != b {
		t.Error("aliasing must survive model passing")
	}

	// And the copy is independent of the source.
	if err := s.Fix("galaxies.lens.bulge.centre.centre_0", 0.3); err != nil {
		t.Fatalf("Fix: %v", err)
	}
	sp, _ := src.At("galaxies.lens.bulge.centre.centre_0")
	if !sp.IsFree() {
		t.Error("mutating the destination must not touch the source")
	}
}

func TestApplyPriorLibrary(t *testing.T) {
	s := newTestSpec(t)
	if err := s.Fix("galaxies.lens.disk.intensity", 1.0); err != nil {
		t.Fatalf("Fix: %v", err)
	}

	lib := prior.NewLibrary()
	lib.Set("model.testProfile", "effective_radius", prior.Config{
		Type: prior.TypeUniform, Lower: 0, Upper: 5,
	})
	// Overrides never free a fixed leaf.
	lib.Set("model.testProfile", "intensity", prior.Config{
		Type: prior.TypeLogUniform, Lower: 0.1, Upper: 10,
	})

	if err := s.ApplyPriorLibrary(lib); err != nil {
		t.Fatalf("ApplyPriorLibrary: %v", err)
	}

	p, _ := s.At("galaxies.lens.bulge.effective_radius")
	u, ok := p.Prior().(prior.Uniform)
	if !ok || u.Upper != 5 {
		t.Errorf("prior=%v, want Uniform upper=5", p.Prior())
	}

	fixed, _ := s.At("galaxies.lens.disk.intensity")
	if fixed.IsFree() {
		t.Error("library overrides must not free fixed leaves")
	}

	free, _ := s.At("galaxies.lens.bulge.intensity")
	lu, ok := free.Prior().(prior.LogUniform)
	if !ok || lu.Upper != 10 {
		t.Errorf("prior=%v, want LogUniform upper=10", free.Prior())
	}
}

func TestApplyPriorLibrary_NearestTypeWins(t *testing.T) {
	s := newTestSpec(t)

	lib := prior.NewLibrary()
	// An override keyed on the enclosing galaxy type must not reach leaves
	// owned by the nested profile type.
	lib.Set("model.testGalaxy", "bulge.intensity", prior.Config{
		Type: prior.TypeUniform, Lower: 0, Upper: 1,
	})

	if err := s.ApplyPriorLibrary(lib); err != nil {
		t.Fatalf("ApplyPriorLibrary: %v", err)
	}

	p, _ := s.At("galaxies.lens.bulge.intensity")
	if _, ok := p.Prior().(prior.Uniform); ok {
		t.Error("override must resolve against the nearest enclosing type")
	}
}
