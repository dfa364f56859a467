package prior

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Build(t *testing.T) {
	t.Run("uniform", func(t *testing.T) {
		p, err := Config{Type: TypeUniform, Lower: -1, Upper: 1}.Build()
		require.NoError(t, err)
		assert.Equal(t, NewUniform(-1, 1), p)
	})

	t.Run("log_uniform", func(t *testing.T) {
		p, err := Config{Type: TypeLogUniform, Lower: 0.1, Upper: 10}.Build()
		require.NoError(t, err)
		assert.Equal(t, NewLogUniform(0.1, 10), p)
	})

	t.Run("gaussian unbounded", func(t *testing.T) {
		p, err := Config{Type: TypeGaussian, Mu: 1, Sigma: 0.5}.Build()
		require.NoError(t, err)
		assert.Equal(t, NewGaussian(1, 0.5), p)
	})

	t.Run("gaussian limited", func(t *testing.T) {
		p, err := Config{Type: TypeGaussian, Mu: 1, Sigma: 0.5, Lower: 0, Upper: 2}.Build()
		require.NoError(t, err)
		assert.Equal(t, NewGaussianLimited(1, 0.5, 0, 2), p)
	})

	t.Run("round-trip through Config()", func(t *testing.T) {
		orig := NewGaussianLimited(0.5, 0.1, 0, 1)
		rebuilt, err := orig.Config().Build()
		require.NoError(t, err)
		assert.Equal(t, Prior(orig), rebuilt)
	})
}

func TestConfig_BuildErrors(t *testing.T) {
	bad := []Config{
		{Type: "triangle", Lower: 0, Upper: 1},
		{Type: TypeUniform, Lower: 1, Upper: 1},
		{Type: TypeUniform, Lower: 2, Upper: 1},
		{Type: TypeLogUniform, Lower: 0, Upper: 1},
		{Type: TypeLogUniform, Lower: -1, Upper: 1},
		{Type: TypeGaussian, Mu: 0, Sigma: 0},
		{Type: TypeGaussian, Mu: 0, Sigma: -1},
		{Type: TypeGaussian, Mu: 0, Sigma: 1, Lower: 2, Upper: 1},
	}
	for _, cfg := range bad {
		if _, err := cfg.Build(); err == nil {
			t.Errorf("Build(%+v) should fail", cfg)
		}
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()

	light := `
light.Sersic:
  centre.centre_0: {type: uniform, lower: -0.3, upper: 0.3}
  centre.centre_1: {type: uniform, lower: -0.3, upper: 0.3}
  effective_radius: {type: log_uniform, lower: 0.01, upper: 30.0}
`
	mass := `
mass.Isothermal:
  einstein_radius: {type: uniform, lower: 0.0, upper: 8.0}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "light.yaml"), []byte(light), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mass.yaml"), []byte(mass), 0o644))

	lib, err := LoadLibrary(dir)
	require.NoError(t, err)

	cfg, ok := lib.Lookup("light.Sersic", "effective_radius")
	require.True(t, ok)
	assert.Equal(t, TypeLogUniform, cfg.Type)
	assert.Equal(t, 30.0, cfg.Upper)

	cfg, ok = lib.Lookup("mass.Isothermal", "einstein_radius")
	require.True(t, ok)
	assert.Equal(t, 8.0, cfg.Upper)

	_, ok = lib.Lookup("mass.Isothermal", "no_such_leaf")
	assert.False(t, ok)
	_, ok = lib.Lookup("point.Point", "centre.centre_0")
	assert.False(t, ok)

	assert.Equal(t, []string{"light.Sersic", "mass.Isothermal"}, lib.Types())
}

func TestLoadLibrary_LaterFileOverrides(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
light.Sersic:
  sersic_index: {type: uniform, lower: 0.5, upper: 4.0}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(`
light.Sersic:
  sersic_index: {type: uniform, lower: 0.8, upper: 8.0}
`), 0o644))

	lib, err := LoadLibrary(dir)
	require.NoError(t, err)

	cfg, ok := lib.Lookup("light.Sersic", "sersic_index")
	require.True(t, ok)
	assert.Equal(t, 0.8, cfg.Lower)
	assert.Equal(t, 8.0, cfg.Upper)
}

func TestLoadLibrary_MissingDirIsEmpty(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, lib.Types())
}

func TestLoadLibrary_RejectsBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
light.Sersic:
  sersic_index: {type: uniform, lower: 4.0, upper: 0.5}
`), 0o644))

	_, err := LoadLibrary(dir)
	assert.Error(t, err)
}

func TestLibrary_SaveRoundTrip(t *testing.T) {
	lib := NewLibrary()
	lib.Set("light.Sersic", "intensity", Config{Type: TypeLogUniform, Lower: 1e-6, Upper: 1e6})
	lib.Set("mass.NFW", "kappa_s", Config{Type: TypeLogUniform, Lower: 1e-4, Upper: 10})

	path := filepath.Join(t.TempDir(), "priors", "defaults.yaml")
	require.NoError(t, lib.Save(path))

	loaded, err := LoadLibrary(filepath.Dir(path))
	require.NoError(t, err)

	cfg, ok := loaded.Lookup("mass.NFW", "kappa_s")
	require.True(t, ok)
	assert.Equal(t, 10.0, cfg.Upper)
}
