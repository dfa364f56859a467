package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Paths(t *testing.T) {
	t.Run("CAUSTIC_OUTPUT overrides output root", func(t *testing.T) {
		t.Setenv("CAUSTIC_OUTPUT", "/tmp/lens-runs")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/lens-runs", cfg.OutputRoot)
	})

	t.Run("CAUSTIC_DB overrides database path", func(t *testing.T) {
		t.Setenv("CAUSTIC_DB", "/tmp/agg.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/agg.db", cfg.Database)
	})

	t.Run("empty env vars leave config untouched", func(t *testing.T) {
		t.Setenv("CAUSTIC_OUTPUT", "")
		t.Setenv("CAUSTIC_DB", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "output", cfg.OutputRoot)
	})
}

func TestEnvOverrides_Cores(t *testing.T) {
	t.Run("CAUSTIC_CORES overrides worker count", func(t *testing.T) {
		t.Setenv("CAUSTIC_CORES", "8")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 8, cfg.Cores)
	})

	t.Run("non-numeric CAUSTIC_CORES is ignored", func(t *testing.T) {
		t.Setenv("CAUSTIC_CORES", "many")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 1, cfg.Cores)
	})

	t.Run("zero or negative CAUSTIC_CORES is ignored", func(t *testing.T) {
		t.Setenv("CAUSTIC_CORES", "0")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 1, cfg.Cores)
	})
}
