package config

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// PROJECT CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "caustic" {
		t.Errorf("expected Name=caustic, got %s", cfg.Name)
	}
	if cfg.Search.Sampler != "mcmc" {
		t.Errorf("expected Sampler=mcmc, got %s", cfg.Search.Sampler)
	}
	if cfg.Positions.Factor != 3.0 {
		t.Errorf("expected Positions.Factor=3.0, got %g", cfg.Positions.Factor)
	}
	if cfg.Positions.Floor != 0.2 {
		t.Errorf("expected Positions.Floor=0.2, got %g", cfg.Positions.Floor)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("CAUSTIC_OUTPUT", "")
	t.Setenv("CAUSTIC_DB", "")
	t.Setenv("CAUSTIC_CORES", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "caustic.yaml")

	cfg := DefaultConfig()
	cfg.OutputRoot = "runs"
	cfg.Search.Seed = 42

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.OutputRoot != "runs" {
		t.Errorf("expected OutputRoot=runs, got %s", loaded.OutputRoot)
	}
	if loaded.Search.Seed != 42 {
		t.Errorf("expected Seed=42, got %d", loaded.Search.Seed)
	}
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("CAUSTIC_OUTPUT", "")
	t.Setenv("CAUSTIC_DB", "")
	t.Setenv("CAUSTIC_CORES", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OutputRoot != "output" {
		t.Errorf("expected defaults when file missing, got OutputRoot=%s", cfg.OutputRoot)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}

	cfg.Search.Sampler = "nested-dragons"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid sampler")
	}

	cfg = DefaultConfig()
	cfg.Cores = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero cores")
	}

	cfg = DefaultConfig()
	cfg.Positions.Factor = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative positions factor")
	}

	cfg = DefaultConfig()
	cfg.Search.BurnIn = 1.0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for burn_in=1")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetRecipeTimeout() == 0 {
		t.Error("GetRecipeTimeout should return non-zero duration")
	}

	cfg.Recipe.Timeout = "garbage"
	if got := cfg.GetRecipeTimeout().Seconds(); got != 30 {
		t.Errorf("GetRecipeTimeout fallback=%gs, want 30s", got)
	}
}

// =============================================================================
// WORKSPACE CONFIG TESTS
// =============================================================================

func TestFindWorkspaceRoot_PrefersCausticDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".caustic"), 0o755); err != nil {
		t.Fatalf("mkdir .caustic: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	origWD, _ := os.Getwd()
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	got, err := FindWorkspaceRoot()
	if err != nil {
		t.Fatalf("FindWorkspaceRoot: %v", err)
	}
	if got != root {
		t.Fatalf("FindWorkspaceRoot=%q, want %q", got, root)
	}
}

func TestFindWorkspaceRoot_FallsBackToProjectConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "caustic.yaml"), []byte("name: caustic\n"), 0o644); err != nil {
		t.Fatalf("write caustic.yaml: %v", err)
	}
	nested := filepath.Join(root, "subdir")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	origWD, _ := os.Getwd()
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	got, err := FindWorkspaceRoot()
	if err != nil {
		t.Fatalf("FindWorkspaceRoot: %v", err)
	}
	if got != root {
		t.Fatalf("FindWorkspaceRoot=%q, want %q", got, root)
	}
}

func TestDefaultWorkspaceConfigPath_UsesWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".caustic"), 0o755); err != nil {
		t.Fatalf("mkdir .caustic: %v", err)
	}
	nested := filepath.Join(root, "x", "y")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	origWD, _ := os.Getwd()
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	got := DefaultWorkspaceConfigPath()
	want := filepath.Join(root, ".caustic", "config.json")
	if got != want {
		t.Fatalf("DefaultWorkspaceConfigPath=%q, want %q", got, want)
	}
}

func TestWorkspaceConfig_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".caustic", "config.json")

	cfg := &WorkspaceConfig{
		Theme: "light",
		Logging: &LoggingConfig{
			DebugMode:  true,
			Categories: map[string]bool{"chain": true, "watch": false},
		},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadWorkspaceConfig(path)
	if err != nil {
		t.Fatalf("LoadWorkspaceConfig: %v", err)
	}
	if loaded.Theme != "light" {
		t.Fatalf("Theme=%q, want light", loaded.Theme)
	}
	if loaded.Logging == nil || !loaded.Logging.DebugMode {
		t.Fatal("expected DebugMode=true after round-trip")
	}
	if loaded.Logging.Categories["watch"] {
		t.Fatal("expected watch category disabled after round-trip")
	}
}

func TestWorkspaceConfig_Defaults(t *testing.T) {
	cfg := &WorkspaceConfig{}
	if got := cfg.GetTheme(); got != "dark" {
		t.Errorf("GetTheme=%q, want dark", got)
	}
	logging := cfg.GetLogging()
	if logging.DebugMode {
		t.Error("DebugMode should default to false")
	}
	if logging.Level != "info" {
		t.Errorf("Level=%q, want info", logging.Level)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	off := &LoggingConfig{DebugMode: false}
	if off.IsCategoryEnabled("chain") {
		t.Error("categories must be disabled when debug_mode is false")
	}

	allOn := &LoggingConfig{DebugMode: true}
	if !allOn.IsCategoryEnabled("chain") {
		t.Error("nil category map should enable everything in debug mode")
	}

	partial := &LoggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"chain": true, "watch": false},
	}
	if !partial.IsCategoryEnabled("chain") {
		t.Error("chain should be enabled")
	}
	if partial.IsCategoryEnabled("watch") {
		t.Error("watch should be disabled")
	}
	if !partial.IsCategoryEnabled("grid") {
		t.Error("unspecified category should default to enabled")
	}
}
