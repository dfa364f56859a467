// Package config loads caustic configuration. Project-level settings live in
// caustic.yaml; per-workspace settings (debug logging, theme) live in
// .caustic/config.json.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all caustic configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Root directory for search output trees
	OutputRoot string `yaml:"output_root"`

	// Path to the aggregator database
	Database string `yaml:"database"`

	// Default worker count for grid-search fan-out
	Cores int `yaml:"cores"`

	// Default analysis engine resolved from the registry
	Engine string `yaml:"engine"`

	// Search defaults
	Search SearchConfig `yaml:"search"`

	// Positions-threshold derivation defaults
	Positions PositionsConfig `yaml:"positions"`

	// Prior config directory
	Priors PriorsConfig `yaml:"priors"`

	// Recipe interpreter settings
	Recipe RecipeConfig `yaml:"recipe"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig holds the default knobs handed to non-linear searches.
// A pipeline step's settings block overrides these per step.
type SearchConfig struct {
	Sampler    string  `yaml:"sampler"` // drawer, mcmc
	Seed       int64   `yaml:"seed"`
	Draws      int     `yaml:"draws"`
	Walkers    int     `yaml:"walkers"`
	Steps      int     `yaml:"steps"`
	LivePoints int     `yaml:"live_points"`
	StretchA   float64 `yaml:"stretch_a"`
	BurnIn     float64 `yaml:"burn_in"`
}

// PositionsConfig configures the derived position-matching threshold.
type PositionsConfig struct {
	Factor float64 `yaml:"factor"`
	Floor  float64 `yaml:"floor"`
}

// PriorsConfig points at the workspace prior override directory.
type PriorsConfig struct {
	Dir string `yaml:"dir"`
}

// RecipeConfig configures the recipe interpreter.
type RecipeConfig struct {
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:       "caustic",
		Version:    "0.4.0",
		OutputRoot: "output",
		Database:   filepath.Join(".caustic", "aggregate.db"),
		Cores:      1,
		Engine:     "analytic",

		Search: SearchConfig{
			Sampler:    "mcmc",
			Draws:      2000,
			Walkers:    40,
			Steps:      500,
			LivePoints: 100,
			StretchA:   2.0,
			BurnIn:     0.25,
		},

		Positions: PositionsConfig{
			Factor: 3.0,
			Floor:  0.2,
		},

		Priors: PriorsConfig{
			Dir: filepath.Join("config", "priors"),
		},

		Recipe: RecipeConfig{
			Timeout: "30s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("CAUSTIC_OUTPUT"); root != "" {
		c.OutputRoot = root
	}
	if db := os.Getenv("CAUSTIC_DB"); db != "" {
		c.Database = db
	}
	if cores := os.Getenv("CAUSTIC_CORES"); cores != "" {
		if n, err := strconv.Atoi(cores); err == nil && n > 0 {
			c.Cores = n
		}
	}
}

// GetRecipeTimeout returns the recipe interpreter timeout as a duration.
func (c *Config) GetRecipeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Recipe.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ValidSamplers lists all built-in non-linear search samplers.
var ValidSamplers = []string{"drawer", "mcmc"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root not configured")
	}
	if c.Cores < 1 {
		return fmt.Errorf("cores must be >= 1 (got %d)", c.Cores)
	}

	validSampler := false
	for _, s := range ValidSamplers {
		if c.Search.Sampler == s {
			validSampler = true
			break
		}
	}
	if !validSampler {
		return fmt.Errorf("invalid sampler: %s (valid: %v)", c.Search.Sampler, ValidSamplers)
	}

	if c.Positions.Factor <= 0 {
		return fmt.Errorf("positions factor must be > 0 (got %g)", c.Positions.Factor)
	}
	if c.Positions.Floor < 0 {
		return fmt.Errorf("positions floor must be >= 0 (got %g)", c.Positions.Floor)
	}
	if c.Search.BurnIn < 0 || c.Search.BurnIn >= 1 {
		return fmt.Errorf("burn_in must be in [0, 1) (got %g)", c.Search.BurnIn)
	}

	return nil
}
