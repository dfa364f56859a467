package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WorkspaceConfig holds per-workspace settings from .caustic/config.json.
// Unlike caustic.yaml (which is versioned alongside the project and describes
// the modeling defaults), this file is machine-local: TUI theme and debug
// logging toggles.
type WorkspaceConfig struct {
	// Theme for the TUI ("light" or "dark")
	Theme string `json:"theme,omitempty"`

	// Logging configuration
	Logging *LoggingConfig `json:"logging,omitempty"`
}

// DefaultWorkspaceConfigPath returns the default path to .caustic/config.json.
func DefaultWorkspaceConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return filepath.Join(".caustic", "config.json")
	}
	return filepath.Join(root, ".caustic", "config.json")
}

// FindWorkspaceRoot attempts to find the project root by looking for .caustic
// or caustic.yaml. If not found, returns the current working directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".caustic")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "caustic.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}

// LoadWorkspaceConfig loads configuration from .caustic/config.json.
func LoadWorkspaceConfig(path string) (*WorkspaceConfig, error) {
	cfg := &WorkspaceConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return empty config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to .caustic/config.json.
func (c *WorkspaceConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workspace config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write workspace config: %w", err)
	}

	return nil
}

// GetTheme returns the configured theme, defaulting to "dark".
func (c *WorkspaceConfig) GetTheme() string {
	if c.Theme == "" {
		return "dark"
	}
	return c.Theme
}

// GetLogging returns logging settings with defaults.
func (c *WorkspaceConfig) GetLogging() LoggingConfig {
	if c.Logging != nil {
		cfg := *c.Logging
		if cfg.Level == "" {
			cfg.Level = "info"
		}
		if cfg.Format == "" {
			cfg.Format = "text"
		}
		// Note: DebugMode defaults to false unless explicitly set
		return cfg
	}
	return LoggingConfig{
		Level:     "info",
		Format:    "text",
		DebugMode: false,
	}
}
