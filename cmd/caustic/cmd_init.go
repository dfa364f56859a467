package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"caustic/internal/aggregate"
	"caustic/internal/config"
	"caustic/internal/profiles"
)

// initCmd initializes a caustic project in the current directory
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a caustic project in the current directory",
	Long: `Creates the files a caustic project runs from:

  1. caustic.yaml           project defaults (engine, sampler, output root)
  2. .caustic/config.json   workspace settings (theme, debug logging)
  3. .caustic/logs/         category log directory
  4. .caustic/aggregate.db  results index
  5. config/priors/         default prior library, editable per project

Existing files are kept, so init is safe to re-run.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	// Project defaults
	cfg := config.DefaultConfig()
	cfgPath := filepath.Join(cwd, configFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
		fmt.Printf("kept existing %s\n", configFileName)
	} else {
		if err := cfg.Save(cfgPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configFileName)
	}

	// Workspace settings
	wsPath := filepath.Join(cwd, ".caustic", "config.json")
	if _, err := os.Stat(wsPath); os.IsNotExist(err) {
		ws := &config.WorkspaceConfig{
			Logging: &config.LoggingConfig{Level: "info", Format: "text"},
		}
		if err := ws.Save(wsPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", filepath.Join(".caustic", "config.json"))
	}

	if err := os.MkdirAll(filepath.Join(cwd, ".caustic", "logs"), 0755); err != nil {
		return err
	}

	// Prior library, one YAML per component family. Kept when present so
	// edited priors survive a re-init.
	priorsDir := anchorPath(cwd, cfg.Priors.Dir)
	if _, err := os.Stat(priorsDir); os.IsNotExist(err) {
		if err := profiles.WriteDefaultLibrary(priorsDir); err != nil {
			return err
		}
		fmt.Printf("wrote prior library to %s\n", cfg.Priors.Dir)
	} else {
		fmt.Printf("kept existing prior library in %s\n", cfg.Priors.Dir)
	}

	// Results index
	db, err := aggregate.Open(anchorPath(cwd, cfg.Database))
	if err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}
	fmt.Printf("opened results index at %s\n", cfg.Database)

	fmt.Println()
	fmt.Println("Project initialized. Next:")
	fmt.Println("  caustic run <pipeline.yaml> --dataset <dir>")
	return nil
}
