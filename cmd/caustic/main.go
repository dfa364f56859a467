package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"caustic/internal/config"
	"caustic/internal/logging"
)

// version is overridden by release builds via -ldflags.
var version = "0.4.0"

// configFileName is the project configuration file at the workspace root.
const configFileName = "caustic.yaml"

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "caustic",
	Short: "caustic - chained strong gravitational lens modeling",
	Long: `caustic fits strong gravitational lens models by chaining non-linear
searches: each step fits a model seeded from the posteriors of the steps
before it, so simple fits guide complex ones.

Pipelines are YAML documents (caustic run) or Go recipes interpreted at
runtime (caustic recipe run). Every search writes a resumable output
directory keyed by a deterministic identifier; finished fits are indexed
into SQLite for querying (caustic results, caustic db) and live runs can
be followed from a terminal dashboard (caustic watch).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg := zap.NewProductionConfig()
		if verbose {
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = logCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Category file logging switches on when the workspace carries a
		// debug-enabled .caustic/config.json.
		if root, rerr := config.FindWorkspaceRoot(); rerr == nil {
			if lerr := logging.Initialize(root); lerr != nil {
				logger.Warn("category logging unavailable", zap.Error(lerr))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the caustic version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("caustic %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to caustic.yaml (default: workspace root)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the project configuration: --config when given, otherwise
// caustic.yaml at the workspace root. A missing file yields defaults, so
// commands work before caustic init. Relative output, database and prior
// paths anchor at the workspace root so commands behave the same from any
// subdirectory.
func loadConfig() (*config.Config, error) {
	root, err := config.FindWorkspaceRoot()
	if err != nil {
		return nil, err
	}

	path := configPath
	if path == "" {
		path = filepath.Join(root, configFileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.OutputRoot = anchorPath(root, cfg.OutputRoot)
	cfg.Database = anchorPath(root, cfg.Database)
	cfg.Priors.Dir = anchorPath(root, cfg.Priors.Dir)
	return cfg, nil
}

func anchorPath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
