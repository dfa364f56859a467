package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caustic/internal/aggregate"
)

// dbCmd manages the results index
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the results index",
}

var dbSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index completed runs from the output tree",
	Long: `Walks the output root for completed run directories and upserts each
into the results index. Syncing is idempotent: the same tree syncs to the
same rows, and a re-fitted run replaces its previous row.`,
	RunE: handleDBSync,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the results index",
	RunE:  handleDBStats,
}

func init() {
	dbCmd.AddCommand(dbSyncCmd)
	dbCmd.AddCommand(dbStatsCmd)
	rootCmd.AddCommand(dbCmd)
}

func handleDBSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := aggregate.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Sync(cfg.OutputRoot)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d completed runs: %d synced, %d failed\n",
		stats.Scanned, stats.Synced, stats.Failed)
	if stats.Failed > 0 {
		fmt.Println("failed runs are logged under the store category; fix or remove them and sync again")
	}
	return nil
}

func handleDBStats(cmd *cobra.Command, args []string) error {
	db, err := openAggregate()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("database: %s\n", db.Path())
	fmt.Printf("fits: %d\n", stats.Fits)
	fmt.Printf("pipelines: %d\n", stats.Pipelines)
	fmt.Printf("datasets: %d\n", stats.Datasets)
	fmt.Printf("parameters: %d\n", stats.Parameters)
	return nil
}
