package aggregate

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"caustic/internal/logging"
	"caustic/internal/nonlinear"
)

// SyncStats reports what a sync pass did.
type SyncStats struct {
	Scanned int // completed run directories found
	Synced  int // rows upserted
	Failed  int // directories that would not load
}

// Sync walks outputRoot for completed run directories and upserts each into
// the index. Directories that fail to load are logged and skipped, so a
// single corrupt run never blocks the rest of the tree. Syncing the same
// tree twice converges on the same rows.
func (d *DB) Sync(outputRoot string) (*SyncStats, error) {
	if _, err := os.Stat(outputRoot); err != nil {
		return nil, fmt.Errorf("output root %s: %w", outputRoot, err)
	}

	timer := logging.StartTimer(logging.CategoryStore, "aggregate sync")
	stats := &SyncStats{}
	err := filepath.WalkDir(outputRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() != nonlinear.CompletedMarker {
			return nil
		}
		dir := filepath.Dir(path)
		stats.Scanned++
		if syncErr := d.syncRun(dir); syncErr != nil {
			logging.Get(logging.CategoryStore).Warn("Sync skipped %s: %v", dir, syncErr)
			stats.Failed++
			return nil
		}
		stats.Synced++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", outputRoot, err)
	}

	timer.Stop()
	logging.Store("Sync complete: scanned=%d synced=%d failed=%d", stats.Scanned, stats.Synced, stats.Failed)
	return stats, nil
}

// syncRun upserts one completed run directory.
func (d *DB) syncRun(dir string) error {
	info, err := nonlinear.LoadRunInfo(dir)
	if err != nil {
		return err
	}
	res, err := nonlinear.Load(dir)
	if err != nil {
		return err
	}
	// Hash the model as fitted, not the reseeded one Load builds for the
	// next step.
	spec, err := nonlinear.LoadModel(dir)
	if err != nil {
		return err
	}

	marker, err := os.Stat(filepath.Join(dir, nonlinear.CompletedMarker))
	if err != nil {
		return err
	}
	completedAt := marker.ModTime().UTC().Format(time.RFC3339)

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT INTO fits (id, pipeline, step, dataset_tag, model_hash,
	                  max_log_likelihood, log_evidence, free_parameters,
	                  completed_at, output_dir, info_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		pipeline = excluded.pipeline,
		step = excluded.step,
		dataset_tag = excluded.dataset_tag,
		model_hash = excluded.model_hash,
		max_log_likelihood = excluded.max_log_likelihood,
		log_evidence = excluded.log_evidence,
		free_parameters = excluded.free_parameters,
		completed_at = excluded.completed_at,
		output_dir = excluded.output_dir,
		info_json = excluded.info_json`,
		info.Identifier,
		info.Settings.PathPrefix,
		info.Name,
		info.Dataset,
		nonlinear.ModelHash(spec),
		res.MaxLogLikelihood,
		nullableFloat(res.LogEvidence),
		res.Samples.Columns(),
		completedAt,
		dir,
		string(infoJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fit %s: %w", info.Identifier, err)
	}

	if _, err := tx.Exec("DELETE FROM parameters WHERE fit_id = ?", info.Identifier); err != nil {
		return fmt.Errorf("failed to clear parameters for %s: %w", info.Identifier, err)
	}
	paths := res.Samples.Paths()
	means := res.Samples.Means()
	stddevs := res.Samples.StdDevs()
	for i, path := range paths {
		if _, err := tx.Exec(
			"INSERT INTO parameters (fit_id, path, value, stddev) VALUES (?, ?, ?, ?)",
			info.Identifier, path, means[i], nullableFloat(stddevs[i]),
		); err != nil {
			return fmt.Errorf("failed to insert parameter %s: %w", path, err)
		}
	}
	return tx.Commit()
}

// nullableFloat maps NaN to NULL so unreported quantities stay queryable.
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
