package aggregate

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"
)

// Fit is one indexed run. LogEvidence is NaN when the engine reported none.
type Fit struct {
	ID               string
	Pipeline         string
	Step             string
	DatasetTag       string
	ModelHash        string
	MaxLogLikelihood float64
	LogEvidence      float64
	FreeParameters   int
	CompletedAt      time.Time
	OutputDir        string
	InfoJSON         string
}

// Parameter is one posterior summary row.
type Parameter struct {
	FitID  string
	Path   string
	Value  float64
	StdDev float64
}

// Filters narrows List. Zero fields match everything.
type Filters struct {
	Pipeline   string
	Step       string
	DatasetTag string
	Limit      int
}

// Stats summarizes the index.
type Stats struct {
	Fits       int
	Datasets   int
	Pipelines  int
	Parameters int
}

const fitColumns = `id, pipeline, step, dataset_tag, model_hash,
	max_log_likelihood, log_evidence, free_parameters, completed_at,
	output_dir, info_json`

// List returns fits matching the filters, most recently completed first.
func (d *DB) List(f Filters) ([]Fit, error) {
	var where []string
	var args []interface{}
	if f.Pipeline != "" {
		where = append(where, "pipeline = ?")
		args = append(args, f.Pipeline)
	}
	if f.Step != "" {
		where = append(where, "step = ?")
		args = append(args, f.Step)
	}
	if f.DatasetTag != "" {
		where = append(where, "dataset_tag = ?")
		args = append(args, f.DatasetTag)
	}

	query := "SELECT " + fitColumns + " FROM fits"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY completed_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fits: %w", err)
	}
	defer rows.Close()

	var fits []Fit
	for rows.Next() {
		fit, err := scanFit(rows)
		if err != nil {
			return nil, err
		}
		fits = append(fits, fit)
	}
	return fits, rows.Err()
}

// Best returns the fit with the highest maximum log likelihood for a
// dataset, or for the whole index when tag is empty.
func (d *DB) Best(datasetTag string) (*Fit, error) {
	query := "SELECT " + fitColumns + " FROM fits"
	var args []interface{}
	if datasetTag != "" {
		query += " WHERE dataset_tag = ?"
		args = append(args, datasetTag)
	}
	query += " ORDER BY max_log_likelihood DESC, id LIMIT 1"

	row := d.db.QueryRow(query, args...)
	fit, err := scanFit(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fit, nil
}

// Get returns the fit with the given identifier.
func (d *DB) Get(id string) (*Fit, error) {
	row := d.db.QueryRow("SELECT "+fitColumns+" FROM fits WHERE id = ?", id)
	fit, err := scanFit(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fit, nil
}

// Parameters returns the posterior summary rows of a fit, sorted by path.
func (d *DB) Parameters(fitID string) ([]Parameter, error) {
	rows, err := d.db.Query(
		"SELECT fit_id, path, value, stddev FROM parameters WHERE fit_id = ? ORDER BY path", fitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var params []Parameter
	for rows.Next() {
		var p Parameter
		var stddev sql.NullFloat64
		if err := rows.Scan(&p.FitID, &p.Path, &p.Value, &stddev); err != nil {
			return nil, err
		}
		p.StdDev = nullFloatValue(stddev)
		params = append(params, p)
	}
	return params, rows.Err()
}

// Stats counts what the index holds.
func (d *DB) Stats() (*Stats, error) {
	s := &Stats{}
	row := d.db.QueryRow(`
	SELECT COUNT(*),
	       COUNT(DISTINCT dataset_tag),
	       COUNT(DISTINCT pipeline)
	FROM fits`)
	if err := row.Scan(&s.Fits, &s.Datasets, &s.Pipelines); err != nil {
		return nil, fmt.Errorf("failed to count fits: %w", err)
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM parameters").Scan(&s.Parameters); err != nil {
		return nil, fmt.Errorf("failed to count parameters: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFit(row rowScanner) (Fit, error) {
	var fit Fit
	var logEvidence sql.NullFloat64
	var completedAt string
	if err := row.Scan(
		&fit.ID, &fit.Pipeline, &fit.Step, &fit.DatasetTag, &fit.ModelHash,
		&fit.MaxLogLikelihood, &logEvidence, &fit.FreeParameters,
		&completedAt, &fit.OutputDir, &fit.InfoJSON,
	); err != nil {
		return Fit{}, err
	}
	fit.LogEvidence = nullFloatValue(logEvidence)
	if ts, err := time.Parse(time.RFC3339, completedAt); err == nil {
		fit.CompletedAt = ts
	}
	return fit, nil
}

func nullFloatValue(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
