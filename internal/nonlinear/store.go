package nonlinear

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"caustic/internal/logging"
	"caustic/internal/model"
)

// Files every run directory carries. The completion marker is written last:
// a directory is complete only when every other file already is.
const (
	SearchFile      = "search.yaml"
	ModelFile       = "model.yaml"
	SamplesFile     = "samples.csv"
	InfoFile        = "model.info"
	DerivedFile     = "derived.json"
	CompletedMarker = ".completed"
	HeartbeatFile   = "heartbeat"
)

// DefaultHeartbeatInterval spaces heartbeat touches during a run.
const DefaultHeartbeatInterval = 10 * time.Second

// ErrIncomplete marks a run directory without a completion marker.
var ErrIncomplete = errors.New("search output incomplete")

var errNoOutputRoot = errors.New("settings carry no output root")

// RunInfo is the provenance block stored in search.yaml.
type RunInfo struct {
	Name       string   `yaml:"name"`
	Search     string   `yaml:"search"`
	Identifier string   `yaml:"identifier"`
	Dataset    string   `yaml:"dataset,omitempty"`
	Settings   Settings `yaml:"settings"`
}

// derivedFile is the derived.json schema. LogEvidence is a pointer so an
// engine that reports none omits the key instead of encoding NaN.
type derivedFile struct {
	LogEvidence *float64           `json:"log_evidence,omitempty"`
	Quantities  map[string]float64 `json:"quantities,omitempty"`
}

// Store manages one run's output directory.
type Store struct {
	dir      string
	lastBeat time.Time
}

// NewStore returns a store over a run directory; nothing touches disk until
// Begin.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the run directory.
func (s *Store) Dir() string { return s.dir }

// Completed reports whether the directory holds a completion marker.
func (s *Store) Completed() bool {
	_, err := os.Stat(filepath.Join(s.dir, CompletedMarker))
	return err == nil
}

// Begin creates the directory and writes the provenance files: search.yaml,
// model.yaml and the initial model.info. A stale completion marker from a
// removed run is cleared so a restarted run cannot look complete early.
func (s *Store) Begin(spec *model.Spec, searchName, identifier string, set Settings) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	_ = os.Remove(filepath.Join(s.dir, CompletedMarker))

	info := RunInfo{
		Name:       set.Name,
		Search:     searchName,
		Identifier: identifier,
		Dataset:    set.DatasetTag,
		Settings:   set,
	}
	data, err := yaml.Marshal(&info)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", SearchFile, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, SearchFile), data, 0644); err != nil {
		return err
	}

	snap, err := yaml.Marshal(spec.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ModelFile, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, ModelFile), snap, 0644); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(s.dir, InfoFile), []byte(spec.Info()), 0644); err != nil {
		return err
	}

	if err := s.TouchHeartbeat(); err != nil {
		return err
	}

	logging.Store("run %s (%s) began in %s", set.Name, identifier, s.dir)
	return nil
}

// TouchHeartbeat rewrites the heartbeat file with the current time.
func (s *Store) TouchHeartbeat() error {
	s.lastBeat = time.Now()
	stamp := s.lastBeat.UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(filepath.Join(s.dir, HeartbeatFile), []byte(stamp), 0644)
}

// Heartbeat touches the heartbeat file when interval has passed since the
// last touch. Watchers read its freshness to tell live runs from dead ones,
// so sampling loops call this every iteration and let the interval gate the
// writes.
func (s *Store) Heartbeat(interval time.Duration) error {
	if time.Since(s.lastBeat) < interval {
		return nil
	}
	return s.TouchHeartbeat()
}

// Complete writes derived.json, appends the result summary to model.info,
// and then writes the completion marker.
func (s *Store) Complete(res *Result) error {
	df := derivedFile{Quantities: res.Derived}
	if !math.IsNaN(res.LogEvidence) {
		logZ := res.LogEvidence
		df.LogEvidence = &logZ
	}
	data, err := json.MarshalIndent(&df, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", DerivedFile, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, DerivedFile), data, 0644); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, InfoFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString("\n" + res.Summary()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(filepath.Join(s.dir, CompletedMarker), []byte(stamp), 0644); err != nil {
		return err
	}

	logging.Store("run completed in %s (%d samples, max logL %.4f)",
		s.dir, res.Samples.Len(), res.MaxLogLikelihood)
	return nil
}

// SamplesWriter streams samples to samples.csv as the engine produces them,
// so watchers can tail a live run.
type SamplesWriter struct {
	f       *os.File
	w       *csv.Writer
	columns int
	n       int
	closed  bool
}

// SamplesWriter creates samples.csv with a header of the column paths
// followed by log_likelihood and weight.
func (s *Store) SamplesWriter(paths []string) (*SamplesWriter, error) {
	f, err := os.Create(filepath.Join(s.dir, SamplesFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", SamplesFile, err)
	}
	w := csv.NewWriter(f)
	header := append(append(make([]string, 0, len(paths)+2), paths...), "log_likelihood", "weight")
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &SamplesWriter{f: f, w: w, columns: len(paths)}, nil
}

// Append writes one sample row.
func (w *SamplesWriter) Append(vector []float64, logL, weight float64) error {
	if len(vector) != w.columns {
		return fmt.Errorf("sample has %d values, header has %d columns", len(vector), w.columns)
	}
	rec := make([]string, 0, w.columns+2)
	for _, v := range vector {
		rec = append(rec, formatFloat(v))
	}
	rec = append(rec, formatFloat(logL), formatFloat(weight))
	w.n++
	return w.w.Write(rec)
}

// Count returns the number of rows written so far.
func (w *SamplesWriter) Count() int { return w.n }

// Flush pushes buffered rows to disk mid-run.
func (w *SamplesWriter) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Close flushes and closes the file. Closing twice is a no-op so callers
// can defer it and still check the error on the success path.
func (w *SamplesWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Load reconstructs a completed run's result from its directory: the model
// snapshot rebuilds the spec, samples.csv rebuilds the sample set, and
// derived.json restores evidence and derived scalars. Returns ErrIncomplete
// (wrapped) when the completion marker is missing.
func Load(dir string) (*Result, error) {
	st := NewStore(dir)
	if !st.Completed() {
		return nil, fmt.Errorf("%w: %s has no %s", ErrIncomplete, dir, CompletedMarker)
	}

	spec, err := LoadModel(dir)
	if err != nil {
		return nil, err
	}

	samples, err := loadSamples(filepath.Join(dir, SamplesFile))
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, DerivedFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", DerivedFile, err)
	}
	var df derivedFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DerivedFile, err)
	}
	logZ := math.NaN()
	if df.LogEvidence != nil {
		logZ = *df.LogEvidence
	}

	res, err := NewResult(spec, samples, df.Quantities, logZ)
	if err != nil {
		return nil, fmt.Errorf("rebuilding result from %s: %w", dir, err)
	}
	logging.Store("loaded completed run from %s (%d samples)", dir, samples.Len())
	return res, nil
}

// LoadModel rebuilds the fitted spec from a run directory's model snapshot.
func LoadModel(dir string) (*model.Spec, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ModelFile, err)
	}
	var snap model.Snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ModelFile, err)
	}
	return model.FromSnapshot(&snap)
}

// LoadRunInfo reads the provenance block from a run directory.
func LoadRunInfo(dir string) (*RunInfo, error) {
	raw, err := os.ReadFile(filepath.Join(dir, SearchFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", SearchFile, err)
	}
	var info RunInfo
	if err := yaml.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", SearchFile, err)
	}
	return &info, nil
}

func loadSamples(path string) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", SamplesFile, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", SamplesFile, err)
	}
	if len(header) < 2 || header[len(header)-2] != "log_likelihood" || header[len(header)-1] != "weight" {
		return nil, fmt.Errorf("%s has an unexpected header", SamplesFile)
	}
	columns := len(header) - 2

	samples := NewSamples(header[:columns])
	vec := make([]float64, columns)
	for row := 1; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s row %d: %w", SamplesFile, row, err)
		}
		if len(rec) != columns+2 {
			return nil, fmt.Errorf("%s row %d has %d fields, want %d", SamplesFile, row, len(rec), columns+2)
		}
		for i := 0; i < columns; i++ {
			if vec[i], err = parseFloat(rec[i]); err != nil {
				return nil, fmt.Errorf("parsing %s row %d: %w", SamplesFile, row, err)
			}
		}
		logL, err := parseFloat(rec[columns])
		if err != nil {
			return nil, fmt.Errorf("parsing %s row %d: %w", SamplesFile, row, err)
		}
		weight, err := parseFloat(rec[columns+1])
		if err != nil {
			return nil, fmt.Errorf("parsing %s row %d: %w", SamplesFile, row, err)
		}
		samples.Append(vec, logL, weight)
	}
	return samples, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
