package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PixelReader decodes a payload file into rows of pixel values. Implementations
// for binary formats (FITS in particular) are supplied by callers; this
// package only ships the JSON reader.
type PixelReader interface {
	ReadPixels(path string) ([][]float64, error)
}

// JSONPixelReader reads payloads stored as a JSON 2D array of numbers, the
// format test fixtures use.
type JSONPixelReader struct{}

func (JSONPixelReader) ReadPixels(path string) ([][]float64, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, fmt.Errorf("json pixel reader cannot decode %s files (%s)", ext, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pixels from %s: %w", path, err)
	}
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing pixels from %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("pixel payload %s is empty", path)
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("pixel payload %s is ragged: row %d has %d values, want %d",
				path, i, len(row), width)
		}
	}
	return rows, nil
}
