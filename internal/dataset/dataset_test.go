package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caustic/internal/dataset"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newDatasetDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func writeImagingPayloads(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, "image.json", `[[1.0, 2.0], [3.0, 4.0]]`)
	writeFile(t, dir, "noise_map.json", `[[0.1, 0.1], [0.1, 0.1]]`)
	writeFile(t, dir, "psf.json", `[[1.0]]`)
}

func TestLoad_Imaging(t *testing.T) {
	dir := newDatasetDir(t, "simple_sis")
	writeImagingPayloads(t, dir)

	d, err := dataset.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dataset.Imaging, d.Kind)
	assert.Equal(t, "simple_sis", d.Tag)
	assert.Equal(t, []string{"image", "noise_map", "psf"}, d.Roles())
	assert.False(t, d.HasPositions())

	path, ok := d.File("image")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(path, "image.json"))

	_, ok = d.File("visibilities")
	assert.False(t, ok)
}

func TestLoad_Interferometer(t *testing.T) {
	dir := newDatasetDir(t, "alma_band6")
	writeFile(t, dir, "visibilities.json", `[[1.0, 0.5]]`)
	writeFile(t, dir, "noise_map.json", `[[0.1, 0.1]]`)
	writeFile(t, dir, "uv_wavelengths.json", `[[100.0, 200.0]]`)

	d, err := dataset.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dataset.Interferometer, d.Kind)
	assert.Equal(t, []string{"noise_map", "uv_wavelengths", "visibilities"}, d.Roles())
}

func TestLoad_MissingPayload(t *testing.T) {
	dir := newDatasetDir(t, "partial")
	writeFile(t, dir, "image.json", `[[1.0]]`)
	writeFile(t, dir, "psf.json", `[[1.0]]`)

	_, err := dataset.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "noise_map")
}

func TestLoad_NotADataset(t *testing.T) {
	_, err := dataset.Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrNotDataset))

	_, err = dataset.Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, dataset.ErrNotDataset))
}

func TestLoad_AmbiguousKind(t *testing.T) {
	dir := newDatasetDir(t, "confused")
	writeImagingPayloads(t, dir)
	writeFile(t, dir, "visibilities.json", `[[1.0, 0.5]]`)
	writeFile(t, dir, "uv_wavelengths.json", `[[100.0, 200.0]]`)

	_, err := dataset.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both")
}

func TestLoad_PrefersFITSOverJSON(t *testing.T) {
	dir := newDatasetDir(t, "mixed")
	writeImagingPayloads(t, dir)
	// Payload presence is a stat, not a decode, so placeholder bytes do.
	writeFile(t, dir, "image.fits", "SIMPLE  =                    T")

	d, err := dataset.Load(dir)
	require.NoError(t, err)
	path, _ := d.File("image")
	assert.True(t, strings.HasSuffix(path, "image.fits"))
	path, _ = d.File("noise_map")
	assert.True(t, strings.HasSuffix(path, "noise_map.json"))
}

func TestLoad_InfoSidecar(t *testing.T) {
	dir := newDatasetDir(t, "dir_name")
	writeImagingPayloads(t, dir)
	writeFile(t, dir, "info.json", `{
		"name": "slacs_0008",
		"pixel_scale": 0.05,
		"mask_radius": 3.0,
		"redshift_lens": 0.5,
		"redshift_source": 1.2
	}`)

	d, err := dataset.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "slacs_0008", d.Tag)
	assert.Equal(t, dataset.Mask{Radius: 3.0, PixelScale: 0.05}, d.Mask)
	assert.Equal(t, 0.5, d.Info.RedshiftLens)
	assert.Equal(t, 1.2, d.Info.RedshiftSource)
}

func TestLoad_Positions(t *testing.T) {
	dir := newDatasetDir(t, "quad")
	writeImagingPayloads(t, dir)
	writeFile(t, dir, "positions.json", `[[1.0, 0.0], [-1.0, 0.0], [0.0, 1.2]]`)

	d, err := dataset.Load(dir)
	require.NoError(t, err)
	require.True(t, d.HasPositions())
	require.Len(t, d.Positions, 3)
	assert.InDelta(t, 2.0, d.Positions.MaxSeparation(), 1e-12)
}

func TestLoad_BadPositions(t *testing.T) {
	dir := newDatasetDir(t, "broken")
	writeImagingPayloads(t, dir)
	writeFile(t, dir, "positions.json", `[[1.0, 0.0], [0.5]]`)

	_, err := dataset.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinates")
}

func TestLoad_PointSources(t *testing.T) {
	dir := newDatasetDir(t, "quasar")
	writeImagingPayloads(t, dir)
	writeFile(t, dir, "point_source_dict.json", `{
		"point_0": {"positions": [[1.0, 0.0], [-1.0, 0.0]], "fluxes": [2.0, 2.5]}
	}`)

	d, err := dataset.Load(dir)
	require.NoError(t, err)
	require.Contains(t, d.PointSources, "point_0")
	assert.Len(t, d.PointSources["point_0"].Positions, 2)
	assert.Equal(t, []float64{2.0, 2.5}, d.PointSources["point_0"].Fluxes)
}

func TestLoad_BadPointSources(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"flux count mismatch", `{"point_0": {"positions": [[1.0, 0.0], [-1.0, 0.0]], "fluxes": [2.0]}}`, "fluxes"},
		{"no positions", `{"point_0": {"fluxes": [2.0]}}`, "no positions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := newDatasetDir(t, "quasar")
			writeImagingPayloads(t, dir)
			writeFile(t, dir, "point_source_dict.json", tc.content)

			_, err := dataset.Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDataset_Pixels(t *testing.T) {
	dir := newDatasetDir(t, "pix")
	writeImagingPayloads(t, dir)

	d, err := dataset.Load(dir)
	require.NoError(t, err)

	rows, err := d.Pixels(dataset.JSONPixelReader{}, "image")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1.0, 2.0}, {3.0, 4.0}}, rows)

	_, err = d.Pixels(dataset.JSONPixelReader{}, "visibilities")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "visibilities")
}

func TestJSONPixelReader_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ragged.json", `[[1.0, 2.0], [3.0]]`)
	writeFile(t, dir, "empty.json", `[]`)
	writeFile(t, dir, "image.fits", "binary")

	r := dataset.JSONPixelReader{}

	_, err := r.ReadPixels(filepath.Join(dir, "ragged.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ragged")

	_, err = r.ReadPixels(filepath.Join(dir, "empty.json"))
	require.Error(t, err)

	_, err = r.ReadPixels(filepath.Join(dir, "image.fits"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".fits")
}
