// Package dataset loads per-dataset directories: payload files named by
// convention, optional JSON sidecars, and a tag that keys output paths and
// aggregator rows.
//
// Payloads are referenced, not decoded. Pixel values load through the
// PixelReader collaborator so FITS decoding can live outside this module;
// the built-in reader handles the JSON fixtures used in tests.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"caustic/internal/logging"
)

// Kind discriminates the two directory layouts.
type Kind string

const (
	Imaging        Kind = "imaging"
	Interferometer Kind = "interferometer"
)

// payloadRoles lists the required payload files per kind, by role name.
// Each role resolves to <role>.fits or <role>.json, in that order.
var payloadRoles = map[Kind][]string{
	Imaging:        {"image", "noise_map", "psf"},
	Interferometer: {"visibilities", "noise_map", "uv_wavelengths"},
}

var payloadExts = []string{".fits", ".json"}

// ErrNotDataset marks a directory with neither an imaging nor an
// interferometer payload set.
var ErrNotDataset = errors.New("not a dataset directory")

// Mask is circular-mask metadata carried to analyses untouched.
type Mask struct {
	Radius     float64 `json:"radius"`
	PixelScale float64 `json:"pixel_scale"`
}

// Info is the optional info.json sidecar. Name overrides the dataset tag.
type Info struct {
	Name           string  `json:"name,omitempty"`
	PixelScale     float64 `json:"pixel_scale,omitempty"`
	MaskRadius     float64 `json:"mask_radius,omitempty"`
	RedshiftLens   float64 `json:"redshift_lens,omitempty"`
	RedshiftSource float64 `json:"redshift_source,omitempty"`
}

// Dataset is a validated dataset directory.
type Dataset struct {
	Dir  string
	Tag  string
	Kind Kind
	Mask Mask
	Info Info

	// Positions is nil when the directory has no positions.json.
	Positions Positions

	// PointSources is nil when the directory has no point_source_dict.json.
	PointSources map[string]PointSource

	files map[string]string
}

// Load validates the directory layout, reads sidecars, and resolves the tag.
// The tag is the directory base name unless info.json names the dataset.
func Load(dir string) (*Dataset, error) {
	timer := logging.StartTimer(logging.CategoryDataset, fmt.Sprintf("load %s", dir))
	defer timer.Stop()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving dataset directory %s: %w", dir, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dataset directory %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("dataset path %s is not a directory", dir)
	}

	kind, err := detectKind(abs)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		Dir:   abs,
		Kind:  kind,
		files: make(map[string]string, len(payloadRoles[kind])),
	}
	for _, role := range payloadRoles[kind] {
		path, ok := payloadPath(abs, role)
		if !ok {
			return nil, fmt.Errorf("%s dataset %s is missing its %s payload (%s.fits or %s.json)",
				kind, dir, role, role, role)
		}
		d.files[role] = path
	}

	if err := d.readSidecars(); err != nil {
		return nil, err
	}

	d.Tag = filepath.Base(abs)
	if d.Info.Name != "" {
		d.Tag = d.Info.Name
	}
	d.Mask = Mask{Radius: d.Info.MaskRadius, PixelScale: d.Info.PixelScale}

	logging.Dataset("loaded %s dataset %q from %s (%d positions, %d point sources)",
		d.Kind, d.Tag, d.Dir, len(d.Positions), len(d.PointSources))
	return d, nil
}

// detectKind requires exactly one of the two payload sets to be present.
func detectKind(dir string) (Kind, error) {
	_, imaging := payloadPath(dir, "image")
	_, interferometer := payloadPath(dir, "visibilities")
	switch {
	case imaging && interferometer:
		return "", fmt.Errorf("dataset directory %s has both image and visibilities payloads", dir)
	case imaging:
		return Imaging, nil
	case interferometer:
		return Interferometer, nil
	default:
		return "", fmt.Errorf("%w: %s has neither image.* nor visibilities.*", ErrNotDataset, dir)
	}
}

// payloadPath resolves a role to an existing file, preferring .fits.
func payloadPath(dir, role string) (string, bool) {
	for _, ext := range payloadExts {
		p := filepath.Join(dir, role+ext)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

func (d *Dataset) readSidecars() error {
	infoPath := filepath.Join(d.Dir, "info.json")
	if err := readJSONSidecar(infoPath, &d.Info); err != nil {
		return err
	}

	pos, err := LoadPositions(filepath.Join(d.Dir, "positions.json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	d.Positions = pos

	points, err := LoadPointSources(filepath.Join(d.Dir, "point_source_dict.json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	d.PointSources = points
	return nil
}

// HasPositions reports whether the directory shipped a positions.json.
func (d *Dataset) HasPositions() bool {
	return len(d.Positions) > 0
}

// File returns the payload path for a role ("image", "noise_map", ...).
func (d *Dataset) File(role string) (string, bool) {
	p, ok := d.files[role]
	return p, ok
}

// Roles returns the dataset's payload roles, sorted.
func (d *Dataset) Roles() []string {
	roles := make([]string, 0, len(d.files))
	for role := range d.files {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Pixels reads a payload's pixel values through the given reader.
func (d *Dataset) Pixels(r PixelReader, role string) ([][]float64, error) {
	path, ok := d.files[role]
	if !ok {
		return nil, fmt.Errorf("dataset %q has no %q payload", d.Tag, role)
	}
	logging.DatasetDebug("reading %s payload for dataset %q: %s", role, d.Tag, path)
	return r.ReadPixels(path)
}
