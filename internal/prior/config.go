package prior

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Prior type identifiers used in config files.
const (
	TypeUniform    = "uniform"
	TypeLogUniform = "log_uniform"
	TypeGaussian   = "gaussian"
)

// Config is the serializable form of a prior, as it appears in
// config/priors/*.yaml and in saved model snapshots.
type Config struct {
	Type  string  `yaml:"type" json:"type"`
	Lower float64 `yaml:"lower,omitempty" json:"lower,omitempty"`
	Upper float64 `yaml:"upper,omitempty" json:"upper,omitempty"`
	Mu    float64 `yaml:"mu,omitempty" json:"mu,omitempty"`
	Sigma float64 `yaml:"sigma,omitempty" json:"sigma,omitempty"`
}

// Build validates the config and constructs the prior it describes.
func (c Config) Build() (Prior, error) {
	switch c.Type {
	case TypeUniform:
		if c.Upper <= c.Lower {
			return nil, fmt.Errorf("uniform prior requires upper > lower (got [%g, %g])", c.Lower, c.Upper)
		}
		return NewUniform(c.Lower, c.Upper), nil

	case TypeLogUniform:
		if c.Lower <= 0 {
			return nil, fmt.Errorf("log_uniform prior requires lower > 0 (got %g)", c.Lower)
		}
		if c.Upper <= c.Lower {
			return nil, fmt.Errorf("log_uniform prior requires upper > lower (got [%g, %g])", c.Lower, c.Upper)
		}
		return NewLogUniform(c.Lower, c.Upper), nil

	case TypeGaussian:
		if c.Sigma <= 0 {
			return nil, fmt.Errorf("gaussian prior requires sigma > 0 (got %g)", c.Sigma)
		}
		if c.Lower != 0 || c.Upper != 0 {
			if c.Upper <= c.Lower {
				return nil, fmt.Errorf("gaussian prior limits require upper > lower (got [%g, %g])", c.Lower, c.Upper)
			}
			return NewGaussianLimited(c.Mu, c.Sigma, c.Lower, c.Upper), nil
		}
		return NewGaussian(c.Mu, c.Sigma), nil

	default:
		return nil, fmt.Errorf("unknown prior type: %q", c.Type)
	}
}

// Library holds prior overrides loaded from a config directory, keyed by
// component type name ("light.Sersic") then leaf path ("centre_0").
// Profiles ship compiled-in defaults; a library entry replaces the default
// for that one leaf without touching the rest of the component.
type Library struct {
	entries map[string]map[string]Config
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{entries: make(map[string]map[string]Config)}
}

// LoadLibrary reads every *.yaml file in dir and merges them into one
// library. Files are applied in name order, so a later file overrides
// earlier entries leaf by leaf. A missing directory yields an empty library.
func LoadLibrary(dir string) (*Library, error) {
	lib := NewLibrary()

	names, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan prior directory: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prior file %s: %w", filepath.Base(name), err)
		}

		var file map[string]map[string]Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse prior file %s: %w", filepath.Base(name), err)
		}

		for typeName, leaves := range file {
			for leaf, cfg := range leaves {
				// Validate eagerly so a broken file fails at load, not mid-fit
				if _, err := cfg.Build(); err != nil {
					return nil, fmt.Errorf("%s: %s.%s: %w", filepath.Base(name), typeName, leaf, err)
				}
				lib.Set(typeName, leaf, cfg)
			}
		}
	}

	return lib, nil
}

// Set registers an override for one leaf of a component type.
func (l *Library) Set(typeName, leaf string, cfg Config) {
	if l.entries == nil {
		l.entries = make(map[string]map[string]Config)
	}
	leaves, ok := l.entries[typeName]
	if !ok {
		leaves = make(map[string]Config)
		l.entries[typeName] = leaves
	}
	leaves[leaf] = cfg
}

// Lookup returns the override for a component type's leaf, if present.
func (l *Library) Lookup(typeName, leaf string) (Config, bool) {
	if l == nil || l.entries == nil {
		return Config{}, false
	}
	leaves, ok := l.entries[typeName]
	if !ok {
		return Config{}, false
	}
	cfg, ok := leaves[leaf]
	return cfg, ok
}

// Types returns the component type names with overrides, sorted.
func (l *Library) Types() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the library's entries for the given component types to a
// single YAML file. Used by workspace init to materialize editable defaults.
func (l *Library) Save(path string, typeNames ...string) error {
	out := make(map[string]map[string]Config)
	if len(typeNames) == 0 {
		typeNames = l.Types()
	}
	for _, name := range typeNames {
		if leaves, ok := l.entries[name]; ok {
			out[name] = leaves
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal prior library: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create prior directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prior file: %w", err)
	}
	return nil
}
