package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"caustic/internal/analysis"
	"caustic/internal/chain"
	"caustic/internal/config"
	"caustic/internal/dataset"
	"caustic/internal/galaxy"
	"caustic/internal/logging"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
	"caustic/internal/prior"
	"caustic/internal/profiles"
)

// Compile turns the document into chain steps. Component types, parameter
// paths, engine and sampler names are all resolved now, so a broken
// document fails before anything runs; result references resolve when each
// step builds, against the history the runner threads through.
//
// The dataset and prior library may be nil. A nil config compiles against
// the defaults.
func (d *Document) Compile(cfg *config.Config, ds *dataset.Dataset, lib *prior.Library) ([]chain.Step, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	timer := logging.StartTimer(logging.CategoryPipeline, fmt.Sprintf("compile %s", d.Name))
	defer timer.Stop()

	steps := make([]chain.Step, 0, len(d.Steps))
	for _, sp := range d.Steps {
		if err := d.checkStep(sp, cfg, ds, lib); err != nil {
			return nil, fmt.Errorf("step %s: %w", sp.Name, err)
		}
		steps = append(steps, chain.Step{
			Name:  sp.Name,
			Build: d.buildFunc(sp, cfg, ds, lib),
		})
	}

	logging.Pipeline("compiled pipeline %q: %d steps", d.Name, len(d.Steps))
	return steps, nil
}

// checkStep dry-builds the step's static parts. Takes and thresholds need
// run-time results and are skipped, but their target paths, the engine and
// the sampler are all resolvable without one.
func (d *Document) checkStep(sp StepSpec, cfg *config.Config, ds *dataset.Dataset, lib *prior.Library) error {
	spec, err := buildSpec(sp, lib)
	if err != nil {
		return err
	}
	for _, take := range sp.Takes {
		if !hasSubtree(spec, take.Target()) {
			return fmt.Errorf("take target %s is not in the model", take.Target())
		}
	}
	if err := shapeSpec(spec, sp); err != nil {
		return err
	}

	engine := sp.Settings.Engine
	if engine == "" {
		engine = cfg.Engine
	}
	if _, err := analysis.New(engine, ds, spec); err != nil {
		return err
	}
	if _, err := chain.NewSearch(sp.Settings.Sampler); err != nil {
		return err
	}

	logging.PipelineDebug("step %s: %d galaxies, %d takes, %d free parameters before takes",
		sp.Name, len(sp.Model), len(sp.Takes), spec.PriorCount())
	return nil
}

// buildFunc closes the step over the registry and defaults. Every
// invocation builds a fresh spec, so a chain can run the same compiled
// steps more than once.
func (d *Document) buildFunc(sp StepSpec, cfg *config.Config, ds *dataset.Dataset, lib *prior.Library) chain.BuildFunc {
	return func(ctx context.Context, h *chain.History) (*model.Spec, nonlinear.Analysis, nonlinear.Settings, error) {
		var none nonlinear.Settings

		spec, err := buildSpec(sp, lib)
		if err != nil {
			return nil, nil, none, err
		}

		for _, take := range sp.Takes {
			src, ok := h.Result(take.From.Step)
			if !ok {
				return nil, nil, none, fmt.Errorf("take from %q: %w", take.From.Step, ErrUnknownStep)
			}
			switch take.From.Take {
			case TakeModel:
				err = spec.TakeModel(src.Result.Model, take.Target(), take.From.Path)
			case TakeInstance:
				err = spec.TakeInstance(src.Result.Instance, take.Target(), take.From.Path)
			default:
				err = fmt.Errorf("unsupported take kind: %q", take.From.Take)
			}
			if err != nil {
				return nil, nil, none, fmt.Errorf("take from %s: %w", take.From.Step, err)
			}
		}

		if err := shapeSpec(spec, sp); err != nil {
			return nil, nil, none, err
		}

		set, err := sp.Settings.build(d.Name, cfg, ds, h)
		if err != nil {
			return nil, nil, none, err
		}

		engine, err := analysis.New(set.Engine, ds, spec)
		if err != nil {
			return nil, nil, none, err
		}
		return spec, engine, set, nil
	}
}

// Target returns the destination subtree of a take.
func (t TakeSpec) Target() string {
	if t.At != "" {
		return t.At
	}
	return t.From.Path
}

// buildSpec composes the step's galaxies and applies prior overrides.
// Galaxies land under galaxies.<name>; defaults come from the components,
// the library replaces them leaf by leaf. Names are walked sorted so error
// order is stable.
func buildSpec(sp StepSpec, lib *prior.Library) (*model.Spec, error) {
	names := make([]string, 0, len(sp.Model))
	for name := range sp.Model {
		names = append(names, name)
	}
	sort.Strings(names)

	spec := model.New()
	for _, name := range names {
		g := sp.Model[name]
		gal := galaxy.New(g.Redshift)
		comps := make([]string, 0, len(g.Components))
		for comp := range g.Components {
			comps = append(comps, comp)
		}
		sort.Strings(comps)
		for _, comp := range comps {
			c, err := profiles.New(g.Components[comp])
			if err != nil {
				return nil, fmt.Errorf("galaxy %s component %s: %w", name, comp, err)
			}
			gal.Set(comp, c)
		}
		if err := spec.Add("galaxies."+name, gal); err != nil {
			return nil, fmt.Errorf("galaxy %s: %w", name, err)
		}
	}
	if err := spec.ApplyPriorLibrary(lib); err != nil {
		return nil, err
	}
	return spec, nil
}

// shapeSpec applies the step's fixes and links, in that order, after any
// takes have landed.
func shapeSpec(spec *model.Spec, sp StepSpec) error {
	paths := make([]string, 0, len(sp.Fix))
	for path := range sp.Fix {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := spec.Fix(path, sp.Fix[path]); err != nil {
			return err
		}
	}
	for _, pair := range sp.Links {
		if err := spec.Link(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// build layers the step's settings over the project defaults and resolves
// the positions threshold against the history.
func (s SettingsSpec) build(pipeline string, cfg *config.Config, ds *dataset.Dataset, h *chain.History) (nonlinear.Settings, error) {
	set := nonlinear.Settings{
		PathPrefix: pipeline,
		OutputRoot: cfg.OutputRoot,
		Engine:     cfg.Engine,
		Sampler:    cfg.Search.Sampler,
		Seed:       cfg.Search.Seed,
		Cores:      cfg.Cores,
		Draws:      cfg.Search.Draws,
		Walkers:    cfg.Search.Walkers,
		Steps:      cfg.Search.Steps,
		StretchA:   cfg.Search.StretchA,
		BurnIn:     cfg.Search.BurnIn,
		LivePoints: cfg.Search.LivePoints,
	}
	if ds != nil {
		set.DatasetTag = ds.Tag
	}

	if s.Engine != "" {
		set.Engine = s.Engine
	}
	if s.Sampler != "" {
		set.Sampler = s.Sampler
	}
	if s.Seed != nil {
		set.Seed = *s.Seed
	}
	if s.Draws > 0 {
		set.Draws = s.Draws
	}
	if s.Walkers > 0 {
		set.Walkers = s.Walkers
	}
	if s.Steps > 0 {
		set.Steps = s.Steps
	}
	if s.StretchA > 0 {
		set.StretchA = s.StretchA
	}
	if s.BurnIn > 0 {
		set.BurnIn = s.BurnIn
	}
	if s.LivePoints > 0 {
		set.LivePoints = s.LivePoints
	}

	if th := s.PositionsThreshold; th != nil {
		src, ok := h.Result(th.FromStep)
		if !ok {
			return set, fmt.Errorf("positions threshold from %q: %w", th.FromStep, ErrUnknownStep)
		}
		factor := th.Factor
		if factor <= 0 {
			factor = cfg.Positions.Factor
		}
		floor := th.Floor
		if floor <= 0 {
			floor = cfg.Positions.Floor
		}
		set.PositionsThreshold = chain.PositionsThreshold(src.Result, factor, floor)
	}
	return set, nil
}

// hasSubtree reports whether path is a leaf or a composite of the spec.
func hasSubtree(spec *model.Spec, path string) bool {
	if _, ok := spec.At(path); ok {
		return true
	}
	prefix := path + "."
	for _, p := range spec.Paths() {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
