package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"caustic/internal/chain"
	"caustic/internal/config"
	"caustic/internal/dataset"
	"caustic/internal/pipeline"
	"caustic/internal/prior"
)

var (
	runDataset string
	runCores   int
	runOutput  string
	runDryRun  bool
)

// runCmd executes a pipeline document
var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Compile and execute a pipeline",
	Long: `Compiles a pipeline document and runs its steps in order. Each step's
search writes a resumable output directory keyed by model, settings and
dataset; re-running a pipeline loads completed steps instead of fitting
them again.

Example:
  caustic run pipelines/slacs.yaml --dataset data/slacs0008
  caustic run pipelines/slacs.yaml --dataset data/slacs0008 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: handleRun,
}

func init() {
	runCmd.Flags().StringVar(&runDataset, "dataset", "", "Dataset directory to fit")
	runCmd.Flags().IntVar(&runCores, "cores", 0, "Worker count override")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Output root override")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the compiled plan without running")

	rootCmd.AddCommand(runCmd)
}

func handleRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)

	doc, err := pipeline.Load(args[0])
	if err != nil {
		return err
	}

	ds, err := loadRunDataset()
	if err != nil {
		return err
	}

	return executePipeline(cfg, doc, ds)
}

// applyRunOverrides folds the run flags into the loaded config.
func applyRunOverrides(cfg *config.Config) {
	if runCores > 0 {
		cfg.Cores = runCores
	}
	if runOutput != "" {
		cfg.OutputRoot = runOutput
	}
}

func loadRunDataset() (*dataset.Dataset, error) {
	if runDataset == "" {
		return nil, nil
	}
	return dataset.Load(runDataset)
}

// executePipeline compiles the document and runs its steps, streaming
// progress to stdout. Compilation errors surface before anything touches
// the output tree. Shared with caustic recipe run.
func executePipeline(cfg *config.Config, doc *pipeline.Document, ds *dataset.Dataset) error {
	lib, err := prior.LoadLibrary(cfg.Priors.Dir)
	if err != nil {
		return err
	}

	steps, err := doc.Compile(cfg, ds, lib)
	if err != nil {
		return err
	}

	if runDryRun {
		printPlan(doc, cfg, ds)
		return nil
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	events := make(chan chain.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			printEvent(ev)
		}
	}()

	runner := &chain.Runner{Events: events}
	history, err := runner.Run(ctx, steps)
	close(events)
	<-done

	if err != nil {
		var stepErr *chain.StepError
		if errors.As(err, &stepErr) && errors.Is(err, context.Canceled) {
			fmt.Printf("\nInterrupted during step %s. Completed steps are kept; re-run to resume.\n", stepErr.Step)
		}
		return err
	}

	fmt.Printf("\npipeline %s: %d/%d steps completed\n", doc.Name, history.Len(), len(steps))
	if last, ok := history.Last(); ok {
		fmt.Printf("final step %s: max log likelihood %.4f\n", last.Name, last.Result.MaxLogLikelihood)
		fmt.Printf("output: %s\n", last.OutputDir)
	}
	return nil
}

func printEvent(ev chain.Event) {
	switch ev.Kind {
	case chain.EventStarted:
		fmt.Printf("step %s: started\n", ev.Step)
	case chain.EventResumed:
		fmt.Printf("step %s: reusing completed output\n", ev.Step)
	case chain.EventCompleted:
		fmt.Printf("step %s: completed (%s)\n", ev.Step, ev.OutputDir)
	case chain.EventFailed:
		fmt.Printf("step %s: failed: %v\n", ev.Step, ev.Err)
	}
}

// printPlan renders the compiled execution plan without running it.
func printPlan(doc *pipeline.Document, cfg *config.Config, ds *dataset.Dataset) {
	fmt.Printf("pipeline %s: %d steps\n", doc.Name, len(doc.Steps))
	if ds != nil {
		fmt.Printf("dataset: %s (%s)\n", ds.Tag, ds.Kind)
	}
	fmt.Printf("output root: %s\n\n", cfg.OutputRoot)

	for i, sp := range doc.Steps {
		fmt.Printf("%d. %s\n", i+1, sp.Name)

		names := make([]string, 0, len(sp.Model))
		for name := range sp.Model {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			g := sp.Model[name]
			comps := make([]string, 0, len(g.Components))
			for cname := range g.Components {
				comps = append(comps, cname)
			}
			sort.Strings(comps)
			parts := make([]string, 0, len(comps))
			for _, cname := range comps {
				parts = append(parts, fmt.Sprintf("%s=%s", cname, g.Components[cname]))
			}
			fmt.Printf("   galaxies.%s (z=%g): %s\n", name, g.Redshift, strings.Join(parts, ", "))
		}
		for _, take := range sp.Takes {
			fmt.Printf("   take %s from %s at %s -> %s\n",
				take.From.Take, take.From.Step, take.From.Path, take.Target())
		}
		for _, link := range sp.Links {
			fmt.Printf("   link %s\n", strings.Join(link, " = "))
		}
		paths := make([]string, 0, len(sp.Fix))
		for path := range sp.Fix {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Printf("   fix %s = %g\n", path, sp.Fix[path])
		}

		engine := sp.Settings.Engine
		if engine == "" {
			engine = cfg.Engine
		}
		sampler := sp.Settings.Sampler
		if sampler == "" {
			sampler = cfg.Search.Sampler
		}
		fmt.Printf("   engine %s, sampler %s\n", engine, sampler)
		if th := sp.Settings.PositionsThreshold; th != nil {
			fmt.Printf("   positions threshold from %s\n", th.FromStep)
		}
	}
}

// signalContext cancels on SIGINT or SIGTERM so a stopped run leaves
// resumable output instead of a half-written completion marker.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nstopping; partial output stays resumable")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
