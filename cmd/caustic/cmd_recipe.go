package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"caustic/internal/dataset"
	"caustic/internal/pipeline"
	"caustic/internal/recipe"
)

var recipeDataset string

// recipeCmd groups recipe operations
var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Build pipelines from Go recipes",
}

// recipeRunCmd interprets a recipe and runs the pipeline it emits
var recipeRunCmd = &cobra.Command{
	Use:   "run <recipe.go>",
	Short: "Interpret a recipe, then run the pipeline it builds",
	Long: `Runs a Go recipe in the embedded interpreter. The recipe's
BuildPipeline(dataset) function returns pipeline YAML, which is then
compiled and executed exactly as caustic run would.

Recipes import only a small stdlib whitelist and build under the
recipe.timeout from caustic.yaml.

Example:
  caustic recipe run recipes/parametric.go --dataset data/slacs0008`,
	Args: cobra.ExactArgs(1),
	RunE: handleRecipeRun,
}

func init() {
	recipeRunCmd.Flags().StringVar(&recipeDataset, "dataset", "", "Dataset directory to fit")
	recipeRunCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the compiled plan without running")
	recipeRunCmd.MarkFlagRequired("dataset")

	recipeCmd.AddCommand(recipeRunCmd)
	rootCmd.AddCommand(recipeCmd)
}

func handleRecipeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	r, err := recipe.Load(args[0])
	if err != nil {
		return err
	}

	ds, err := dataset.Load(recipeDataset)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetRecipeTimeout())
	defer cancel()

	yamlText, err := r.Build(ctx, ds.Tag)
	if err != nil {
		return err
	}

	doc, err := pipeline.Parse([]byte(yamlText))
	if err != nil {
		return fmt.Errorf("recipe %s emitted an invalid pipeline: %w", r.Name(), err)
	}
	fmt.Printf("recipe %s built pipeline %s (%d steps)\n\n", r.Name(), doc.Name, len(doc.Steps))

	return executePipeline(cfg, doc, ds)
}
