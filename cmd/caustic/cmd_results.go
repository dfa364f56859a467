package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"caustic/cmd/caustic/ui"
	"caustic/internal/aggregate"
	"caustic/internal/config"
)

var (
	resultsPipeline   string
	resultsStep       string
	resultsDatasetTag string
	resultsLimit      int
	resultsPretty     bool
)

// resultsCmd queries the results index
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Query completed fits",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List completed fits, most recent first",
	RunE:  handleResultsList,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one fit's posterior summary",
	Long: `Prints a fit as markdown: provenance, likelihood and the posterior
mean and spread of every sampled parameter. --pretty renders the markdown
for the terminal.

Example:
  caustic results show 4f2a9c01e3 --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: handleResultsShow,
}

func init() {
	resultsListCmd.Flags().StringVar(&resultsPipeline, "pipeline", "", "Filter by pipeline name")
	resultsListCmd.Flags().StringVar(&resultsStep, "step", "", "Filter by step name")
	resultsListCmd.Flags().StringVar(&resultsDatasetTag, "dataset", "", "Filter by dataset tag")
	resultsListCmd.Flags().IntVar(&resultsLimit, "limit", 50, "Maximum rows")

	resultsShowCmd.Flags().BoolVar(&resultsPretty, "pretty", false, "Render markdown for the terminal")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	rootCmd.AddCommand(resultsCmd)
}

func openAggregate() (*aggregate.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return aggregate.Open(cfg.Database)
}

// resultStyles picks the theme the workspace configured, detecting from the
// terminal when it names none.
func resultStyles() ui.Styles {
	ws, err := config.LoadWorkspaceConfig(config.DefaultWorkspaceConfigPath())
	if err != nil {
		return ui.DefaultStyles()
	}
	return ui.NewStyles(ui.ThemeByName(ws.Theme))
}

func handleResultsList(cmd *cobra.Command, args []string) error {
	db, err := openAggregate()
	if err != nil {
		return err
	}
	defer db.Close()

	fits, err := db.List(aggregate.Filters{
		Pipeline:   resultsPipeline,
		Step:       resultsStep,
		DatasetTag: resultsDatasetTag,
		Limit:      resultsLimit,
	})
	if err != nil {
		return err
	}
	if len(fits) == 0 {
		fmt.Println("No fits indexed. Run caustic db sync after a pipeline completes.")
		return nil
	}

	table := ui.NewSimpleTable("Completed Fits",
		[]string{"ID", "PIPELINE", "STEP", "DATASET", "MAX LOG L", "COMPLETED"})
	for _, fit := range fits {
		table.AddRow(
			fit.ID,
			fit.Pipeline,
			fit.Step,
			fit.DatasetTag,
			fmt.Sprintf("%.4f", fit.MaxLogLikelihood),
			fit.CompletedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Print(table.View(resultStyles()))
	return nil
}

func handleResultsShow(cmd *cobra.Command, args []string) error {
	db, err := openAggregate()
	if err != nil {
		return err
	}
	defer db.Close()

	fit, err := resolveFit(db, args[0])
	if err != nil {
		return err
	}
	params, err := db.Parameters(fit.ID)
	if err != nil {
		return err
	}

	md := fitMarkdown(fit, params)
	if !resultsPretty {
		fmt.Print(md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// resolveFit finds a fit by identifier, falling back to a unique prefix so
// a shortened id still resolves.
func resolveFit(db *aggregate.DB, id string) (*aggregate.Fit, error) {
	fit, err := db.Get(id)
	if err == nil {
		return fit, nil
	}
	if !errors.Is(err, aggregate.ErrNotFound) {
		return nil, err
	}

	fits, err := db.List(aggregate.Filters{})
	if err != nil {
		return nil, err
	}
	var match *aggregate.Fit
	for i := range fits {
		if strings.HasPrefix(fits[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("identifier %q is ambiguous", id)
			}
			match = &fits[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no fit with identifier %q", id)
	}
	return match, nil
}

// fitMarkdown renders one fit as a markdown document.
func fitMarkdown(fit *aggregate.Fit, params []aggregate.Parameter) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Fit %s\n\n", fit.ID)
	fmt.Fprintf(&sb, "- **Pipeline:** %s\n", fit.Pipeline)
	fmt.Fprintf(&sb, "- **Step:** %s\n", fit.Step)
	if fit.DatasetTag != "" {
		fmt.Fprintf(&sb, "- **Dataset:** %s\n", fit.DatasetTag)
	}
	fmt.Fprintf(&sb, "- **Model hash:** %s\n", fit.ModelHash)
	fmt.Fprintf(&sb, "- **Free parameters:** %d\n", fit.FreeParameters)
	fmt.Fprintf(&sb, "- **Max log likelihood:** %.4f\n", fit.MaxLogLikelihood)
	if !math.IsNaN(fit.LogEvidence) {
		fmt.Fprintf(&sb, "- **Log evidence:** %.4f\n", fit.LogEvidence)
	}
	if !fit.CompletedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Completed:** %s\n", fit.CompletedAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(&sb, "- **Output:** `%s`\n", fit.OutputDir)

	if len(params) > 0 {
		sb.WriteString("\n## Posterior\n\n")
		sb.WriteString("| Parameter | Mean | Std dev |\n")
		sb.WriteString("| --- | ---: | ---: |\n")
		for _, p := range params {
			fmt.Fprintf(&sb, "| `%s` | %.6g | %s |\n", p.Path, p.Value, formatStdDev(p.StdDev))
		}
	}

	return sb.String()
}

// formatStdDev dashes parameters whose spread collapsed to nothing in
// storage (a NULL stddev survives round-tripping as NaN).
func formatStdDev(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3g", v)
}
