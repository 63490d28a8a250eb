package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/pipeline"
)

var (
	runProduct   string
	runOutputDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enabled pipeline steps",
	Long:  "Runs every step enabled under pipeline.steps. Disabled steps are skipped and their outputs are read from the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "run", cfg.Pipeline.Steps)
	},
}

// newStepCmd returns a command that runs a single pipeline step.
func newStepCmd(use, short, mode string, steps config.StepsConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, mode, steps)
		},
	}
	addRunFlags(c)
	return c
}

func runPipeline(cmd *cobra.Command, mode string, steps config.StepsConfig) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyRunFlags()
	cfg.Pipeline.Steps = steps

	env, err := initPipeline(ctx, mode)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Pipeline.Run(ctx)
	if res != nil {
		formatRunSummary(os.Stdout, res)
	}
	if err != nil {
		zap.L().Error("pipeline run failed", zap.Error(err))
		return err
	}
	return nil
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringVar(&runProduct, "product", "", "product description (default from config)")
	c.Flags().StringVar(&runOutputDir, "output-dir", "", "artifact directory (default from config)")
}

func applyRunFlags() {
	if runProduct != "" {
		cfg.Pipeline.ProductDescription = runProduct
	}
	if runOutputDir != "" {
		cfg.Pipeline.OutputDir = runOutputDir
	}
}

// formatRunSummary writes the per-step counts of a run to w.
func formatRunSummary(out io.Writer, res *pipeline.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	s := res.Stats
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Search terms:\t%d\n", s.SearchTerms)
	_, _ = fmt.Fprintf(w, "Places records:\t%d\n", s.PlacesRecords)
	_, _ = fmt.Fprintf(w, "Filtered out:\t%d\n", s.Filtered)
	_, _ = fmt.Fprintf(w, "Merged:\t%d\n", s.Merged)
	_, _ = fmt.Fprintf(w, "Scored:\t%d\n", s.Scored)
	_, _ = fmt.Fprintf(w, "Qualified:\t%d\n", s.Qualified)
	_, _ = fmt.Fprintf(w, "Leads:\t%d\n", s.Leads)
	_, _ = fmt.Fprintf(w, "Valid leads:\t%d\n", s.ValidLeads)
	_ = w.Flush()
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(
		newStepCmd("plan", "Generate the search plan (lead_plan.json)", "plan",
			config.StepsConfig{GenerateSearchTerms: true}),
		newStepCmd("scrape", "Scrape Places for the planned search terms (google_places.json)", "scrape",
			config.StepsConfig{ScrapeGooglePlaces: true}),
		newStepCmd("process", "Merge, filter, score and qualify company records", "process",
			config.StepsConfig{ProcessAndMergeData: true}),
		newStepCmd("contacts", "Find and verify contacts at qualified companies (leads.json)", "contacts",
			config.StepsConfig{FindAndVerifyContacts: true}),
	)
}
