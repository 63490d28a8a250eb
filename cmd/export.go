package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/internal/contacts"
	"github.com/sells-group/lead-cli/internal/export"
	"github.com/sells-group/lead-cli/internal/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push verified leads to a CRM",
	Long:  "Reads leads.json (or the leads of a stored run) and upserts them into Notion or Salesforce.",
}

var exportNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Upsert leads into the Notion lead database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("export-notion"); err != nil {
			return err
		}
		sink := export.NewNotionSink(initNotion(), cfg.Notion.LeadDB)
		return runExport(cmd, sink)
	},
}

var exportSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Upsert leads into Salesforce",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("export-salesforce"); err != nil {
			return err
		}
		sf, err := initSalesforce()
		if err != nil {
			return err
		}
		return runExport(cmd, export.NewSalesforceSink(sf, cfg.Salesforce.Object))
	},
}

func runExport(cmd *cobra.Command, sink export.Sink) error {
	ctx := cmd.Context()

	runID, _ := cmd.Flags().GetString("run")
	input, _ := cmd.Flags().GetString("input")
	all, _ := cmd.Flags().GetBool("all")

	leads, err := loadExportLeads(ctx, runID, input)
	if err != nil {
		return err
	}
	if !all {
		leads = contacts.ValidLeads(leads)
	}
	if len(leads) == 0 {
		fmt.Fprintln(os.Stderr, "No leads to export.")
		return nil
	}

	res, err := sink.Push(ctx, leads)
	formatSinkResult(os.Stdout, sink.Name(), res)
	if err != nil {
		return eris.Wrapf(err, "export %s", sink.Name())
	}
	zap.L().Info("export complete",
		zap.String("sink", sink.Name()),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return nil
}

// loadExportLeads reads leads from the store when runID is set, otherwise
// from input (default <output_dir>/leads.json).
func loadExportLeads(ctx context.Context, runID, input string) ([]company.Lead, error) {
	if runID != "" {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
		if _, err := st.GetRun(ctx, runID); err != nil {
			return nil, eris.Wrap(err, "export")
		}
		return st.ListLeads(ctx, runID)
	}

	if input == "" {
		input = filepath.Join(cfg.Pipeline.OutputDir, pipeline.FileLeads)
	}
	return export.Load[company.Lead](input), nil
}

func formatSinkResult(w io.Writer, name string, res export.SinkResult) {
	_, _ = fmt.Fprintf(w, "%s: created=%d updated=%d failed=%d skipped=%d\n",
		name, res.Created, res.Updated, res.Failed, res.Skipped)
}

func init() {
	for _, c := range []*cobra.Command{exportNotionCmd, exportSalesforceCmd} {
		c.Flags().String("run", "", "export the leads stored for this run ID")
		c.Flags().String("input", "", "leads JSON file (default <output_dir>/leads.json)")
		c.Flags().Bool("all", false, "include leads whose email did not verify as valid")
		exportCmd.AddCommand(c)
	}
	rootCmd.AddCommand(exportCmd)
}
