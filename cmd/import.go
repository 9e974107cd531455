package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gautam3767/additive_registry_backend/models"
)

var (
	csvFile    string
	regions    []string
	importUser string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import products from a CSV file",
	Long: `Import products from a CSV file into the registry. Every row is reported
as accepted, duplicate or rejected. Without --user the import runs with
administrator rights and imported products are approved immediately.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&csvFile, "csv", "c", "", "CSV file to import (required)")
	importCmd.Flags().StringSliceVar(&regions, "country", nil, "Regions applied to every row (overrides the file)")
	importCmd.Flags().StringVar(&importUser, "user", "", "Import as this contributor, subject to their quota")

	_ = importCmd.MarkFlagRequired("csv")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(csvFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", csvFile, err)
	}
	defer f.Close()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	caller := models.Caller{UserID: "cli", IsAdmin: true}
	if importUser != "" {
		caller = models.Caller{UserID: importUser}
	}

	res, err := a.pipeline.IngestCSV(ctx, caller, f, regions)
	if err != nil {
		return fmt.Errorf("import %s: %w", csvFile, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Accepted: %d, duplicates: %d, rejected: %d\n", len(res.Accepted), len(res.Duplicates), len(res.Rejected))
	if res.Notice != "" {
		fmt.Fprintln(out, res.Notice)
	}
	for _, d := range res.Duplicates {
		fmt.Fprintf(out, "  row %d duplicate: %s / %s (existing id %s)\n", d.Row, d.Record.Brand, d.Record.Name, d.ExistingID)
	}
	for _, r := range res.Rejected {
		fmt.Fprintf(out, "  row %d rejected: %s\n", r.Row, r.Reason)
	}
	return nil
}
