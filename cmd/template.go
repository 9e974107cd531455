package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gautam3767/additive_registry_backend/services"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the CSV import template",
	// No store access needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runTemplate,
}

func init() {
	templateCmd.Flags().StringVarP(&templateOut, "out", "o", "", "Output file (default stdout)")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	data, err := services.TemplateCSV()
	if err != nil {
		return err
	}
	if templateOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(templateOut, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", templateOut, err)
	}
	return nil
}
