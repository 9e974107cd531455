package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gautam3767/additive_registry_backend/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "additive-registry",
	Short: "Crowd-sourced registry of products and the additives they contain",
	Long: `additive-registry serves the product registry API and offers
maintenance commands for bulk imports and contributor management.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(tierCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	logger = config.NewLogger(c, os.Stderr)
	slog.SetDefault(logger)
	return nil
}
