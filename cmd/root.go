// Package cmd defines and implements the CLI commands for the catalog-ingest
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jibbs-ai/catalog-ingest/internal/app"
	"github.com/jibbs-ai/catalog-ingest/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-ingest",
		Short: "Scrapes a retail storefront and ingests its catalog into search stores.",
		Long: `catalog-ingest crawls a retail storefront's category listings, parses
each product page, and fans the normalized records out to object storage,
a vector index, and a relational catalog. Repeated runs are idempotent:
every derived identifier is a pure function of the product title.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (environment variables override)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newInitStoresCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// buildApp loads config from the --config flag and environment and wires the
// application container.
func buildApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize application services: %w", err)
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
