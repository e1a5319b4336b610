package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Runs one crawl-and-ingest pass over the configured categories",
		Long: `Crawls the configured category listings, scrapes every discovered
product page, and writes each record to the object, vector, and relational
sinks. Failed fetches are counted and skipped; the run always drains to the
end.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.InitStores(cmd.Context()); err != nil {
				return err
			}

			cats := categories
			if len(cats) == 0 {
				cats = a.Categories()
			}
			summary, err := a.Pipeline().Run(cmd.Context(), cats)
			if err != nil {
				return err
			}
			a.Logger().Info("run complete",
				zap.String("run_id", summary.RunID),
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed),
				zap.Int("sink_errors", summary.SinkErrors),
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&categories, "categories", nil, "categories to crawl (defaults to configured list)")
	return cmd
}
