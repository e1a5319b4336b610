package cmd

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the ops HTTP server",
		Long: `Starts the ops API: /healthz with per-store checks, /readyz, Prometheus
/metrics, and POST /v1/runs for triggering ingest runs on demand. Blocks
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			if err := a.InitStores(cmd.Context()); err != nil {
				a.Close()
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
