package cmd

import (
	"github.com/spf13/cobra"
)

func newInitStoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-stores",
		Short: "Provisions the backing stores",
		Long: `Applies the relational schema migrations, creates the image bucket,
and creates the vector collections if they do not exist yet. Safe to run
repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.InitStores(cmd.Context()); err != nil {
				return err
			}
			a.Logger().Info("stores provisioned")
			return nil
		},
	}
}
