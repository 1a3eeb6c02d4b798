package cli

import (
	"github.com/spf13/cobra"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catálogo remoto de módulos",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Sincroniza el catálogo remoto con la base de datos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *Services) (any, error) {
				return svc.Catalog.Sync(cmd.Context())
			})
		},
	})
	return cmd
}
