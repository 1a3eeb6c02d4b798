package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand comando raíz con todos los subcomandos.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "appstore",
		Short:         "App Store de módulos para la plataforma de helpdesk",
		Long:          `Descubre módulos, gestiona su ciclo de vida y valida licencias contra la plataforma de distribución.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newModuleCommand(),
		newLicenseCommand(),
		newCatalogCommand(),
		newTokenCommand(),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
