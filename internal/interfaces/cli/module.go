package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/application/module"
)

// actorCLI actor registrado en la auditoría para acciones desde la terminal.
const actorCLI = "cli"

type moduleAction func(l *module.Lifecycle, ctx context.Context, key, actor string) (*dto.ActionResponse, error)

func newModuleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Ciclo de vida de módulos",
	}
	cmd.AddCommand(
		newModuleListCommand(),
		newModuleAuditCommand(),
		newModuleActionCommand("install", "Instala un módulo presente en disco", (*module.Lifecycle).Install),
		newModuleActionCommand("enable", "Habilita un módulo instalado", (*module.Lifecycle).Enable),
		newModuleActionCommand("disable", "Deshabilita un módulo", (*module.Lifecycle).Disable),
		newModuleActionCommand("uninstall", "Desinstala un módulo", (*module.Lifecycle).Uninstall),
		newModuleActionCommand("update", "Actualiza a la versión publicada en el catálogo", (*module.Lifecycle).Update),
		newModuleActionCommand("download", "Descarga el paquete desde la plataforma de distribución", (*module.Lifecycle).Download),
		newModuleActionCommand("purge", "Borra datos y archivos del módulo", (*module.Lifecycle).Purge),
	)
	return cmd
}

func newModuleActionCommand(use, short string, action moduleAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <key>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			out, err := action(svc.Lifecycle, cmd.Context(), args[0], actorCLI)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newModuleListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lista los módulos del catálogo con su estado y permisos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			out, err := svc.Catalog.Cards(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printCards(cmd, out.Modules)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Salida en JSON")
	return cmd
}

func printCards(cmd *cobra.Command, cards []dto.ModuleCard) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTIER\tESTADO\tVERSIÓN\tDISPONIBLE\tARCHIVOS\tFREE_FALLBACK")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
			c.Key, c.BillingTier, c.State, dash(c.Version), dash(c.AvailableVersion), c.FilesPresent, c.Permissions.FreeFallback)
	}
	return tw.Flush()
}

func newModuleAuditCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit <key>",
		Short: "Historial de acciones de un módulo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			out, err := svc.Lifecycle.Audit(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Número de entradas")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
