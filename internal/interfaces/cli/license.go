package cli

import (
	"github.com/spf13/cobra"
)

func newLicenseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Estado y validación de la licencia",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Muestra el estado cacheado de la licencia",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *Services) (any, error) {
				return svc.License.Status(cmd.Context(), false)
			})
		},
	}
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Fuerza la validación contra la API remota",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *Services) (any, error) {
				return svc.License.Status(cmd.Context(), true)
			})
		},
	}
	accept := &cobra.Command{
		Use:   "accept-policies",
		Short: "Acepta las políticas de la plataforma de distribución",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, func(svc *Services) (any, error) {
				return svc.License.AcceptPolicies(cmd.Context())
			})
		},
	}
	cmd.AddCommand(status, validate, accept)
	return cmd
}

// withServices arma los servicios, ejecuta fn e imprime su resultado en JSON.
func withServices(cmd *cobra.Command, fn func(svc *Services) (any, error)) error {
	svc, err := Bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()
	out, err := fn(svc)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}
