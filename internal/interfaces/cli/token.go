package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/appstore-api/pkg/config"
	"github.com/jhoicas/appstore-api/pkg/jwt"
)

// newTokenCommand emite un JWT para llamar a la API (integraciones o pruebas manuales).
func newTokenCommand() *cobra.Command {
	var (
		userID  string
		role    string
		minutes int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Genera un JWT firmado con JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			if minutes <= 0 {
				minutes = cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, role, cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "admin", "user_id del token")
	cmd.Flags().StringVar(&role, "role", jwt.RoleAdmin, "Rol (admin, operator)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	return cmd
}
