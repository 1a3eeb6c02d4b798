package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	httpRouter "github.com/jhoicas/appstore-api/internal/interfaces/http"
	"github.com/jhoicas/appstore-api/internal/plugin"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := Bootstrap(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			cfg := svc.Config
			log := svc.Log
			log.Info().Str("env", cfg.App.Env).Str("app", cfg.App.Name).Strs("modules", plugin.Keys()).Msg("iniciando aplicación")

			app := httpRouter.NewApp(httpRouter.AppConfig{
				Name:           cfg.App.Name,
				SwaggerEnabled: cfg.Swagger.Enabled,
				SwaggerFile:    cfg.Swagger.FilePath,
			}, httpRouter.RouterDeps{
				Catalog:    svc.Catalog,
				Lifecycle:  svc.Lifecycle,
				License:    svc.License,
				Contact:    svc.Contact,
				Checker:    svc.License,
				ModuleKeys: plugin.Keys(),
				JWTSecret:  cfg.JWT.Secret,
				Logger:     log.Component("http"),
			})

			go func() {
				if err := app.Listen(cfg.HTTP.Addr()); err != nil {
					log.Error().Err(err).Msg("servidor HTTP finalizado")
				}
			}()
			log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor escuchando")

			<-ctx.Done()
			log.Info().Msg("señal de apagado recibida, cerrando servidor...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("apagado del servidor")
			}
			log.Info().Msg("aplicación detenida")
			return nil
		},
	}
}
