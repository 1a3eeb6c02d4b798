// Package slareports módulo de pago con reportes de cumplimiento de SLA.
package slareports

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/appstore-api/internal/plugin"
)

const Key = "slareports"

const tableSnapshots = "appstore_sla_snapshots"

func init() { plugin.MustRegister(Key, New) }

// Settings configuración guardada en appstore_modules.config.
type Settings struct {
	BreachThreshold int           `mapstructure:"breach_threshold"`
	Window          time.Duration `mapstructure:"window"`
}

type Module struct {
	plugin.Base
}

func New() plugin.Module { return &Module{} }

func (m *Module) Key() string { return Key }

func (m *Module) Install(ctx context.Context, hc plugin.HookContext) error {
	stmt := `CREATE TABLE IF NOT EXISTS ` + tableSnapshots + ` (
		id           BIGSERIAL PRIMARY KEY,
		ticket_id    BIGINT NOT NULL,
		breached     BOOLEAN NOT NULL,
		measured_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if err := hc.Schema.ExecSchema(ctx, stmt); err != nil {
		return fmt.Errorf("slareports install: %w", err)
	}
	return nil
}

// Enable valida la configuración antes de activar los reportes.
func (m *Module) Enable(_ context.Context, hc plugin.HookContext) error {
	s := Settings{BreachThreshold: 90, Window: 24 * time.Hour}
	if err := hc.DecodeConfig(&s); err != nil {
		return err
	}
	if s.BreachThreshold <= 0 || s.BreachThreshold > 100 {
		return fmt.Errorf("slareports: breach_threshold fuera de rango (%d)", s.BreachThreshold)
	}
	hc.Logger.Info().Int("breach_threshold", s.BreachThreshold).Dur("window", s.Window).Msg("reportes SLA activos")
	return nil
}

// Upgrade 1.x -> 2.x agrega la columna de severidad.
func (m *Module) Upgrade(ctx context.Context, hc plugin.HookContext, from, to string) error {
	stmt := `ALTER TABLE ` + tableSnapshots + ` ADD COLUMN IF NOT EXISTS severity TEXT NOT NULL DEFAULT 'normal'`
	if err := hc.Schema.ExecSchema(ctx, stmt); err != nil {
		return fmt.Errorf("slareports upgrade %s -> %s: %w", from, to, err)
	}
	return nil
}

func (m *Module) DataTables() []string { return []string{tableSnapshots} }

func (m *Module) HookProviders() []string { return []string{"dashboard.widget", "cron.hourly"} }
