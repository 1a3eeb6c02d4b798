// Package assetinventory módulo de pago de inventario de activos; enlaza activos con artículos
// de la base de conocimiento, de ahí su dependencia.
package assetinventory

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jhoicas/appstore-api/internal/modules/knowledgebase"
	"github.com/jhoicas/appstore-api/internal/plugin"
)

const Key = "assetinventory"

const (
	tableAssets = "appstore_assets"
	tableLinks  = "appstore_asset_kb_links"
)

var serialPrefix = regexp.MustCompile(`^[A-Z0-9]{0,8}$`)

func init() { plugin.MustRegister(Key, New) }

// Settings configuración guardada en appstore_modules.config.
type Settings struct {
	SerialPrefix string        `mapstructure:"serial_prefix"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type Module struct {
	plugin.Base
}

func New() plugin.Module { return &Module{} }

func (m *Module) Key() string { return Key }

func (m *Module) Install(ctx context.Context, hc plugin.HookContext) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + tableAssets + ` (
			id         BIGSERIAL PRIMARY KEY,
			serial     TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableLinks + ` (
			asset_id   BIGINT NOT NULL REFERENCES ` + tableAssets + `(id),
			article_id BIGINT NOT NULL,
			PRIMARY KEY (asset_id, article_id)
		)`,
	}
	for _, s := range stmts {
		if err := hc.Schema.ExecSchema(ctx, s); err != nil {
			return fmt.Errorf("assetinventory install: %w", err)
		}
	}
	return nil
}

// Enable valida el prefijo de serie y el intervalo de sincronización (0 = manual).
func (m *Module) Enable(_ context.Context, hc plugin.HookContext) error {
	var s Settings
	if err := hc.DecodeConfig(&s); err != nil {
		return err
	}
	if !serialPrefix.MatchString(s.SerialPrefix) {
		return fmt.Errorf("assetinventory: serial_prefix inválido %q", s.SerialPrefix)
	}
	if s.SyncInterval != 0 && s.SyncInterval < time.Minute {
		return fmt.Errorf("assetinventory: sync_interval mínimo 1m (%s)", s.SyncInterval)
	}
	return nil
}

func (m *Module) DataTables() []string { return []string{tableLinks, tableAssets} }

func (m *Module) HookProviders() []string { return []string{"ticket.item_form"} }

func (m *Module) Dependencies() []string { return []string{knowledgebase.Key} }
