// Package knowledgebase módulo gratuito de artículos de base de conocimiento.
package knowledgebase

import (
	"context"
	"fmt"

	"github.com/jhoicas/appstore-api/internal/plugin"
)

// Key clave del módulo en el catálogo.
const Key = "knowledgebase"

const (
	tableArticles   = "appstore_kb_articles"
	tableCategories = "appstore_kb_categories"
)

func init() { plugin.MustRegister(Key, New) }

// Settings configuración guardada en appstore_modules.config.
type Settings struct {
	ArticlesPerPage int  `mapstructure:"articles_per_page"`
	PublicPortal    bool `mapstructure:"public_portal"`
}

// Module base de conocimiento (tier FREE).
type Module struct {
	plugin.Base
}

// New fábrica registrada.
func New() plugin.Module { return &Module{} }

func (m *Module) Key() string { return Key }

func (m *Module) Install(ctx context.Context, hc plugin.HookContext) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + tableCategories + ` (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableArticles + ` (
			id          BIGSERIAL PRIMARY KEY,
			category_id BIGINT REFERENCES ` + tableCategories + `(id),
			title       TEXT NOT NULL,
			body        TEXT NOT NULL DEFAULT '',
			published   BOOLEAN NOT NULL DEFAULT false,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if err := hc.Schema.ExecSchema(ctx, s); err != nil {
			return fmt.Errorf("knowledgebase install: %w", err)
		}
	}
	hc.Logger.Info().Msg("tablas de base de conocimiento creadas")
	return nil
}

func (m *Module) Enable(_ context.Context, hc plugin.HookContext) error {
	s := Settings{ArticlesPerPage: 20}
	if err := hc.DecodeConfig(&s); err != nil {
		return err
	}
	if s.ArticlesPerPage < 1 || s.ArticlesPerPage > 100 {
		return fmt.Errorf("knowledgebase: articles_per_page fuera de rango (%d)", s.ArticlesPerPage)
	}
	hc.Logger.Info().Int("articles_per_page", s.ArticlesPerPage).Bool("public_portal", s.PublicPortal).Msg("base de conocimiento activa")
	return nil
}

func (m *Module) DataTables() []string {
	// orden de borrado: hijas primero
	return []string{tableArticles, tableCategories}
}

func (m *Module) HookProviders() []string {
	return []string{"ticket.sidebar", "search.provider"}
}
