// Package plugin define el contrato base de un módulo y el registro de fábricas.
//
// Los módulos se compilan dentro del binario y registran su fábrica desde init():
//
//	func init() { plugin.MustRegister("knowledgebase", New) }
//
// El directorio del módulo en disco aporta el manifiesto y los recursos descargados;
// el registro de la aplicación cruza ambos con el catálogo de la DB.
package plugin

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

// SchemaExecutor ejecuta sentencias DDL/DML de los hooks de un módulo.
type SchemaExecutor interface {
	ExecSchema(ctx context.Context, stmt string) error
}

// HookContext dependencias que recibe cada hook de ciclo de vida.
type HookContext struct {
	Schema SchemaExecutor
	Logger zerolog.Logger
	Record *entity.Module
	Dir    string
}

// DecodeConfig vuelca Record.Config (JSON genérico) sobre out usando los tags `mapstructure`.
func (h HookContext) DecodeConfig(out any) error {
	if h.Record == nil || len(h.Record.Config) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(h.Record.Config); err != nil {
		return fmt.Errorf("config de %s: %w", h.Record.Key, err)
	}
	return nil
}

// Module contrato polimórfico de un módulo instalable.
type Module interface {
	Key() string
	Install(ctx context.Context, hc HookContext) error
	Uninstall(ctx context.Context, hc HookContext) error
	Enable(ctx context.Context, hc HookContext) error
	Disable(ctx context.Context, hc HookContext) error
	// DataTables tablas propias que purge elimina.
	DataTables() []string
	// HookProviders nombres de los hooks del host que el módulo atiende.
	HookProviders() []string
	// Dependencies claves de módulos que deben estar instalados y habilitados.
	Dependencies() []string
}

// Upgrader lo implementan los módulos que migran datos al actualizar de versión.
type Upgrader interface {
	Upgrade(ctx context.Context, hc HookContext, from, to string) error
}

// Base implementación vacía para embeber; los módulos sobrescriben lo que necesitan.
type Base struct{}

func (Base) Install(context.Context, HookContext) error   { return nil }
func (Base) Uninstall(context.Context, HookContext) error { return nil }
func (Base) Enable(context.Context, HookContext) error    { return nil }
func (Base) Disable(context.Context, HookContext) error   { return nil }
func (Base) DataTables() []string                         { return nil }
func (Base) HookProviders() []string                      { return nil }
func (Base) Dependencies() []string                       { return nil }
