package repository

import (
	"context"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

// ModuleRepository define el puerto de persistencia del catálogo local de módulos (DIP).
// GetByKey devuelve (nil, nil) si la clave no existe.
type ModuleRepository interface {
	GetByKey(ctx context.Context, key string) (*entity.Module, error)
	List(ctx context.Context) ([]*entity.Module, error)
	// Upsert inserta o actualiza por module_key.
	Upsert(ctx context.Context, m *entity.Module) error
	// UpdateState persiste banderas, versión y config de un módulo existente.
	UpdateState(ctx context.Context, m *entity.Module) error
	// MarkUnavailableExcept marca is_available=false para las claves fuera de keep.
	MarkUnavailableExcept(ctx context.Context, keep []string) error
}
