package repository

import (
	"context"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

// LicenseRepository persiste la fila singleton de licencia.
// Get devuelve una configuración vacía (no nil) si la fila aún no existe.
type LicenseRepository interface {
	Get(ctx context.Context) (*entity.LicenseConfig, error)
	Save(ctx context.Context, cfg *entity.LicenseConfig) error
}
