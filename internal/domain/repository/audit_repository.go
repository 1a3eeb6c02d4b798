package repository

import (
	"context"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

// AuditRepository registro append-only de acciones de ciclo de vida.
type AuditRepository interface {
	Insert(ctx context.Context, e *entity.AuditEntry) error
	ListByModule(ctx context.Context, key string, limit int) ([]*entity.AuditEntry, error)
}
