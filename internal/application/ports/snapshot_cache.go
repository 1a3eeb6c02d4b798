package ports

import (
	"context"
	"time"

	"github.com/jhoicas/appstore-api/internal/domain/licensing"
)

// SnapshotCache caché L1 opcional (Redis) del snapshot de licencia, compartido entre réplicas.
// Get devuelve (nil, nil) en miss.
type SnapshotCache interface {
	Get(ctx context.Context) (*licensing.Snapshot, error)
	Set(ctx context.Context, snap licensing.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// Markup convierte descripciones Markdown en HTML seguro y limpia texto libre.
type Markup interface {
	RenderMarkdown(src string) (string, error)
	StripTags(s string) string
}
