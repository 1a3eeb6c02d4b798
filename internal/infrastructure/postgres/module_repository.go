package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
)

var _ repository.ModuleRepository = (*ModuleRepo)(nil)

// ModuleRepo catálogo local de módulos (appstore_modules).
type ModuleRepo struct {
	q Querier
}

// NewModuleRepository construye el adaptador. Pasar pool o tx.
func NewModuleRepository(q Querier) *ModuleRepo {
	return &ModuleRepo{q: q}
}

const moduleColumns = `id, module_key, name, description, version, available_version, billing_tier, price,
	is_installed, is_enabled, is_available, config, installed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModule(row rowScanner) (*entity.Module, error) {
	var m entity.Module
	var tier string
	err := row.Scan(
		&m.ID, &m.Key, &m.Name, &m.Description, &m.Version, &m.AvailableVersion, &tier, &m.Price,
		&m.IsInstalled, &m.IsEnabled, &m.IsAvailable, &m.Config, &m.InstalledAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.BillingTier = entity.ParseBillingTier(tier)
	return &m, nil
}

// GetByKey devuelve nil, nil si la clave no existe.
func (r *ModuleRepo) GetByKey(ctx context.Context, key string) (*entity.Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM appstore_modules WHERE module_key = $1`
	m, err := scanModule(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get module %s: %w", key, err)
	}
	return m, nil
}

func (r *ModuleRepo) List(ctx context.Context) ([]*entity.Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM appstore_modules ORDER BY module_key`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var list []*entity.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Upsert inserta el módulo o actualiza solo los campos que vienen del catálogo remoto;
// las banderas de ciclo de vida se cambian con UpdateState.
func (r *ModuleRepo) Upsert(ctx context.Context, m *entity.Module) error {
	query := `
		INSERT INTO appstore_modules (` + moduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (module_key) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			available_version = EXCLUDED.available_version,
			billing_tier = EXCLUDED.billing_tier,
			price = EXCLUDED.price,
			is_available = EXCLUDED.is_available,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Key, m.Name, m.Description, m.Version, m.AvailableVersion, string(m.BillingTier), m.Price,
		m.IsInstalled, m.IsEnabled, m.IsAvailable, configOrEmpty(m.Config), m.InstalledAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert module %s: %w", m.Key, err)
	}
	return nil
}

func (r *ModuleRepo) UpdateState(ctx context.Context, m *entity.Module) error {
	query := `
		UPDATE appstore_modules
		SET version = $2, is_installed = $3, is_enabled = $4, config = $5, installed_at = $6, updated_at = $7
		WHERE module_key = $1`
	tag, err := r.q.Exec(ctx, query,
		m.Key, m.Version, m.IsInstalled, m.IsEnabled, configOrEmpty(m.Config), m.InstalledAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update module %s: %w", m.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update module %s: %w", m.Key, domain.ErrNotFound)
	}
	return nil
}

func (r *ModuleRepo) MarkUnavailableExcept(ctx context.Context, keep []string) error {
	if keep == nil {
		keep = []string{}
	}
	query := `
		UPDATE appstore_modules SET is_available = false, updated_at = now()
		WHERE is_available AND NOT (module_key = ANY($1))`
	if _, err := r.q.Exec(ctx, query, keep); err != nil {
		return fmt.Errorf("mark unavailable modules: %w", err)
	}
	return nil
}

func configOrEmpty(c map[string]any) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return c
}
