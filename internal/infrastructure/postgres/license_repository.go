package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
)

var _ repository.LicenseRepository = (*LicenseRepo)(nil)

// LicenseRepo fila singleton appstore_license (id = 1).
type LicenseRepo struct {
	q Querier
}

func NewLicenseRepository(q Querier) *LicenseRepo {
	return &LicenseRepo{q: q}
}

// Get devuelve una configuración vacía si la fila no existe todavía.
func (r *LicenseRepo) Get(ctx context.Context) (*entity.LicenseConfig, error) {
	query := `
		SELECT plan, contract_active, license_status, validation_ok, cached_modules, licenses_snapshot,
		       policies_accepted_at, last_validated_at, updated_at
		FROM appstore_license WHERE id = 1`
	var c entity.LicenseConfig
	var snapshot []byte
	err := r.q.QueryRow(ctx, query).Scan(
		&c.Plan, &c.ContractActive, &c.LicenseStatus, &c.ValidationOK, &c.CachedModules, &snapshot,
		&c.PoliciesAcceptedAt, &c.LastValidatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return &entity.LicenseConfig{LicenseStatus: entity.LicenseStatusUnknown}, nil
		}
		return nil, fmt.Errorf("get license config: %w", err)
	}
	if len(snapshot) > 0 {
		c.LicensesSnapshot = json.RawMessage(snapshot)
	}
	return &c, nil
}

func (r *LicenseRepo) Save(ctx context.Context, c *entity.LicenseConfig) error {
	modules := c.CachedModules
	if modules == nil {
		modules = []string{}
	}
	var snapshot []byte
	if len(c.LicensesSnapshot) > 0 {
		snapshot = c.LicensesSnapshot
	}
	query := `
		INSERT INTO appstore_license (id, plan, contract_active, license_status, validation_ok, cached_modules,
			licenses_snapshot, policies_accepted_at, last_validated_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6::jsonb, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			plan = EXCLUDED.plan,
			contract_active = EXCLUDED.contract_active,
			license_status = EXCLUDED.license_status,
			validation_ok = EXCLUDED.validation_ok,
			cached_modules = EXCLUDED.cached_modules,
			licenses_snapshot = EXCLUDED.licenses_snapshot,
			policies_accepted_at = EXCLUDED.policies_accepted_at,
			last_validated_at = EXCLUDED.last_validated_at,
			updated_at = now()`
	_, err := r.q.Exec(ctx, query,
		c.Plan, c.ContractActive, c.LicenseStatus, c.ValidationOK, modules,
		snapshot, c.PoliciesAcceptedAt, c.LastValidatedAt,
	)
	if err != nil {
		return fmt.Errorf("save license config: %w", err)
	}
	return nil
}
