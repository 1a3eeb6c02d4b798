// Package testutil repositorios en memoria para las pruebas de la capa de aplicación.
package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
)

var (
	_ repository.ModuleRepository  = (*ModuleRepo)(nil)
	_ repository.LicenseRepository = (*LicenseRepo)(nil)
	_ repository.AuditRepository   = (*AuditRepo)(nil)
)

// ModuleRepo catálogo en memoria. Err, si no es nil, lo devuelven todas las operaciones;
// UpdateErr solo UpdateState.
type ModuleRepo struct {
	mu        sync.Mutex
	rows      map[string]entity.Module
	Err       error
	UpdateErr error
}

func NewModuleRepo(mods ...*entity.Module) *ModuleRepo {
	r := &ModuleRepo{rows: map[string]entity.Module{}}
	for _, m := range mods {
		r.rows[m.Key] = *m
	}
	return r
}

func (r *ModuleRepo) GetByKey(_ context.Context, key string) (*entity.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	m, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *ModuleRepo) List(_ context.Context) ([]*entity.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*entity.Module, 0, len(r.rows))
	for _, m := range r.rows {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *ModuleRepo) Upsert(_ context.Context, m *entity.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.rows[m.Key] = *m
	return nil
}

func (r *ModuleRepo) UpdateState(_ context.Context, m *entity.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.rows[m.Key] = *m
	return nil
}

func (r *ModuleRepo) MarkUnavailableExcept(_ context.Context, keep []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for k, m := range r.rows {
		if !slices.Contains(keep, k) {
			m.IsAvailable = false
			r.rows[k] = m
		}
	}
	return nil
}

// Row copia actual de la fila (zero value si no existe).
func (r *ModuleRepo) Row(key string) entity.Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[key]
}

// LicenseRepo fila singleton en memoria.
type LicenseRepo struct {
	mu    sync.Mutex
	cfg   entity.LicenseConfig
	Saves int
	Err   error
}

func NewLicenseRepo(cfg entity.LicenseConfig) *LicenseRepo { return &LicenseRepo{cfg: cfg} }

func (r *LicenseRepo) Get(_ context.Context) (*entity.LicenseConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	c := r.cfg
	c.CachedModules = slices.Clone(r.cfg.CachedModules)
	return &c, nil
}

func (r *LicenseRepo) Save(_ context.Context, cfg *entity.LicenseConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.cfg = *cfg
	r.Saves++
	return nil
}

// Current copia de la fila persistida.
func (r *LicenseRepo) Current() entity.LicenseConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// AuditRepo log en memoria.
type AuditRepo struct {
	mu      sync.Mutex
	entries []entity.AuditEntry
	Err     error
}

func (r *AuditRepo) Insert(_ context.Context, e *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *AuditRepo) ListByModule(_ context.Context, key string, limit int) ([]*entity.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.entries[i].ModuleKey == key {
			e := r.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

// Entries copia de todas las entradas en orden de inserción.
func (r *AuditRepo) Entries() []entity.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}
