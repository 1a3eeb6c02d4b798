// Package license resuelve el estado de licencia de la instancia y decide, vía el gate
// de dominio, si una acción sobre un módulo está permitida.
//
// Orden de resolución del snapshot:
//  1. caché L1 (Redis, opcional) salvo revalidación forzada;
//  2. fila persistida si la última validación sigue dentro del TTL;
//  3. llamada a la API remota, cuyo resultado se persiste.
//
// Si la API remota falla se devuelve un snapshot degradado con la información cacheada
// y validation_ok=false: los módulos de pago instalados caen al modo gratuito y nunca
// se desinstala nada.
package license

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/licensing"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
)

// Validator cliente de validación remota (subconjunto de ports.LicenseAPI).
type Validator interface {
	Validate(ctx context.Context, req ports.ValidateRequest) (*ports.ValidateResult, error)
}

// Options parámetros del servicio.
type Options struct {
	LicenseKey string
	TTL        time.Duration
	Policy     licensing.Policy
}

// Service implementa el validador de licencias.
type Service struct {
	repo    repository.LicenseRepository
	modules repository.ModuleRepository
	remote  Validator
	cache   ports.SnapshotCache // nil = sin L1
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
	group   singleflight.Group
}

// NewService construye el servicio. cache puede ser nil.
func NewService(
	repo repository.LicenseRepository,
	modules repository.ModuleRepository,
	remote Validator,
	cache ports.SnapshotCache,
	opts Options,
	log zerolog.Logger,
) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Service{
		repo:    repo,
		modules: modules,
		remote:  remote,
		cache:   cache,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// Policy regla de autorización configurada.
func (s *Service) Policy() licensing.Policy { return s.opts.Policy }

// Snapshot devuelve el estado de licencia vigente. force ignora caché y TTL.
// Solo devuelve error si falla la base de datos; los fallos remotos degradan.
func (s *Service) Snapshot(ctx context.Context, force bool) (licensing.Snapshot, error) {
	if !force && s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("license: caché L1 no disponible")
		} else if cached != nil {
			return *cached, nil
		}
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return licensing.Snapshot{}, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer la configuración de licencia")
	}

	if !force && cfg.FreshAt(s.now(), s.opts.TTL) {
		snap := licensing.FromConfig(cfg)
		s.store(ctx, snap, cfg.LastValidatedAt)
		return snap, nil
	}

	if cfg.PoliciesAcceptedAt == nil {
		snap := licensing.FromConfig(cfg)
		snap.ValidationOK = false
		snap.Status = entity.LicenseStatusPoliciesNotAccepted
		return snap, nil
	}

	// Peticiones concurrentes con el TTL vencido comparten una sola llamada remota.
	v, err, _ := s.group.Do("validate", func() (any, error) {
		return s.revalidate(context.WithoutCancel(ctx), cfg, force)
	})
	if err != nil {
		return licensing.Snapshot{}, err
	}
	return v.(licensing.Snapshot), nil
}

func (s *Service) revalidate(ctx context.Context, cfg *entity.LicenseConfig, force bool) (licensing.Snapshot, error) {
	req := ports.ValidateRequest{LicenseKey: s.opts.LicenseKey, Modules: s.installedModules(ctx)}
	res, err := s.remote.Validate(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).Msg("license: validación remota fallida; se usa el último estado conocido")
		snap := licensing.FromConfig(cfg)
		snap.ValidationOK = false
		snap.Degraded = true
		snap.Status = entity.LicenseStatusUnreachable
		return snap, nil
	}

	now := s.now().UTC()
	cfg.Plan = res.Plan
	cfg.ContractActive = res.ContractActive
	cfg.LicenseStatus = res.LicenseStatus
	if cfg.LicenseStatus == "" {
		cfg.LicenseStatus = entity.LicenseStatusActive
		if !res.Success {
			cfg.LicenseStatus = entity.LicenseStatusUnknown
		}
	}
	cfg.ValidationOK = res.Success
	cfg.CachedModules = res.AllowedModules
	if len(res.Licenses) > 0 {
		cfg.LicensesSnapshot = res.Licenses
	}
	cfg.LastValidatedAt = &now
	cfg.UpdatedAt = now

	if err := s.repo.Save(ctx, cfg); err != nil {
		s.log.Error().Err(err).Msg("license: no se pudo persistir la validación")
	}

	snap := licensing.FromConfig(cfg)
	if force && s.cache != nil {
		if err := s.cache.Delete(ctx); err != nil {
			s.log.Warn().Err(err).Msg("license: no se pudo invalidar la caché L1")
		}
	}
	s.store(ctx, snap, cfg.LastValidatedAt)

	s.log.Info().
		Str("plan", snap.Plan).
		Bool("validation_ok", snap.ValidationOK).
		Int("modules", len(snap.AllowedModules)).
		Msg("license: validación remota completada")
	return snap, nil
}

// store guarda en L1 con el TTL que le queda a la validación.
func (s *Service) store(ctx context.Context, snap licensing.Snapshot, validatedAt *time.Time) {
	if s.cache == nil || validatedAt == nil {
		return
	}
	remaining := validatedAt.Add(s.opts.TTL).Sub(s.now())
	if remaining <= 0 {
		return
	}
	if err := s.cache.Set(ctx, snap, remaining); err != nil {
		s.log.Warn().Err(err).Msg("license: no se pudo escribir la caché L1")
	}
}

func (s *Service) installedModules(ctx context.Context) []ports.InstalledModule {
	mods, err := s.modules.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("license: no se pudo listar módulos instalados")
		return nil
	}
	out := make([]ports.InstalledModule, 0, len(mods))
	for _, m := range mods {
		if m.IsInstalled {
			out = append(out, ports.InstalledModule{Key: m.Key, Version: m.Version, Enabled: m.IsEnabled})
		}
	}
	return out
}

// Check decide si action está permitida sobre el módulo. Los módulos FREE y las acciones
// de retiro no consultan la licencia.
func (s *Service) Check(ctx context.Context, m *entity.Module, action licensing.Action) (licensing.Decision, error) {
	if m == nil {
		return licensing.Decision{}, domain.ErrNotFound
	}
	if m.BillingTier == entity.TierFree || action.IsRemoval() {
		return s.opts.Policy.Decide(m.BillingTier, m.Key, action, licensing.Snapshot{}, m.IsInstalled), nil
	}
	snap, err := s.Snapshot(ctx, action.RequiresFreshValidation())
	if err != nil {
		return licensing.Decision{}, err
	}
	return s.opts.Policy.Decide(m.BillingTier, m.Key, action, snap, m.IsInstalled), nil
}

// CanUse informa si las rutas del módulo pueden servirse: instalado, habilitado y autorizado.
func (s *Service) CanUse(ctx context.Context, key string) (bool, error) {
	m, err := s.modules.GetByKey(ctx, entity.NormalizeModuleKey(key))
	if err != nil {
		return false, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el módulo")
	}
	if m == nil || !m.IsInstalled || !m.IsEnabled {
		return false, nil
	}
	d, err := s.Check(ctx, m, licensing.ActionUse)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// AcceptPolicies registra la aceptación de las políticas de la plataforma y revalida.
func (s *Service) AcceptPolicies(ctx context.Context) (*dto.LicenseStatusResponse, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer la configuración de licencia")
	}
	now := s.now().UTC()
	cfg.PoliciesAcceptedAt = &now
	cfg.UpdatedAt = now
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo guardar la aceptación de políticas")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx); err != nil {
			s.log.Warn().Err(err).Msg("license: no se pudo invalidar la caché L1")
		}
	}
	return s.Status(ctx, true)
}

// Status snapshot actual en formato de respuesta.
func (s *Service) Status(ctx context.Context, force bool) (*dto.LicenseStatusResponse, error) {
	snap, err := s.Snapshot(ctx, force)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer la configuración de licencia")
	}
	modules := snap.AllowedModules
	if modules == nil {
		modules = []string{}
	}
	return &dto.LicenseStatusResponse{
		Plan:               snap.Plan,
		Status:             snap.Status,
		ContractActive:     snap.ContractActive,
		ValidationOK:       snap.ValidationOK,
		Modules:            modules,
		Degraded:           snap.Degraded,
		PoliciesAccepted:   cfg.PoliciesAcceptedAt != nil,
		PoliciesAcceptedAt: cfg.PoliciesAcceptedAt,
		LastValidatedAt:    cfg.LastValidatedAt,
	}, nil
}
