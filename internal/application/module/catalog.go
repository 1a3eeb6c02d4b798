package module

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/licensing"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
	"github.com/jhoicas/appstore-api/pkg/version"
)

// CatalogSource catálogo remoto.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]ports.CatalogEntry, error)
}

// SnapshotProvider estado de licencia para calcular permisos de las tarjetas.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, force bool) (licensing.Snapshot, error)
	Policy() licensing.Policy
}

// Catalog sincroniza el catálogo remoto y arma las tarjetas del App Store.
type Catalog struct {
	repo     repository.ModuleRepository
	source   CatalogSource
	registry Resolver
	license  SnapshotProvider
	markup   ports.Markup
	log      zerolog.Logger
	now      func() time.Time
}

func NewCatalog(repo repository.ModuleRepository, source CatalogSource, registry Resolver, license SnapshotProvider, markup ports.Markup, log zerolog.Logger) *Catalog {
	return &Catalog{
		repo:     repo,
		source:   source,
		registry: registry,
		license:  license,
		markup:   markup,
		log:      log,
		now:      time.Now,
	}
}

// Sync trae el catálogo remoto y actualiza las filas locales. Los módulos que ya no se
// publican quedan is_available=false; nunca se borran.
func (c *Catalog) Sync(ctx context.Context) (*dto.CatalogSyncResponse, error) {
	entries, err := c.source.Catalog(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo obtener el catálogo remoto")
	}

	now := c.now().UTC()
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		key := entity.NormalizeModuleKey(e.Key)
		if key == "" {
			continue
		}
		rec, err := c.repo.GetByKey(ctx, key)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el módulo '%s'", key)
		}
		if rec == nil {
			rec = &entity.Module{ID: uuid.NewString(), Key: key, CreatedAt: now}
		}
		rec.Name = strings.TrimSpace(e.Name)
		if rec.Name == "" {
			rec.Name = c.displayName(key)
		}
		rec.Description = e.Description
		rec.AvailableVersion = strings.TrimSpace(e.Version)
		rec.BillingTier = entity.ParseBillingTier(e.BillingTier)
		rec.Price = e.Price
		rec.IsAvailable = true
		rec.UpdatedAt = now
		if err := c.repo.Upsert(ctx, rec); err != nil {
			return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo guardar el módulo '%s'", key)
		}
		keys = append(keys, key)
	}

	before, err := c.repo.List(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo listar el catálogo local")
	}
	if err := c.repo.MarkUnavailableExcept(ctx, keys); err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo marcar módulos retirados")
	}
	c.registry.Invalidate()

	unavailable := 0
	for _, m := range before {
		if !slices.Contains(keys, m.Key) && m.IsAvailable {
			unavailable++
		}
	}
	c.log.Info().Int("synced", len(keys)).Int("unavailable", unavailable).Msg("catalog: sincronizado")
	return &dto.CatalogSyncResponse{Success: true, Synced: len(keys), Unavailable: unavailable, Keys: keys}, nil
}

// Cards tarjetas de todos los módulos del catálogo local.
func (c *Catalog) Cards(ctx context.Context) (*dto.ModuleListResponse, error) {
	mods, err := c.repo.List(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo listar los módulos")
	}
	snap, err := c.snapshot(ctx, mods...)
	if err != nil {
		return nil, err
	}
	cards := make([]dto.ModuleCard, 0, len(mods))
	for _, m := range mods {
		card, err := c.card(ctx, m, snap)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return &dto.ModuleListResponse{Modules: cards, Total: len(cards)}, nil
}

// Card tarjeta de un módulo.
func (c *Catalog) Card(ctx context.Context, key string) (*dto.ModuleCard, error) {
	key = entity.NormalizeModuleKey(key)
	m, err := c.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el módulo '%s'", key)
	}
	if m == nil {
		return nil, domain.NewError(domain.ErrNotFound, "el módulo '%s' no existe en el catálogo", key)
	}
	snap, err := c.snapshot(ctx, m)
	if err != nil {
		return nil, err
	}
	card, err := c.card(ctx, m, snap)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// snapshot solo consulta la licencia si hay algún módulo que no sea FREE.
func (c *Catalog) snapshot(ctx context.Context, mods ...*entity.Module) (licensing.Snapshot, error) {
	for _, m := range mods {
		if m.BillingTier != entity.TierFree {
			return c.license.Snapshot(ctx, false)
		}
	}
	return licensing.Snapshot{}, nil
}

func (c *Catalog) card(ctx context.Context, m *entity.Module, snap licensing.Snapshot) (dto.ModuleCard, error) {
	inst, err := c.registry.Get(ctx, m.Key)
	if err != nil {
		return dto.ModuleCard{}, err
	}

	html, err := c.markup.RenderMarkdown(m.Description)
	if err != nil {
		c.log.Warn().Err(err).Str("module", m.Key).Msg("catalog: descripción inválida")
		html = ""
	}

	policy := c.license.Policy()
	decide := func(a licensing.Action) licensing.Decision {
		return policy.Decide(m.BillingTier, m.Key, a, snap, m.IsInstalled)
	}
	updateAvailable := m.IsInstalled && version.HasNewer(m.Version, m.AvailableVersion)

	perms := dto.ModulePermissions{}
	install := decide(licensing.ActionInstall)
	perms.CanInstall = !m.IsInstalled && inst != nil && install.Allowed
	enable := decide(licensing.ActionEnable)
	perms.CanEnable = m.IsInstalled && !m.IsEnabled && enable.Allowed
	perms.FreeFallback = m.IsInstalled && decide(licensing.ActionUse).FreeFallback
	perms.CanUpdate = updateAvailable && decide(licensing.ActionUpdate).Allowed
	download := decide(licensing.ActionDownload)
	perms.CanDownload = m.IsAvailable && download.Allowed
	for _, d := range []licensing.Decision{install, download} {
		if !d.Allowed && perms.Reason == "" {
			perms.Reason = d.Message
		}
	}

	card := dto.ModuleCard{
		Key:              m.Key,
		Name:             m.Name,
		DescriptionHTML:  html,
		Version:          m.Version,
		AvailableVersion: m.AvailableVersion,
		BillingTier:      string(m.BillingTier),
		Price:            m.Price.StringFixed(2),
		State:            m.State(),
		IsInstalled:      m.IsInstalled,
		IsEnabled:        m.IsEnabled,
		IsAvailable:      m.IsAvailable,
		FilesPresent:     inst != nil,
		UpdateAvailable:  updateAvailable,
		InstalledAt:      m.InstalledAt,
		Permissions:      perms,
	}
	if inst != nil {
		card.Dependencies = inst.Dependencies()
	}
	if card.Name == "" {
		card.Name = c.displayName(m.Key)
	}
	return card, nil
}

// displayName "asset_inventory" -> "Asset Inventory". Un Caser no se comparte entre goroutines.
func (c *Catalog) displayName(key string) string {
	return cases.Title(language.Spanish).String(strings.NewReplacer("_", " ", "-", " ").Replace(key))
}
