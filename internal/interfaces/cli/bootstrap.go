// Package cli comandos cobra del binario y armado de dependencias.
package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/appstore-api/internal/application/contact"
	"github.com/jhoicas/appstore-api/internal/application/license"
	"github.com/jhoicas/appstore-api/internal/application/module"
	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain/licensing"
	"github.com/jhoicas/appstore-api/internal/infrastructure/filecache"
	infralicensing "github.com/jhoicas/appstore-api/internal/infrastructure/licensing"
	"github.com/jhoicas/appstore-api/internal/infrastructure/markup"
	"github.com/jhoicas/appstore-api/internal/infrastructure/modulefs"
	"github.com/jhoicas/appstore-api/internal/infrastructure/postgres"
	"github.com/jhoicas/appstore-api/internal/infrastructure/rediscache"
	_ "github.com/jhoicas/appstore-api/internal/modules/all"
	"github.com/jhoicas/appstore-api/pkg/config"
	"github.com/jhoicas/appstore-api/pkg/logger"
)

// Services dependencias armadas a partir de la configuración.
type Services struct {
	Config    *config.Config
	Log       *logger.Logger
	License   *license.Service
	Registry  *module.Registry
	Lifecycle *module.Lifecycle
	Catalog   *module.Catalog
	Contact   *contact.UseCase

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Bootstrap carga la configuración, abre PostgreSQL (y Redis si REDIS_URL está definido)
// y construye los servicios de aplicación.
func Bootstrap(ctx context.Context) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{
		Env:        cfg.App.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})

	pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	s := &Services{Config: cfg, Log: log, pool: pool}

	remote, err := infralicensing.NewClient(infralicensing.Config{
		BaseURL:    cfg.License.APIURL,
		InstanceID: cfg.License.InstanceID,
		Secret:     cfg.License.APISecret,
		Timeout:    cfg.License.Timeout,
	}, log.Component("licensing"))
	if err != nil {
		s.Close()
		return nil, err
	}

	store, err := modulefs.NewStore(cfg.Modules.Dir, log.Component("modulefs"))
	if err != nil {
		s.Close()
		return nil, err
	}
	regCache, err := filecache.NewRegistryCache(cfg.Modules.CacheDir)
	if err != nil {
		s.Close()
		return nil, err
	}

	// Redis es opcional: sin él cada instancia usa solo la fila persistida.
	var snapCache ports.SnapshotCache
	if cfg.Redis.URL != "" {
		client, err := rediscache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, caché L1 deshabilitada")
		} else {
			s.redis = client
			snapCache = rediscache.NewSnapshotCache(client, "appstore:"+cfg.License.InstanceID+":")
		}
	}

	modules := postgres.NewModuleRepository(pool)
	audit := postgres.NewAuditRepository(pool)
	licenses := postgres.NewLicenseRepository(pool)
	renderer := markup.NewRenderer()

	s.License = license.NewService(licenses, modules, remote, snapCache, license.Options{
		LicenseKey: cfg.License.LicenseKey,
		TTL:        cfg.License.CacheTTL,
		Policy:     licensing.Policy{DevPlan: cfg.License.DevPlan},
	}, log.Component("license"))

	s.Registry = module.NewRegistry(modules, store, regCache, cfg.Modules.CacheTTL, log.Component("registry"))
	s.Lifecycle = module.NewLifecycle(module.LifecycleDeps{
		Modules:  modules,
		Audit:    audit,
		Registry: s.Registry,
		License:  s.License,
		Store:    store,
		Packages: remote,
		Schema:   postgres.NewSchemaAdmin(pool),
		BaseURL:  cfg.HTTP.BaseURL,
	}, log.Component("lifecycle"))
	s.Catalog = module.NewCatalog(modules, remote, s.Registry, s.License, renderer, log.Component("catalog"))
	s.Contact = contact.NewUseCase(remote, renderer, log.Component("contact"))
	return s, nil
}

// Close libera conexiones.
func (s *Services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.Log.Warn().Err(err).Msg("cerrar redis")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
