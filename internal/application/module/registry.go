// Package module implementa el registro de módulos, su ciclo de vida y el catálogo.
package module

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
	"github.com/jhoicas/appstore-api/internal/plugin"
)

// Registry resuelve qué módulos existen a la vez en el catálogo de la DB, en disco
// (manifiesto en MODULES_DIR) y como fábrica compilada en el binario.
//
// El índice clave -> directorio se guarda en un caché en disco invalidado por TTL o por
// cambio en la huella de MODULES_DIR. Toda mutación del ciclo de vida llama Invalidate.
type Registry struct {
	repo   repository.ModuleRepository
	store  ports.ModuleStore
	cache  ports.RegistryCache
	lookup func(key string) (plugin.Factory, bool)
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	loadedAt  time.Time
	dirs      map[string]string
	instances map[string]plugin.Module
}

// NewRegistry construye el registro con las fábricas globales de plugin.
func NewRegistry(repo repository.ModuleRepository, store ports.ModuleStore, cache ports.RegistryCache, ttl time.Duration, log zerolog.Logger) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		repo:   repo,
		store:  store,
		cache:  cache,
		lookup: plugin.Lookup,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// Get devuelve la instancia del módulo o nil si la clave no está registrada.
func (r *Registry) Get(ctx context.Context, key string) (plugin.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return r.instances[entity.NormalizeModuleKey(key)], nil
}

// Dir subdirectorio del módulo dentro de MODULES_DIR ("" si no está registrado).
func (r *Registry) Dir(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return "", err
	}
	return r.dirs[entity.NormalizeModuleKey(key)], nil
}

// List instancias registradas ordenadas por clave.
func (r *Registry) List(ctx context.Context) ([]plugin.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(r.instances))
	for k := range r.instances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]plugin.Module, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.instances[k])
	}
	return out, nil
}

// Instantiate instancia la fábrica compilada de key sin consultar disco ni catálogo.
func (r *Registry) Instantiate(key string) plugin.Module {
	key = entity.NormalizeModuleKey(key)
	factory, ok := r.lookup(key)
	if !ok {
		return nil
	}
	inst := factory()
	if entity.NormalizeModuleKey(inst.Key()) != key {
		return nil
	}
	return inst
}

// Invalidate descarta el índice en memoria y el caché en disco.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs, r.instances = nil, nil
	r.loadedAt = time.Time{}
	if err := r.cache.Clear(); err != nil {
		r.log.Warn().Err(err).Msg("registry: no se pudo borrar el caché")
	}
}

// ensureLoaded requiere r.mu tomado.
func (r *Registry) ensureLoaded(ctx context.Context) error {
	if r.instances != nil && r.now().Before(r.loadedAt.Add(r.ttl)) {
		return nil
	}

	fingerprint, err := r.store.Fingerprint()
	if err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el directorio de módulos")
	}

	idx, err := r.cache.Load()
	if err != nil {
		r.log.Debug().Err(err).Msg("registry: caché ilegible, se reconstruye")
		idx = nil
	}
	if idx != nil && idx.Fingerprint == fingerprint && r.now().Before(time.Unix(idx.BuiltAt, 0).Add(r.ttl)) {
		r.hydrate(idx.Entries)
		return nil
	}

	entries, err := r.build(ctx)
	if err != nil {
		return err
	}
	r.hydrate(entries)
	err = r.cache.Save(&ports.RegistryIndex{
		Fingerprint: fingerprint,
		BuiltAt:     r.now().Unix(),
		Entries:     entries,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("registry: no se pudo escribir el caché")
	}
	return nil
}

// build cruza catálogo, manifiestos y fábricas.
func (r *Registry) build(ctx context.Context) (map[string]string, error) {
	catalog, err := r.repo.List(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el catálogo de módulos")
	}
	manifests, err := r.store.Scan(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo escanear el directorio de módulos")
	}
	onDisk := make(map[string]string, len(manifests))
	for _, m := range manifests {
		onDisk[entity.NormalizeModuleKey(m.Key)] = m.Dir
	}

	entries := make(map[string]string)
	for _, rec := range catalog {
		dir, ok := onDisk[rec.Key]
		if !ok {
			continue
		}
		if _, ok := r.lookup(rec.Key); !ok {
			r.log.Warn().Str("module", rec.Key).Msg("registry: módulo en disco sin implementación compilada")
			continue
		}
		entries[rec.Key] = dir
	}
	r.log.Debug().Int("catalog", len(catalog)).Int("on_disk", len(manifests)).Int("registered", len(entries)).Msg("registry: índice reconstruido")
	return entries, nil
}

func (r *Registry) hydrate(entries map[string]string) {
	r.dirs = make(map[string]string, len(entries))
	r.instances = make(map[string]plugin.Module, len(entries))
	for key, dir := range entries {
		factory, ok := r.lookup(key)
		if !ok {
			continue
		}
		inst := factory()
		if entity.NormalizeModuleKey(inst.Key()) != key {
			r.log.Warn().Str("module", key).Str("instance_key", inst.Key()).Msg("registry: la fábrica devuelve otra clave")
			continue
		}
		r.dirs[key] = dir
		r.instances[key] = inst
	}
	r.loadedAt = r.now()
}
