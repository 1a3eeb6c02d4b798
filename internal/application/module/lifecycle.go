package module

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/licensing"
	"github.com/jhoicas/appstore-api/internal/domain/repository"
	"github.com/jhoicas/appstore-api/internal/plugin"
	"github.com/jhoicas/appstore-api/pkg/version"
)

// Resolver vista del registro que usan el ciclo de vida y el catálogo.
type Resolver interface {
	Get(ctx context.Context, key string) (plugin.Module, error)
	Dir(ctx context.Context, key string) (string, error)
	List(ctx context.Context) ([]plugin.Module, error)
	// Instantiate crea la instancia compilada aunque no haya archivos en disco (nil si no existe).
	Instantiate(key string) plugin.Module
	Invalidate()
}

// LicenseChecker gate de licencias.
type LicenseChecker interface {
	Check(ctx context.Context, m *entity.Module, action licensing.Action) (licensing.Decision, error)
}

// PackageSource descarga paquetes de módulos.
type PackageSource interface {
	Download(ctx context.Context, key, version string) ([]byte, error)
}

// SchemaAdmin ejecuta el DDL de los hooks y borra las tablas de un módulo en purge.
type SchemaAdmin interface {
	plugin.SchemaExecutor
	DropTables(ctx context.Context, tables []string) error
}

var _ Resolver = (*Registry)(nil)

// LifecycleDeps dependencias del ciclo de vida.
type LifecycleDeps struct {
	Modules  repository.ModuleRepository
	Audit    repository.AuditRepository
	Registry Resolver
	License  LicenseChecker
	Store    ports.ModuleStore
	Packages PackageSource
	Schema   SchemaAdmin
	// BaseURL prefijo de redirect_url (p. ej. "/appstore").
	BaseURL string
}

// Lifecycle ejecuta install, enable, disable, uninstall, update, download y purge.
//
// Cada acción sigue el mismo orden: normalizar la clave, leer el registro del catálogo,
// verificar precondiciones de estado, consultar el gate de licencias, verificar
// dependencias, ejecutar el hook del módulo y persistir. Toda acción, exitosa o no,
// deja una entrada de auditoría.
type Lifecycle struct {
	deps  LifecycleDeps
	log   zerolog.Logger
	now   func() time.Time
	locks keyedMutex
}

func NewLifecycle(deps LifecycleDeps, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{deps: deps, log: log, now: time.Now}
}

// Install instala un módulo cuyos archivos ya están en disco.
func (l *Lifecycle) Install(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionInstall, key, actor, l.install)
}

// Enable activa un módulo instalado.
func (l *Lifecycle) Enable(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionEnable, key, actor, l.enable)
}

// Disable desactiva un módulo sin borrar datos.
func (l *Lifecycle) Disable(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionDisable, key, actor, l.disable)
}

// Uninstall desinstala conservando las tablas del módulo.
func (l *Lifecycle) Uninstall(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionUninstall, key, actor, l.uninstall)
}

// Update descarga la versión publicada y migra.
func (l *Lifecycle) Update(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionUpdate, key, actor, l.update)
}

// Download trae los archivos del módulo a MODULES_DIR sin instalarlo.
func (l *Lifecycle) Download(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionDownload, key, actor, l.download)
}

// Purge desinstala, borra las tablas del módulo y su directorio.
func (l *Lifecycle) Purge(ctx context.Context, key, actor string) (*dto.ActionResponse, error) {
	return l.run(ctx, licensing.ActionPurge, key, actor, l.purge)
}

// Audit historial de acciones de un módulo, más recientes primero.
func (l *Lifecycle) Audit(ctx context.Context, key string, limit int) ([]dto.AuditEntryResponse, error) {
	key = entity.NormalizeModuleKey(key)
	rec, err := l.deps.Modules.GetByKey(ctx, key)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el módulo '%s'", key)
	}
	if rec == nil {
		return nil, domain.NewError(domain.ErrNotFound, "el módulo '%s' no existe en el catálogo", key)
	}
	entries, err := l.deps.Audit.ListByModule(ctx, key, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer la auditoría")
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			Action:    e.Action,
			Success:   e.Success,
			Message:   e.Message,
			Actor:     e.Actor,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

// outcome lo que una acción deja para la respuesta y la auditoría.
type outcome struct {
	message      string
	meta         map[string]any
	freeFallback bool
}

type step func(ctx context.Context, rec *entity.Module, out *outcome) error

func (l *Lifecycle) run(ctx context.Context, action licensing.Action, rawKey, actor string, fn step) (*dto.ActionResponse, error) {
	key := entity.NormalizeModuleKey(rawKey)
	out := &outcome{meta: map[string]any{}}
	if key == "" {
		return l.finish(ctx, action, key, actor, out, domain.NewError(domain.ErrInvalidInput, "la clave del módulo es obligatoria"))
	}

	unlock := l.locks.lock(key)
	defer unlock()

	rec, err := l.deps.Modules.GetByKey(ctx, key)
	if err == nil && rec == nil {
		err = domain.NewError(domain.ErrNotFound, "el módulo '%s' no existe en el catálogo", key)
	} else if err != nil {
		err = domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el módulo '%s'", key)
	}
	if err == nil {
		err = fn(ctx, rec, out)
	}
	return l.finish(ctx, action, key, actor, out, err)
}

// finish escribe la auditoría y arma la respuesta. Un fallo al auditar no cambia el resultado.
func (l *Lifecycle) finish(ctx context.Context, action licensing.Action, key, actor string, out *outcome, err error) (*dto.ActionResponse, error) {
	entry := &entity.AuditEntry{
		ID:        uuid.NewString(),
		ModuleKey: key,
		Action:    string(action),
		Success:   err == nil,
		Message:   out.message,
		Actor:     actor,
		Metadata:  out.meta,
		CreatedAt: l.now().UTC(),
	}
	if err != nil {
		entry.Message = domain.UserMessage(err)
	}
	if aerr := l.deps.Audit.Insert(context.WithoutCancel(ctx), entry); aerr != nil {
		l.log.Error().Err(aerr).Str("module", key).Str("action", string(action)).Msg("lifecycle: no se pudo registrar la auditoría")
	}

	if err != nil {
		l.log.Warn().Err(err).Str("module", key).Str("action", string(action)).Str("actor", actor).Msg("lifecycle: acción rechazada")
		return nil, err
	}
	l.log.Info().Str("module", key).Str("action", string(action)).Str("actor", actor).Msg(out.message)
	return &dto.ActionResponse{
		Success:      true,
		Message:      out.message,
		RedirectURL:  l.redirect(key),
		FreeFallback: out.freeFallback,
	}, nil
}

func (l *Lifecycle) redirect(key string) string {
	return l.deps.BaseURL + "/modules/" + key
}

func (l *Lifecycle) install(ctx context.Context, rec *entity.Module, out *outcome) error {
	if rec.IsInstalled {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' ya está instalado", rec.Key)
	}
	mod, dir, err := l.resolve(ctx, rec.Key, true)
	if err != nil {
		return err
	}
	if err := l.authorize(ctx, rec, licensing.ActionInstall, out); err != nil {
		return err
	}
	if err := l.requireDependencies(ctx, mod); err != nil {
		return err
	}
	if err := mod.Install(ctx, l.hookContext(rec, dir)); err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "falló la instalación de '%s'", rec.Key)
	}

	now := l.now().UTC()
	rec.IsInstalled = true
	rec.IsEnabled = false
	if rec.AvailableVersion != "" {
		rec.Version = rec.AvailableVersion
	}
	rec.InstalledAt = &now
	if err := l.persist(ctx, rec); err != nil {
		return err
	}
	out.message = fmt.Sprintf("módulo '%s' instalado", rec.Key)
	out.meta["version"] = rec.Version
	return nil
}

func (l *Lifecycle) enable(ctx context.Context, rec *entity.Module, out *outcome) error {
	if !rec.IsInstalled {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' no está instalado", rec.Key)
	}
	if rec.IsEnabled {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' ya está habilitado", rec.Key)
	}
	mod, dir, err := l.resolve(ctx, rec.Key, true)
	if err != nil {
		return err
	}
	if err := l.authorize(ctx, rec, licensing.ActionEnable, out); err != nil {
		return err
	}
	if err := l.requireDependencies(ctx, mod); err != nil {
		return err
	}
	if err := mod.Enable(ctx, l.hookContext(rec, dir)); err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "falló la activación de '%s'", rec.Key)
	}
	rec.IsEnabled = true
	if err := l.persist(ctx, rec); err != nil {
		return err
	}
	out.message = fmt.Sprintf("módulo '%s' habilitado", rec.Key)
	return nil
}

func (l *Lifecycle) disable(ctx context.Context, rec *entity.Module, out *outcome) error {
	if !rec.IsInstalled || !rec.IsEnabled {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' no está habilitado", rec.Key)
	}
	if err := l.authorize(ctx, rec, licensing.ActionDisable, out); err != nil {
		return err
	}
	if err := l.requireNoDependents(ctx, rec.Key, true); err != nil {
		return err
	}
	mod, dir, err := l.resolve(ctx, rec.Key, false)
	if err != nil {
		return err
	}
	if mod != nil {
		if err := mod.Disable(ctx, l.hookContext(rec, dir)); err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "falló la desactivación de '%s'", rec.Key)
		}
	} else {
		out.meta["hook_skipped"] = true
	}
	rec.IsEnabled = false
	if err := l.persist(ctx, rec); err != nil {
		return err
	}
	out.message = fmt.Sprintf("módulo '%s' deshabilitado", rec.Key)
	return nil
}

func (l *Lifecycle) uninstall(ctx context.Context, rec *entity.Module, out *outcome) error {
	if !rec.IsInstalled {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' no está instalado", rec.Key)
	}
	if err := l.authorize(ctx, rec, licensing.ActionUninstall, out); err != nil {
		return err
	}
	if err := l.requireNoDependents(ctx, rec.Key, false); err != nil {
		return err
	}
	mod, dir, err := l.resolve(ctx, rec.Key, false)
	if err != nil {
		return err
	}
	if mod != nil {
		hc := l.hookContext(rec, dir)
		if rec.IsEnabled {
			if err := mod.Disable(ctx, hc); err != nil {
				return domain.WrapError(domain.ErrInfrastructure, err, "falló la desactivación de '%s'", rec.Key)
			}
		}
		if err := mod.Uninstall(ctx, hc); err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "falló la desinstalación de '%s'", rec.Key)
		}
	} else {
		out.meta["hook_skipped"] = true
	}
	rec.IsInstalled = false
	rec.IsEnabled = false
	if err := l.persist(ctx, rec); err != nil {
		return err
	}
	out.message = fmt.Sprintf("módulo '%s' desinstalado; sus datos se conservan", rec.Key)
	return nil
}

func (l *Lifecycle) update(ctx context.Context, rec *entity.Module, out *outcome) error {
	if !rec.IsInstalled {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' no está instalado", rec.Key)
	}
	if !version.HasNewer(rec.Version, rec.AvailableVersion) {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' ya está en la última versión (%s)", rec.Key, rec.Version)
	}
	if err := l.authorize(ctx, rec, licensing.ActionUpdate, out); err != nil {
		return err
	}
	current, _, err := l.resolve(ctx, rec.Key, true)
	if err != nil {
		return err
	}
	if err := l.requireDependencies(ctx, current); err != nil {
		return err
	}
	if err := l.stage(ctx, rec.Key, rec.AvailableVersion); err != nil {
		return err
	}
	// Hasta persistir la versión nueva, cualquier fallo devuelve los archivos anteriores.
	committed := false
	defer func() {
		if !committed {
			l.rollback(ctx, rec.Key)
		}
	}()

	mod, dir, err := l.resolve(ctx, rec.Key, true)
	if err != nil {
		return err
	}
	from, to := rec.Version, rec.AvailableVersion
	if up, ok := mod.(plugin.Upgrader); ok {
		if err := up.Upgrade(ctx, l.hookContext(rec, dir), from, to); err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "falló la migración de '%s' a %s", rec.Key, to)
		}
	}
	rec.Version = to
	if err := l.persist(ctx, rec); err != nil {
		rec.Version = from
		return err
	}
	committed = true
	l.commit(ctx, rec.Key)
	out.message = fmt.Sprintf("módulo '%s' actualizado a %s", rec.Key, to)
	out.meta["from"] = from
	out.meta["to"] = to
	return nil
}

func (l *Lifecycle) download(ctx context.Context, rec *entity.Module, out *outcome) error {
	if !rec.IsAvailable {
		return domain.NewError(domain.ErrPrecondition, "el módulo '%s' ya no está publicado", rec.Key)
	}
	if err := l.authorize(ctx, rec, licensing.ActionDownload, out); err != nil {
		return err
	}
	ver := rec.AvailableVersion
	if ver == "" {
		ver = rec.Version
	}
	if err := l.stage(ctx, rec.Key, ver); err != nil {
		return err
	}
	l.commit(ctx, rec.Key)
	out.message = fmt.Sprintf("módulo '%s' descargado", rec.Key)
	out.meta["version"] = ver
	return nil
}

func (l *Lifecycle) purge(ctx context.Context, rec *entity.Module, out *outcome) error {
	if err := l.authorize(ctx, rec, licensing.ActionPurge, out); err != nil {
		return err
	}
	if err := l.requireNoDependents(ctx, rec.Key, false); err != nil {
		return err
	}
	mod, dir, err := l.resolve(ctx, rec.Key, false)
	if err != nil {
		return err
	}
	if mod == nil {
		// Sin archivos en disco las tablas se conocen por la implementación compilada.
		if mod = l.deps.Registry.Instantiate(rec.Key); mod == nil {
			return domain.NewError(domain.ErrPrecondition, "el módulo '%s' no tiene implementación en este binario; no se pueden borrar sus datos", rec.Key)
		}
		out.meta["files_missing"] = true
	}
	hc := l.hookContext(rec, dir)
	if rec.IsEnabled {
		if err := mod.Disable(ctx, hc); err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "falló la desactivación de '%s'", rec.Key)
		}
	}
	if rec.IsInstalled {
		if err := mod.Uninstall(ctx, hc); err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "falló la desinstalación de '%s'", rec.Key)
		}
	}
	tables := mod.DataTables()
	if len(tables) > 0 {
		if err := l.deps.Schema.DropTables(ctx, tables); err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "no se pudieron borrar los datos de '%s'", rec.Key)
		}
	}
	out.meta["tables"] = tables
	if err := l.deps.Store.Remove(ctx, rec.Key); err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "no se pudo borrar el directorio de '%s'", rec.Key)
	}
	rec.IsInstalled = false
	rec.IsEnabled = false
	rec.Version = ""
	rec.InstalledAt = nil
	if err := l.persist(ctx, rec); err != nil {
		return err
	}
	out.message = fmt.Sprintf("módulo '%s' eliminado junto con sus datos", rec.Key)
	return nil
}

// resolve instancia y directorio del módulo. Con required, la ausencia es ErrNotFound.
func (l *Lifecycle) resolve(ctx context.Context, key string, required bool) (plugin.Module, string, error) {
	mod, err := l.deps.Registry.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if mod == nil {
		if required {
			return nil, "", domain.NewError(domain.ErrNotFound, "los archivos del módulo '%s' no están disponibles; descárguelo primero", key)
		}
		return nil, "", nil
	}
	dir, err := l.deps.Registry.Dir(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return mod, dir, nil
}

func (l *Lifecycle) authorize(ctx context.Context, rec *entity.Module, action licensing.Action, out *outcome) error {
	d, err := l.deps.License.Check(ctx, rec, action)
	if err != nil {
		return err
	}
	if !d.Allowed {
		out.meta["license_code"] = string(d.Code)
		return domain.NewError(domain.ErrLicenseDenied, "%s", d.Message)
	}
	if d.FreeFallback {
		out.freeFallback = true
		out.meta["free_fallback"] = true
	}
	return nil
}

// requireDependencies cada dependencia debe estar instalada y habilitada.
func (l *Lifecycle) requireDependencies(ctx context.Context, mod plugin.Module) error {
	for _, dep := range mod.Dependencies() {
		dep = entity.NormalizeModuleKey(dep)
		rec, err := l.deps.Modules.GetByKey(ctx, dep)
		if err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer la dependencia '%s'", dep)
		}
		if rec == nil || !rec.IsInstalled || !rec.IsEnabled {
			return domain.NewError(domain.ErrDependencyUnmet, "requiere el módulo '%s' instalado y habilitado", dep)
		}
	}
	return nil
}

// requireNoDependents falla si otro módulo depende de key. onlyEnabled restringe a
// dependientes habilitados (disable); si no, basta con que estén instalados.
func (l *Lifecycle) requireNoDependents(ctx context.Context, key string, onlyEnabled bool) error {
	mods, err := l.deps.Registry.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range mods {
		if m.Key() == key || !slices.ContainsFunc(m.Dependencies(), func(d string) bool {
			return entity.NormalizeModuleKey(d) == key
		}) {
			continue
		}
		rec, err := l.deps.Modules.GetByKey(ctx, m.Key())
		if err != nil {
			return domain.WrapError(domain.ErrInfrastructure, err, "no se pudo leer el módulo '%s'", m.Key())
		}
		if rec == nil || !rec.IsInstalled || (onlyEnabled && !rec.IsEnabled) {
			continue
		}
		return domain.NewError(domain.ErrDependencyUnmet, "el módulo '%s' depende de '%s'", m.Key(), key)
	}
	return nil
}

// stage descarga y extrae el paquete. Los archivos anteriores quedan apartados hasta commit
// o rollback; el registro se invalida para ver los nuevos.
func (l *Lifecycle) stage(ctx context.Context, key, ver string) error {
	archive, err := l.deps.Packages.Download(ctx, key, ver)
	if err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "no se pudo descargar '%s' %s", key, ver)
	}
	manifest, err := l.deps.Store.Extract(ctx, key, archive)
	if err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "paquete de '%s' inválido", key)
	}
	l.deps.Registry.Invalidate()
	if entity.NormalizeModuleKey(manifest.Key) != key {
		l.rollback(ctx, key)
		return domain.NewError(domain.ErrInfrastructure, "el paquete descargado declara la clave '%s' en lugar de '%s'", manifest.Key, key)
	}
	return nil
}

func (l *Lifecycle) commit(ctx context.Context, key string) {
	if err := l.deps.Store.Commit(context.WithoutCancel(ctx), key); err != nil {
		l.log.Warn().Err(err).Str("module", key).Msg("lifecycle: no se pudo descartar la versión anterior")
	}
}

func (l *Lifecycle) rollback(ctx context.Context, key string) {
	if err := l.deps.Store.Rollback(context.WithoutCancel(ctx), key); err != nil {
		l.log.Error().Err(err).Str("module", key).Msg("lifecycle: no se pudo restaurar la versión anterior")
	}
	l.deps.Registry.Invalidate()
}

func (l *Lifecycle) persist(ctx context.Context, rec *entity.Module) error {
	rec.UpdatedAt = l.now().UTC()
	if err := l.deps.Modules.UpdateState(ctx, rec); err != nil {
		return domain.WrapError(domain.ErrInfrastructure, err, "no se pudo guardar el estado de '%s'", rec.Key)
	}
	l.deps.Registry.Invalidate()
	return nil
}

func (l *Lifecycle) hookContext(rec *entity.Module, dir string) plugin.HookContext {
	path := ""
	if dir != "" {
		path = l.deps.Store.Path(dir)
	}
	return plugin.HookContext{
		Schema: l.deps.Schema,
		Logger: l.log.With().Str("module", rec.Key).Logger(),
		Record: rec,
		Dir:    path,
	}
}

// keyedMutex serializa acciones sobre un mismo módulo dentro del proceso.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
