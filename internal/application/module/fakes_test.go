package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/licensing"
	"github.com/jhoicas/appstore-api/internal/plugin"
	"github.com/jhoicas/appstore-api/internal/testutil"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// stubModule registra las llamadas a sus hooks.
type stubModule struct {
	plugin.Base
	key     string
	deps    []string
	tables  []string
	failOn  string
	mu      sync.Mutex
	calls   []string
	upgrade [2]string
}

func (m *stubModule) Key() string            { return m.key }
func (m *stubModule) Dependencies() []string { return m.deps }
func (m *stubModule) DataTables() []string   { return m.tables }

func (m *stubModule) hook(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	if m.failOn == name {
		return errors.New(name + " falló")
	}
	return nil
}

func (m *stubModule) Install(context.Context, plugin.HookContext) error   { return m.hook("install") }
func (m *stubModule) Uninstall(context.Context, plugin.HookContext) error { return m.hook("uninstall") }
func (m *stubModule) Enable(context.Context, plugin.HookContext) error    { return m.hook("enable") }
func (m *stubModule) Disable(context.Context, plugin.HookContext) error   { return m.hook("disable") }

func (m *stubModule) Upgrade(_ context.Context, _ plugin.HookContext, from, to string) error {
	m.upgrade = [2]string{from, to}
	return m.hook("upgrade")
}

func (m *stubModule) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// fakeStore directorio de módulos en memoria.
type fakeStore struct {
	mu          sync.Mutex
	manifests   map[string]ports.Manifest
	fingerprint string
	scans       int
	extracted   []string
	removed     []string
	extractKey  string // clave que declara el paquete extraído ("" = la pedida)
	extractVer  string
	extractErr  error
	backup      map[string]*ports.Manifest // versión apartada; nil = no existía
	committed   []string
	rolledBack  []string
}

func newFakeStore(keys ...string) *fakeStore {
	s := &fakeStore{manifests: map[string]ports.Manifest{}, backup: map[string]*ports.Manifest{}, fingerprint: "fp-1"}
	for _, k := range keys {
		s.manifests[k] = ports.Manifest{Key: k, Version: "1.0.0", Dir: k}
	}
	return s
}

func (s *fakeStore) Scan(context.Context) ([]ports.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	out := make([]ports.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeStore) Fingerprint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint, nil
}

func (s *fakeStore) Path(dir string) string { return "/modules/" + dir }

func (s *fakeStore) Extract(_ context.Context, key string, _ []byte) (*ports.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	if s.extractKey != "" && s.extractKey != key {
		return nil, fmt.Errorf("el paquete declara la clave '%s' en lugar de '%s'", s.extractKey, key)
	}
	if prev, ok := s.manifests[key]; ok {
		s.backup[key] = &prev
	} else {
		s.backup[key] = nil
	}
	m := ports.Manifest{Key: key, Version: s.extractVer, Dir: key}
	s.manifests[key] = m
	s.extracted = append(s.extracted, key)
	s.fingerprint += "+"
	return &m, nil
}

func (s *fakeStore) Commit(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.backup, key)
	s.committed = append(s.committed, key)
	return nil
}

func (s *fakeStore) Rollback(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.backup[key]; ok {
		if prev != nil {
			s.manifests[key] = *prev
		} else {
			delete(s.manifests, key)
		}
		delete(s.backup, key)
	}
	s.rolledBack = append(s.rolledBack, key)
	s.fingerprint += "~"
	return nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manifests, key)
	s.removed = append(s.removed, key)
	s.fingerprint += "-"
	return nil
}

// fakeRegistryCache caché del registro en memoria.
type fakeRegistryCache struct {
	idx    *ports.RegistryIndex
	saves  int
	clears int
}

func (c *fakeRegistryCache) Load() (*ports.RegistryIndex, error) { return c.idx, nil }
func (c *fakeRegistryCache) Save(idx *ports.RegistryIndex) error {
	c.idx = idx
	c.saves++
	return nil
}
func (c *fakeRegistryCache) Clear() error {
	c.idx = nil
	c.clears++
	return nil
}

// fakeChecker aplica la política real sobre un snapshot fijo y registra las acciones.
type fakeChecker struct {
	policy  licensing.Policy
	snap    licensing.Snapshot
	err     error
	actions []licensing.Action
}

func (f *fakeChecker) Check(_ context.Context, m *entity.Module, a licensing.Action) (licensing.Decision, error) {
	f.actions = append(f.actions, a)
	if f.err != nil {
		return licensing.Decision{}, f.err
	}
	return f.policy.Decide(m.BillingTier, m.Key, a, f.snap, m.IsInstalled), nil
}

func (f *fakeChecker) Snapshot(context.Context, bool) (licensing.Snapshot, error) { return f.snap, f.err }
func (f *fakeChecker) Policy() licensing.Policy                                   { return f.policy }

type fakePackages struct {
	archive []byte
	err     error
	calls   []string
}

func (p *fakePackages) Download(_ context.Context, key, version string) ([]byte, error) {
	p.calls = append(p.calls, key+"@"+version)
	if p.err != nil {
		return nil, p.err
	}
	if p.archive != nil {
		return p.archive, nil
	}
	return []byte("PK"), nil
}

type fakeSchema struct {
	stmts   []string
	dropped []string
}

func (s *fakeSchema) ExecSchema(_ context.Context, stmt string) error {
	s.stmts = append(s.stmts, stmt)
	return nil
}

func (s *fakeSchema) DropTables(_ context.Context, tables []string) error {
	s.dropped = append(s.dropped, tables...)
	return nil
}

// env arma un ciclo de vida completo sobre fakes.
type env struct {
	repo     *testutil.ModuleRepo
	audit    *testutil.AuditRepo
	store    *fakeStore
	cache    *fakeRegistryCache
	registry *Registry
	checker  *fakeChecker
	packages *fakePackages
	schema   *fakeSchema
	plugins  map[string]*stubModule
	lc       *Lifecycle
}

func newEnv(records []*entity.Module, plugins ...*stubModule) *env {
	e := &env{
		repo:     testutil.NewModuleRepo(records...),
		audit:    &testutil.AuditRepo{},
		cache:    &fakeRegistryCache{},
		checker:  &fakeChecker{policy: licensing.Policy{DevPlan: "developer"}},
		packages: &fakePackages{},
		schema:   &fakeSchema{},
		plugins:  map[string]*stubModule{},
	}
	keys := make([]string, 0, len(plugins))
	for _, p := range plugins {
		e.plugins[p.key] = p
		keys = append(keys, p.key)
	}
	e.store = newFakeStore(keys...)
	e.registry = NewRegistry(e.repo, e.store, e.cache, time.Hour, zerolog.Nop())
	e.registry.lookup = func(key string) (plugin.Factory, bool) {
		p, ok := e.plugins[key]
		if !ok {
			return nil, false
		}
		return func() plugin.Module { return p }, true
	}
	e.registry.now = func() time.Time { return testNow }
	e.lc = NewLifecycle(LifecycleDeps{
		Modules:  e.repo,
		Audit:    e.audit,
		Registry: e.registry,
		License:  e.checker,
		Store:    e.store,
		Packages: e.packages,
		Schema:   e.schema,
		BaseURL:  "/appstore",
	}, zerolog.Nop())
	e.lc.now = func() time.Time { return testNow }
	return e
}

func boolPtr(b bool) *bool { return &b }
