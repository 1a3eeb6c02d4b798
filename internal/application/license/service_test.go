package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/internal/domain/licensing"
	"github.com/jhoicas/appstore-api/internal/testutil"
)

type mockValidator struct{ mock.Mock }

func (m *mockValidator) Validate(ctx context.Context, req ports.ValidateRequest) (*ports.ValidateResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*ports.ValidateResult)
	return res, args.Error(1)
}

type memCache struct {
	snap    *licensing.Snapshot
	ttl     time.Duration
	deletes int
}

func (c *memCache) Get(context.Context) (*licensing.Snapshot, error) { return c.snap, nil }
func (c *memCache) Set(_ context.Context, s licensing.Snapshot, ttl time.Duration) error {
	c.snap, c.ttl = &s, ttl
	return nil
}
func (c *memCache) Delete(context.Context) error { c.snap = nil; c.deletes++; return nil }

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

func newTestService(cfg entity.LicenseConfig, remote Validator, cache ports.SnapshotCache, mods ...*entity.Module) (*Service, *testutil.LicenseRepo) {
	repo := testutil.NewLicenseRepo(cfg)
	svc := NewService(repo, testutil.NewModuleRepo(mods...), remote, cache, Options{
		LicenseKey: "LIC-123",
		TTL:        12 * time.Hour,
		Policy:     licensing.Policy{DevPlan: "developer"},
	}, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func paid(key string, installed bool) *entity.Module {
	return &entity.Module{Key: key, BillingTier: entity.TierPaid, IsInstalled: installed, IsEnabled: installed}
}

func TestSnapshot_DentroDelTTLNoLlamaRemoto(t *testing.T) {
	remote := new(mockValidator)
	svc, _ := newTestService(entity.LicenseConfig{
		Plan:               "business",
		ValidationOK:       true,
		CachedModules:      []string{"*"},
		PoliciesAcceptedAt: timePtr(fixedNow.Add(-48 * time.Hour)),
		LastValidatedAt:    timePtr(fixedNow.Add(-time.Hour)),
	}, remote, nil)

	snap, err := svc.Snapshot(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, snap.ValidationOK)
	assert.Equal(t, "business", snap.Plan)
	remote.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestSnapshot_TTLVencidoRevalidaYPersiste(t *testing.T) {
	remote := new(mockValidator)
	remote.On("Validate", mock.Anything, mock.MatchedBy(func(r ports.ValidateRequest) bool {
		return r.LicenseKey == "LIC-123" && len(r.Modules) == 1 && r.Modules[0].Key == "slareports"
	})).Return(&ports.ValidateResult{
		Success:        true,
		Plan:           "enterprise",
		ContractActive: boolPtr(true),
		AllowedModules: []string{"slareports"},
	}, nil).Once()

	svc, repo := newTestService(entity.LicenseConfig{
		PoliciesAcceptedAt: timePtr(fixedNow.Add(-48 * time.Hour)),
		LastValidatedAt:    timePtr(fixedNow.Add(-13 * time.Hour)),
	}, remote, nil, paid("slareports", true), &entity.Module{Key: "kb", BillingTier: entity.TierFree})

	snap, err := svc.Snapshot(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "enterprise", snap.Plan)
	assert.True(t, snap.ValidationOK)
	assert.False(t, snap.Degraded)

	saved := repo.Current()
	assert.Equal(t, entity.LicenseStatusActive, saved.LicenseStatus)
	require.NotNil(t, saved.LastValidatedAt)
	assert.True(t, saved.LastValidatedAt.Equal(fixedNow))
	remote.AssertExpectations(t)
}

func TestSnapshot_FalloRemotoDegradaSinPersistir(t *testing.T) {
	remote := new(mockValidator)
	remote.On("Validate", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout"))

	svc, repo := newTestService(entity.LicenseConfig{
		Plan:               "business",
		ValidationOK:       true,
		ContractActive:     boolPtr(true),
		CachedModules:      []string{"*"},
		PoliciesAcceptedAt: timePtr(fixedNow.Add(-48 * time.Hour)),
		LastValidatedAt:    timePtr(fixedNow.Add(-13 * time.Hour)),
	}, remote, nil)

	snap, err := svc.Snapshot(context.Background(), false)

	require.NoError(t, err, "un fallo remoto nunca se propaga como error")
	assert.True(t, snap.Degraded)
	assert.False(t, snap.ValidationOK)
	assert.Equal(t, entity.LicenseStatusUnreachable, snap.Status)
	assert.Equal(t, []string{"*"}, snap.AllowedModules, "se conserva la información cacheada")
	assert.Zero(t, repo.Saves)
}

func TestSnapshot_PoliticasNoAceptadasNoLlamaRemoto(t *testing.T) {
	remote := new(mockValidator)
	svc, _ := newTestService(entity.LicenseConfig{}, remote, nil)

	snap, err := svc.Snapshot(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, entity.LicenseStatusPoliciesNotAccepted, snap.Status)
	assert.False(t, snap.ValidationOK)
	remote.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestSnapshot_ErrorDeBaseDeDatos(t *testing.T) {
	svc, repo := newTestService(entity.LicenseConfig{}, new(mockValidator), nil)
	repo.Err = errors.New("pool closed")

	_, err := svc.Snapshot(context.Background(), false)

	assert.ErrorIs(t, err, domain.ErrInfrastructure)
}

func TestSnapshot_CacheL1(t *testing.T) {
	remote := new(mockValidator)
	remote.On("Validate", mock.Anything, mock.Anything).Return(&ports.ValidateResult{Success: true, Plan: "pro", AllowedModules: []string{"*"}}, nil).Once()
	cache := &memCache{}
	svc, _ := newTestService(entity.LicenseConfig{PoliciesAcceptedAt: timePtr(fixedNow)}, remote, cache)

	_, err := svc.Snapshot(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, cache.snap)
	assert.Equal(t, 12*time.Hour, cache.ttl)

	snap, err := svc.Snapshot(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "pro", snap.Plan)
	remote.AssertNumberOfCalls(t, "Validate", 1)
}

func TestCheck_UpdateFuerzaRevalidacion(t *testing.T) {
	remote := new(mockValidator)
	remote.On("Validate", mock.Anything, mock.Anything).Return(&ports.ValidateResult{
		Success: true, Plan: "business", ContractActive: boolPtr(false), AllowedModules: []string{"*"},
	}, nil).Once()
	cache := &memCache{}
	svc, _ := newTestService(entity.LicenseConfig{
		Plan:               "business",
		ValidationOK:       true,
		ContractActive:     boolPtr(true),
		CachedModules:      []string{"*"},
		PoliciesAcceptedAt: timePtr(fixedNow.Add(-48 * time.Hour)),
		LastValidatedAt:    timePtr(fixedNow.Add(-time.Minute)),
	}, remote, cache)

	d, err := svc.Check(context.Background(), paid("slareports", true), licensing.ActionUpdate)

	require.NoError(t, err)
	assert.False(t, d.Allowed, "la revalidación forzada ve el contrato caducado")
	assert.Equal(t, licensing.CodeContractInactive, d.Code)
	assert.Equal(t, 1, cache.deletes)
	remote.AssertExpectations(t)
}

func TestCheck_FreeYRetiroNoConsultanLicencia(t *testing.T) {
	remote := new(mockValidator)
	svc, repo := newTestService(entity.LicenseConfig{}, remote, nil)
	repo.Err = errors.New("no debería leerse")

	d, err := svc.Check(context.Background(), &entity.Module{Key: "kb", BillingTier: entity.TierFree}, licensing.ActionDownload)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = svc.Check(context.Background(), paid("slareports", true), licensing.ActionUninstall)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCanUse(t *testing.T) {
	remote := new(mockValidator)
	remote.On("Validate", mock.Anything, mock.Anything).Return(nil, errors.New("unreachable"))
	disabled := paid("assetinventory", true)
	disabled.IsEnabled = false
	svc, _ := newTestService(entity.LicenseConfig{PoliciesAcceptedAt: timePtr(fixedNow)}, remote, nil,
		paid("slareports", true), disabled)

	ok, err := svc.CanUse(context.Background(), "SLAReports")
	require.NoError(t, err)
	assert.True(t, ok, "PAID instalado sigue usable en modo gratuito aunque la API no responda")

	ok, err = svc.CanUse(context.Background(), "assetinventory")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanUse(context.Background(), "desconocido")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptPolicies_GuardaYRevalida(t *testing.T) {
	remote := new(mockValidator)
	remote.On("Validate", mock.Anything, mock.Anything).Return(&ports.ValidateResult{Success: true, Plan: "developer", AllowedModules: []string{}}, nil).Once()
	svc, repo := newTestService(entity.LicenseConfig{}, remote, nil)

	st, err := svc.AcceptPolicies(context.Background())

	require.NoError(t, err)
	assert.True(t, st.PoliciesAccepted)
	assert.Equal(t, "developer", st.Plan)
	assert.NotNil(t, repo.Current().PoliciesAcceptedAt)
	remote.AssertExpectations(t)
}
