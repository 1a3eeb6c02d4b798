package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/domain"
	apphttp "github.com/jhoicas/appstore-api/internal/interfaces/http"
)

// ── fakes ───────────────────────────────────────────────────────────────────

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Cards(ctx context.Context) (*dto.ModuleListResponse, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(*dto.ModuleListResponse)
	return out, args.Error(1)
}

func (m *mockCatalog) Card(ctx context.Context, key string) (*dto.ModuleCard, error) {
	args := m.Called(ctx, key)
	out, _ := args.Get(0).(*dto.ModuleCard)
	return out, args.Error(1)
}

func (m *mockCatalog) Sync(ctx context.Context) (*dto.CatalogSyncResponse, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(*dto.CatalogSyncResponse)
	return out, args.Error(1)
}

// fakeLifecycle registra (acción, clave, actor) y devuelve err si está definido.
type fakeLifecycle struct {
	err   error
	calls []string
}

func (f *fakeLifecycle) do(action, key, actor string) (*dto.ActionResponse, error) {
	f.calls = append(f.calls, action+":"+key+":"+actor)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ActionResponse{Success: true, Message: action + " ok", RedirectURL: "/appstore/modules/" + key}, nil
}

func (f *fakeLifecycle) Install(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("install", k, a)
}
func (f *fakeLifecycle) Enable(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("enable", k, a)
}
func (f *fakeLifecycle) Disable(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("disable", k, a)
}
func (f *fakeLifecycle) Uninstall(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("uninstall", k, a)
}
func (f *fakeLifecycle) Update(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("update", k, a)
}
func (f *fakeLifecycle) Download(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("download", k, a)
}
func (f *fakeLifecycle) Purge(_ context.Context, k, a string) (*dto.ActionResponse, error) {
	return f.do("purge", k, a)
}
func (f *fakeLifecycle) Audit(_ context.Context, k string, limit int) ([]dto.AuditEntryResponse, error) {
	f.calls = append(f.calls, "audit:"+k)
	if f.err != nil {
		return nil, f.err
	}
	return []dto.AuditEntryResponse{{Action: "install", Success: true}}, nil
}

type fakeLicense struct {
	forced   []bool
	accepted int
}

func (f *fakeLicense) Status(_ context.Context, force bool) (*dto.LicenseStatusResponse, error) {
	f.forced = append(f.forced, force)
	return &dto.LicenseStatusResponse{Plan: "business", Status: "active", ValidationOK: true}, nil
}

func (f *fakeLicense) AcceptPolicies(context.Context) (*dto.LicenseStatusResponse, error) {
	f.accepted++
	return &dto.LicenseStatusResponse{Plan: "business", PoliciesAccepted: true}, nil
}

type fakeContact struct{ got dto.ContactRequest }

func (f *fakeContact) Submit(_ context.Context, in dto.ContactRequest) (*dto.ActionResponse, error) {
	f.got = in
	if in.Email == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "email: es requerido")
	}
	return &dto.ActionResponse{Success: true, Message: "enviado"}, nil
}

type fakeChecker struct {
	allowed map[string]bool
	err     error
}

func (f *fakeChecker) CanUse(_ context.Context, key string) (bool, error) {
	return f.allowed[key], f.err
}

type testServer struct {
	app       *fiber.App
	catalog   *mockCatalog
	lifecycle *fakeLifecycle
	license   *fakeLicense
	contact   *fakeContact
	checker   *fakeChecker
}

func newTestServer() *testServer {
	s := &testServer{
		catalog:   &mockCatalog{},
		lifecycle: &fakeLifecycle{},
		license:   &fakeLicense{},
		contact:   &fakeContact{},
		checker:   &fakeChecker{allowed: map[string]bool{"knowledgebase": true}},
	}
	s.app = apphttp.NewApp(apphttp.AppConfig{Name: "appstore-test"}, apphttp.RouterDeps{
		Catalog:    s.catalog,
		Lifecycle:  s.lifecycle,
		License:    s.license,
		Contact:    s.contact,
		Checker:    s.checker,
		ModuleKeys: []string{"knowledgebase", "slareports"},
		JWTSecret:  testJWTSecret,
		Logger:     zerolog.Nop(),
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, role, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// ── tests ───────────────────────────────────────────────────────────────────

func TestHealth_Publico(t *testing.T) {
	s := newTestServer()
	resp, body := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAppStore_RequiereAdmin(t *testing.T) {
	s := newTestServer()
	resp, _ := s.do(t, http.MethodGet, "/api/appstore/modules", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/appstore/modules/slareports/install", "operator", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, s.lifecycle.calls)
}

func TestModules_List(t *testing.T) {
	s := newTestServer()
	s.catalog.On("Cards", mock.Anything).Return(&dto.ModuleListResponse{
		Modules: []dto.ModuleCard{{Key: "knowledgebase", State: "enabled"}},
		Total:   1,
	}, nil)

	resp, body := s.do(t, http.MethodGet, "/api/appstore/modules", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])
	s.catalog.AssertExpectations(t)
}

func TestModules_CardNoEncontrado(t *testing.T) {
	s := newTestServer()
	s.catalog.On("Card", mock.Anything, "nada").Return(nil, domain.NewError(domain.ErrNotFound, "el módulo 'nada' no existe en el catálogo"))

	resp, body := s.do(t, http.MethodGet, "/api/appstore/modules/nada", "admin", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "el módulo 'nada' no existe en el catálogo", body["message"])
}

func TestModules_AccionesDelCicloDeVida(t *testing.T) {
	s := newTestServer()
	for _, action := range []string{"install", "enable", "disable", "uninstall", "update", "download", "purge"} {
		resp, body := s.do(t, http.MethodPost, "/api/appstore/modules/slareports/"+action, "admin", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, action)
		assert.Equal(t, true, body["success"], action)
		assert.Equal(t, "/appstore/modules/slareports", body["redirect_url"], action)
	}
	require.Len(t, s.lifecycle.calls, 7)
	assert.Equal(t, "install:slareports:"+testUserID, s.lifecycle.calls[0], "el actor es el usuario del token")
}

func TestModules_MapeoDeErrores(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewError(domain.ErrPrecondition, "ya instalado"), http.StatusConflict, "PRECONDITION"},
		{domain.NewError(domain.ErrLicenseDenied, "requiere licencia"), http.StatusForbidden, "LICENSE_DENIED"},
		{domain.NewError(domain.ErrDependencyUnmet, "falta knowledgebase"), http.StatusUnprocessableEntity, "DEPENDENCY_UNMET"},
		{domain.NewError(domain.ErrInfrastructure, "API caída"), http.StatusBadGateway, "UPSTREAM"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION"},
	}
	for _, tc := range cases {
		s := newTestServer()
		s.lifecycle.err = tc.err
		resp, body := s.do(t, http.MethodPost, "/api/appstore/modules/slareports/install", "admin", "")
		assert.Equal(t, tc.status, resp.StatusCode, tc.code)
		assert.Equal(t, tc.code, body["code"])
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestModules_Audit(t *testing.T) {
	s := newTestServer()
	resp, _ := s.do(t, http.MethodGet, "/api/appstore/modules/slareports/audit?limit=10", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"audit:slareports"}, s.lifecycle.calls)
}

func TestModules_AuditClaveDesconocida(t *testing.T) {
	s := newTestServer()
	s.lifecycle.err = domain.NewError(domain.ErrNotFound, "el módulo 'typo' no existe en el catálogo")

	resp, body := s.do(t, http.MethodGet, "/api/appstore/modules/typo/audit", "admin", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestCatalogSync(t *testing.T) {
	s := newTestServer()
	s.catalog.On("Sync", mock.Anything).Return(&dto.CatalogSyncResponse{Success: true, Synced: 3}, nil)

	resp, body := s.do(t, http.MethodPost, "/api/appstore/catalog/sync", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, body["synced"])
}

func TestLicense_StatusValidatePolicies(t *testing.T) {
	s := newTestServer()

	resp, body := s.do(t, http.MethodGet, "/api/appstore/license", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "business", body["plan"])

	resp, _ = s.do(t, http.MethodPost, "/api/appstore/license/validate", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []bool{false, true}, s.license.forced, "validate fuerza la revalidación")

	resp, body = s.do(t, http.MethodPost, "/api/appstore/license/policies", "admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["policies_accepted"])
	assert.Equal(t, 1, s.license.accepted)
}

func TestContact(t *testing.T) {
	s := newTestServer()
	resp, body := s.do(t, http.MethodPost, "/api/appstore/contact", "admin",
		`{"name":"Ana","email":"ana@example.com","subject":"Precio","message":"Quiero una cotización"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ana@example.com", s.contact.got.Email)

	resp, body = s.do(t, http.MethodPost, "/api/appstore/contact", "admin", `{"name":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email: es requerido", body["message"])

	resp, _ = s.do(t, http.MethodPost, "/api/appstore/contact", "admin", `{no-json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequireModule(t *testing.T) {
	s := newTestServer()

	resp, body := s.do(t, http.MethodGet, "/api/m/knowledgebase/status", "operator", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["active"])

	resp, body = s.do(t, http.MethodGet, "/api/m/slareports/status", "operator", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "MODULE_DISABLED", body["code"])

	s.checker.err = domain.ErrInfrastructure
	resp, _ = s.do(t, http.MethodGet, "/api/m/knowledgebase/status", "operator", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
