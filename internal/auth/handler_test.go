package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/auth"
	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
	"github.com/vendorpulse/vendorpulse/internal/store/memstore"
	_ "github.com/vendorpulse/vendorpulse/testing"
)

type fixture struct {
	store   *memstore.Store
	tokens  *auth.TokenIssuer
	handler *auth.Handler
	router  http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := auth.NewHandler(nil, auth.NewService(store, tokens))
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return fixture{store: store, tokens: tokens, handler: handler, router: r}
}

func (f fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func problemDetail(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
	return problem.Detail
}

type sessionBody struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Vendor  auth.VendorView `json:"vendor"`
}

func TestRegisterLoginAndMe(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, http.MethodPost, "/auth/register", `{"name":"Acme","email":"Sales@Acme.test","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var registered sessionBody
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &registered))
	assert.Equal(t, "Vendor registered successfully", registered.Message)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "sales@acme.test", registered.Vendor.Email)
	assert.Equal(t, catalog.RoleVendor, registered.Vendor.Role)

	dup := f.do(t, http.MethodPost, "/auth/register", `{"name":"Acme 2","email":"sales@acme.test","password":"secret1"}`, "")
	assert.Equal(t, http.StatusBadRequest, dup.Code)
	assert.Equal(t, "Email already registered", problemDetail(t, dup))

	bad := f.do(t, http.MethodPost, "/auth/login", `{"email":"sales@acme.test","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, "Invalid credentials", problemDetail(t, bad))

	ok := f.do(t, http.MethodPost, "/auth/login", `{"email":"sales@acme.test","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, ok.Code)
	var login sessionBody
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &login))
	assert.Equal(t, "Login successful", login.Message)

	me := f.do(t, http.MethodGet, "/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, me.Code)
	var body struct {
		Vendor auth.VendorView `json:"vendor"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &body))
	assert.Equal(t, registered.Vendor.ID, body.Vendor.ID)
	assert.Equal(t, "Acme", body.Vendor.Name)
}

func TestRegisterValidatesPayload(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/auth/register", `{"name":"Acme","email":"a@acme.test","password":"123"}`, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodPost, "/auth/register", `{"name":`, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMeRejectsMissingAndInvalidTokens(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Authentication required", problemDetail(t, res))

	res = f.do(t, http.MethodGet, "/auth/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid authentication", problemDetail(t, res))

	orphan, err := f.tokens.Issue(&catalog.Vendor{ID: "gone", Email: "gone@acme.test"})
	require.NoError(t, err)
	res = f.do(t, http.MethodGet, "/auth/me", "", orphan)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid authentication", problemDetail(t, res))

	other := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, err := other.Issue(&catalog.Vendor{ID: "gone"})
	require.NoError(t, err)
	res = f.do(t, http.MethodGet, "/auth/me", "", forged)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginByName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.InsertVendor(context.Background(), &catalog.Vendor{ID: "v1", Name: "Kiosk", Email: "k@acme.test"}))

	res := f.do(t, http.MethodPost, "/auth/login-by-name", `{"name":"  "}`, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = f.do(t, http.MethodPost, "/auth/login-by-name", `{"name":"Nobody"}`, "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Vendor not found", problemDetail(t, res))

	res = f.do(t, http.MethodPost, "/auth/login-by-name", `{"name":"Kiosk"}`, "")
	require.Equal(t, http.StatusOK, res.Code)
	var session sessionBody
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &session))
	assert.Equal(t, "v1", session.Vendor.ID)
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	f := newFixture(t)
	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = f.do(t, http.MethodPost, "/auth/login", `{"email":"x@acme.test","password":"secret1"}`, "")
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.InsertVendor(ctx, &catalog.Vendor{ID: "v1", Name: "Vendor", Email: "v@acme.test"}))
	require.NoError(t, f.store.InsertVendor(ctx, &catalog.Vendor{ID: "a1", Name: "Admin", Email: "a@acme.test", Role: catalog.RoleAdmin}))

	mw := f.handler.Middleware()
	guarded := mw.Authenticate(mw.RequireRole(catalog.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(principal.VendorID))
	})))

	call := func(v *catalog.Vendor) *httptest.ResponseRecorder {
		token, err := f.tokens.Issue(v)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res := httptest.NewRecorder()
		guarded.ServeHTTP(res, req)
		return res
	}

	res := call(&catalog.Vendor{ID: "v1"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Insufficient permissions", problemDetail(t, res))

	res = call(&catalog.Vendor{ID: "a1"})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "a1", res.Body.String())
}
