package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/inkpress/internal/api/dto"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/tenant"
	"github.com/hugh/inkpress/internal/testutil"
	"github.com/hugh/inkpress/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, authLimit int) (*Router, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	logger := util.Discard()

	users := auth.NewStore(tc.DB)
	tenants := tenant.NewStore(tc.DB)

	router := NewRouter(RouterConfig{
		DB:                tc.DB,
		Logger:            logger,
		JWTService:        tc.JWTService,
		AuthService:       auth.NewService(users, tenants, tc.JWTService, nil, logger),
		Gate:              auth.NewGate(users),
		TenantService:     tenant.NewService(tenants, tenant.NewCache(nil, time.Minute, logger), logger),
		RateLimitReqs:     1000,
		RateLimitSecs:     60,
		AuthRateLimitReqs: authLimit,
	})
	return router, tc
}

func TestRouter_RegisterThenManageTenant(t *testing.T) {
	router, _ := setupRouter(t, 100)

	body := map[string]string{
		"username": "Mia",
		"email":    "mia@example.com",
		"password": "hunter22",
		"role":     "Tenant Admin",
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/local/register", body))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var reg dto.RegisterResponse
	testutil.ParseJSONResponse(t, rr, &reg)
	require.NotNil(t, reg.Tenant)
	assert.Equal(t, "Mia's Organization", reg.Tenant.Name)
	assert.Equal(t, "mia", reg.Tenant.Slug)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "GET", "/api/tenant/users/me", nil, reg.JWT))
	testutil.AssertStatus(t, rr, http.StatusOK)

	path := fmt.Sprintf("/api/tenants/%d/theme-settings", reg.Tenant.ID)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "PUT", path, map[string]any{"primaryColor": "#000000"}, reg.JWT))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "GET", "/api/tenants/by-slug/mia", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var summary tenant.Summary
	testutil.ParseJSONResponse(t, rr, &summary)
	assert.Equal(t, "#000000", summary.ThemeSettings["primaryColor"])
}

func TestRouter_ContributorCannotReachTenantRoutes(t *testing.T) {
	router, tc := setupRouter(t, 100)

	body := map[string]string{
		"username": "cora",
		"email":    "cora@example.com",
		"password": "hunter22",
		"role":     "Contributor",
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/local/register", body))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var reg dto.RegisterResponse
	testutil.ParseJSONResponse(t, rr, &reg)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "GET", "/api/users/me", nil, reg.JWT))
	testutil.AssertStatus(t, rr, http.StatusOK)

	path := fmt.Sprintf("/api/tenants/%d/theme-settings", tc.Tenant.ID)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "GET", path, nil, reg.JWT))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestRouter_AuthRateLimit(t *testing.T) {
	router, tc := setupRouter(t, 2)

	body := map[string]string{"identifier": tc.Admin.Email, "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/local", body))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/local", body))
	testutil.AssertStatus(t, rr, http.StatusTooManyRequests)
}

func TestRouter_FallbacksAreJSON(t *testing.T) {
	router, _ := setupRouter(t, 100)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "GET", "/api/nothing-here", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.Equal(t, "NotFoundError", testutil.ParseError(t, rr).Error.Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "GET", "/api/auth/local", nil))
	testutil.AssertStatus(t, rr, http.StatusMethodNotAllowed)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "GET", "/health", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "GET", "/metrics", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "inkpress_http_requests_total")
}
