package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/roles"
	"github.com/hugh/inkpress/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T, wantUserID uint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantUserID, GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestAuth_ValidToken_AuthorizationHeader(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	token, err := jwtService.GenerateToken(42)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	Auth(jwtService)(okHandler(t, 42)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_ValidToken_Cookie(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	token, err := jwtService.GenerateToken(7)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})

	rec := httptest.NewRecorder()
	Auth(jwtService)(okHandler(t, 7)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_ValidToken_XAuthTokenHeader(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	token, err := jwtService.GenerateToken(9)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("X-Auth-Token", token)

	rec := httptest.NewRecorder()
	Auth(jwtService)(okHandler(t, 9)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejects(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	past := time.Now().Add(-48 * time.Hour)
	expired, err := auth.NewJWTService("test-secret", time.Hour).
		WithClock(func() time.Time { return past }).
		GenerateToken(1)
	require.NoError(t, err)

	foreign, err := auth.NewJWTService("other-secret", time.Hour).GenerateToken(1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"no token", "", "Missing or invalid credentials"},
		{"garbage", "Bearer not-a-jwt", "Invalid or expired token"},
		{"expired", "Bearer " + expired, "Invalid or expired token"},
		{"different secret", "Bearer " + foreign, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := testutil.ParseError(t, rec)
			assert.Equal(t, "UnauthorizedError", body.Error.Name)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestGetUserID_NotInContext(t *testing.T) {
	assert.Zero(t, GetUserID(context.Background()))
	assert.Nil(t, GetUser(context.Background()))
}

func TestRequireRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	gate := auth.NewGate(auth.NewStore(db))

	admin := testutil.CreateTestUser(t, db, "alice", roles.TenantAdmin)
	writer := testutil.CreateTestUser(t, db, "bob", roles.Contributor)
	tenant := testutil.CreateTestTenant(t, db, "alice-blog", admin)

	tests := []struct {
		name       string
		userID     uint
		wantStatus int
		wantMsg    string
	}{
		{"tenant admin", admin.ID, http.StatusOK, ""},
		{"contributor", writer.ID, http.StatusForbidden, "Access denied: Tenant Admin role required"},
		{"unknown user", 9999, http.StatusNotFound, "User not found"},
		{"anonymous", 0, http.StatusUnauthorized, "Missing or invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(gate, roles.TenantAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user := GetUser(r.Context())
				require.NotNil(t, user)
				require.Len(t, user.Tenants, 1)
				assert.Equal(t, tenant.ID, user.Tenants[0].ID)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/tenant/users/me", nil)
			req = req.WithContext(context.WithValue(req.Context(), UserIDKey, tt.userID))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, testutil.ParseError(t, rec).Error.Message)
			}
		})
	}
}
