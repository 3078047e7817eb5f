package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/inkpress/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieRequest(method, token string) *http.Request {
	req := httptest.NewRequest(method, "/api/tenants/1", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}
	return req
}

func TestCSRF(t *testing.T) {
	store := NewCSRFStore()
	const session = "eyJhbGciOiJIUzI1NiJ9.session-a"

	valid, err := store.Issue(cookieSession(cookieRequest(http.MethodGet, session)))
	require.NoError(t, err)

	handler := CSRF(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		method     string
		bearer     bool
		cookie     string
		csrf       string
		wantStatus int
		wantMsg    string
	}{
		{"safe method", http.MethodGet, false, session, "", http.StatusOK, ""},
		{"bearer bypass", http.MethodPut, true, "", "", http.StatusOK, ""},
		{"no session", http.MethodPut, false, "", "", http.StatusForbidden, "Session required"},
		{"missing token", http.MethodPut, false, session, "", http.StatusForbidden, "CSRF token missing"},
		{"wrong token", http.MethodPut, false, session, "nope", http.StatusForbidden, "Invalid CSRF token"},
		{"valid token", http.MethodPut, false, session, valid, http.StatusOK, ""},
		// same JWT header, different token: must not share the CSRF token
		{"other session", http.MethodPut, false, "eyJhbGciOiJIUzI1NiJ9.session-b", valid, http.StatusForbidden, "Invalid CSRF token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := cookieRequest(tt.method, tt.cookie)
			if tt.bearer {
				req.Header.Set("Authorization", "Bearer x")
			}
			if tt.csrf != "" {
				req.Header.Set(csrfHeaderName, tt.csrf)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, testutil.ParseError(t, rec).Error.Message)
			}
		})
	}
}

func TestCSRF_SetsCookieOnSafeRequest(t *testing.T) {
	store := NewCSRFStore()
	handler := CSRF(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := cookieRequest(http.MethodGet, "some.jwt.value")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	want, err := store.Issue(cookieSession(req))
	require.NoError(t, err)

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			found = true
			assert.Equal(t, want, c.Value)
			assert.False(t, c.HttpOnly)
		}
	}
	assert.True(t, found)
}

func TestCSRFStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewCSRFStore()
	store.now = func() time.Time { return now }

	token, err := store.Issue("s")
	require.NoError(t, err)
	assert.True(t, store.Validate("s", token))

	now = now.Add(csrfTokenExpiry + time.Second)
	assert.False(t, store.Validate("s", token))

	fresh, err := store.Issue("s")
	require.NoError(t, err)
	assert.NotEqual(t, token, fresh)
}
