package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/inkpress/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_TokenBucket(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, 60)
	rl.now = func() time.Time { return now }

	ok, remaining, _ := rl.Allow("1.2.3.4")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, remaining, reset := rl.Allow("1.2.3.4")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	assert.WithinDuration(t, now.Add(time.Minute), reset, time.Second)

	// one token comes back every 30s
	ok, _, retry := rl.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.WithinDuration(t, now.Add(30*time.Second), retry, time.Second)

	// other clients have their own bucket
	ok, _, _ = rl.Allow("5.6.7.8")
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	ok, _, _ = rl.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, _, _ = rl.Allow("1.2.3.4")
	assert.False(t, ok)
}

func TestRateLimit_RespondsWithJSON(t *testing.T) {
	handler := RateLimit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/local", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)

	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "RateLimitError", testutil.ParseError(t, rec).Error.Name)
}

func TestRateLimitByUser_KeysOnUserID(t *testing.T) {
	handler := RateLimitByUser(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID uint) int {
		req := httptest.NewRequest("GET", "/api/users/me", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(1))
	assert.Equal(t, http.StatusOK, send(2))
	assert.Equal(t, http.StatusTooManyRequests, send(1))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "1.1.1.1,2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "3.3.3.3"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
