package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/roles"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	UserKey   contextKey = "user"
)

// TokenCookie is the cookie the auth endpoints set for browser clients.
const TokenCookie = "token"

func Auth(tokens auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				respond.Error(w, r, apperr.ErrUnauthorized)
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				respond.Error(w, r, apperr.New(apperr.KindUnauthorized, "Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	// 1. Authorization header (API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	// 2. Cookie (browsers)
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// 3. X-Auth-Token header
	return r.Header.Get("X-Auth-Token")
}

// RequireRole runs the role gate for the authenticated user and stores the
// populated user in the request context. Must sit behind Auth.
func RequireRole(gate auth.Authorizer, required roles.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := gate.Authorize(r.Context(), GetUserID(r.Context()), required)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper functions to extract values from context
func GetUserID(ctx context.Context) uint {
	if id, ok := ctx.Value(UserIDKey).(uint); ok {
		return id
	}
	return 0
}

// GetUser returns the user loaded by RequireRole, nil outside it.
func GetUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(UserKey).(*models.User); ok {
		return u
	}
	return nil
}
