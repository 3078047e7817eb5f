package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired decodes the token's exp claim without verifying the
// signature. Undecodable tokens count as expired; a token without exp does
// not expire locally and is left for the server to judge.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now)
}
