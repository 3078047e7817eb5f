package auth

import (
	"context"

	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/roles"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uint) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Authorizer is the role gate.
type Authorizer interface {
	Authorize(ctx context.Context, userID uint, required roles.Kind) (*models.User, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
	_ Authorizer    = (*Gate)(nil)
)
