package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/roles"
)

// Gate answers whether an authenticated user holds a required role.
type Gate struct {
	store *Store
}

func NewGate(store *Store) *Gate {
	return &Gate{store: store}
}

// Authorize returns the user with role and tenants populated when the user
// exists and holds exactly the required role.
func (g *Gate) Authorize(ctx context.Context, userID uint, required roles.Kind) (*models.User, error) {
	if userID == 0 {
		return nil, apperr.ErrUnauthorized
	}

	user, err := g.store.FindByID(ctx, userID, WithAll)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if user.Role == nil {
		return nil, apperr.Forbidden("User role not found")
	}
	if user.Role.Kind() != required {
		return nil, apperr.Newf(apperr.KindForbidden, "Access denied: %s role required", required)
	}

	return user, nil
}
