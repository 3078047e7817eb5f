package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/database/models"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

// Summary is the public view of a tenant served to blog readers.
type Summary struct {
	ID            uint                 `json:"id"`
	Name          string               `json:"name"`
	Slug          string               `json:"slug"`
	Description   string               `json:"description,omitempty"`
	ThemeSettings models.ThemeSettings `json:"theme_settings"`
}

func summaryOf(t *models.Tenant) *Summary {
	return &Summary{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		Description:   t.Description,
		ThemeSettings: t.ThemeSettings,
	}
}

// ProfileInput is a partial update; nil fields are left unchanged.
type ProfileInput struct {
	Name        *string
	Description *string
}

type Service struct {
	store  *Store
	cache  *Cache
	logger *slog.Logger
}

func NewService(store *Store, cache *Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// memberTenant loads the tenant and checks that userID belongs to it.
func (s *Service) memberTenant(ctx context.Context, tenantID, userID uint) (*models.Tenant, error) {
	t, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, apperr.NotFound("Tenant not found")
		}
		return nil, fmt.Errorf("loading tenant: %w", err)
	}

	ok, err := s.store.IsMember(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("Access denied: not a member of this tenant")
	}
	return t, nil
}

// ThemeSettings returns the stored settings with defaults filled in for a
// tenant that never saved any.
func (s *Service) ThemeSettings(ctx context.Context, tenantID, userID uint) (models.ThemeSettings, error) {
	t, err := s.memberTenant(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if t.ThemeSettings == nil {
		return models.DefaultThemeSettings(), nil
	}
	return t.ThemeSettings, nil
}

// UpdateThemeSettings deep-merges patch into the stored settings.
func (s *Service) UpdateThemeSettings(ctx context.Context, tenantID, userID uint, patch map[string]any) (models.ThemeSettings, error) {
	if err := ValidateThemePatch(patch); err != nil {
		return nil, err
	}

	t, err := s.memberTenant(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	current := t.ThemeSettings
	if current == nil {
		current = models.DefaultThemeSettings()
	}
	t.ThemeSettings = current.Merge(patch)

	if err := s.store.SaveThemeSettings(ctx, t); err != nil {
		return nil, fmt.Errorf("saving theme settings: %w", err)
	}
	s.cache.Invalidate(ctx, t.Slug)

	s.logger.Info("theme settings updated", "tenant_id", t.ID, "user_id", userID)
	return t.ThemeSettings, nil
}

func (s *Service) UpdateProfile(ctx context.Context, tenantID, userID uint, in ProfileInput) (*models.Tenant, error) {
	details := map[string]string{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			details["name"] = "Name cannot be empty"
		case len(name) > maxNameLength:
			details["name"] = fmt.Sprintf("Name must be at most %d characters", maxNameLength)
		}
		in.Name = &name
	}
	if in.Description != nil && len(*in.Description) > maxDescriptionLength {
		details["description"] = fmt.Sprintf("Description must be at most %d characters", maxDescriptionLength)
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Invalid tenant profile", details)
	}

	t, err := s.memberTenant(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}

	if err := s.store.SaveProfile(ctx, t); err != nil {
		return nil, fmt.Errorf("saving tenant profile: %w", err)
	}
	s.cache.Invalidate(ctx, t.Slug)

	return t, nil
}

// BySlug serves the public tenant lookup, reading through the cache.
func (s *Service) BySlug(ctx context.Context, slug string) (*Summary, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, apperr.NotFound("Tenant not found")
	}

	if cached, ok := s.cache.Get(ctx, slug); ok {
		return cached, nil
	}

	t, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, apperr.NotFound("Tenant not found")
		}
		return nil, fmt.Errorf("loading tenant: %w", err)
	}
	if t.ThemeSettings == nil {
		t.ThemeSettings = models.DefaultThemeSettings()
	}

	summary := summaryOf(t)
	s.cache.Set(ctx, summary)
	return summary, nil
}
