package dto

import (
	"encoding/json"
	"strings"

	"github.com/hugh/inkpress/internal/api/validation"
	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/tenant"
)

type TenantView struct {
	ID            uint                 `json:"id"`
	Name          string               `json:"name"`
	Slug          string               `json:"slug"`
	Description   string               `json:"description,omitempty"`
	ThemeSettings models.ThemeSettings `json:"theme_settings"`
}

// NewTenantView returns nil for a nil tenant.
func NewTenantView(t *models.Tenant) *TenantView {
	if t == nil {
		return nil
	}
	return &TenantView{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		Description:   t.Description,
		ThemeSettings: t.ThemeSettings,
	}
}

type ThemeSettingsResponse struct {
	ThemeSettings models.ThemeSettings `json:"theme_settings"`
}

// DecodeThemePatch accepts either the bare settings object or one wrapped as
// {"theme_settings": {...}}.
func DecodeThemePatch(body []byte) (map[string]any, error) {
	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		return nil, err
	}
	if len(patch) == 1 {
		if inner, ok := patch["theme_settings"].(map[string]any); ok {
			return inner, nil
		}
	}
	return patch, nil
}

type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r UpdateProfileRequest) Input() tenant.ProfileInput {
	return tenant.ProfileInput{
		Name:        clean(r.Name),
		Description: clean(r.Description),
	}
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(validation.SanitizeString(*s))
	return &v
}
