package models

import (
	"testing"

	"github.com/hugh/inkpress/internal/roles"
	"github.com/stretchr/testify/assert"
)

func TestThemeSettings_Merge(t *testing.T) {
	base := ThemeSettings{
		"primaryColor":   "#111111",
		"secondaryColor": "#222222",
		"fontFamily":     "Inter",
		"header":         map[string]any{"sticky": true, "height": 64.0},
	}

	merged := base.Merge(map[string]any{
		"primaryColor": "#333333",
		"header":       map[string]any{"height": 80.0},
		"logo":         nil,
	})

	assert.Equal(t, "#333333", merged["primaryColor"])
	assert.Equal(t, "#222222", merged["secondaryColor"])
	assert.Equal(t, "Inter", merged["fontFamily"])
	assert.Equal(t, map[string]any{"sticky": true, "height": 80.0}, merged["header"])
	assert.Contains(t, merged, "logo")
	assert.Nil(t, merged["logo"])

	// the receiver is untouched
	assert.Equal(t, "#111111", base["primaryColor"])
	assert.Equal(t, 64.0, base["header"].(map[string]any)["height"])
}

func TestDefaultThemeSettings(t *testing.T) {
	s := DefaultThemeSettings()
	assert.Equal(t, DefaultPrimaryColor, s["primaryColor"])
	assert.Equal(t, DefaultSecondaryColor, s["secondaryColor"])
	assert.Contains(t, s, "logo")
	assert.Nil(t, s["logo"])
}

func TestUser_PrimaryTenant(t *testing.T) {
	u := &User{}
	assert.Nil(t, u.PrimaryTenant())

	u.Tenants = []Tenant{
		{Base: Base{ID: 9}, Slug: "later"},
		{Base: Base{ID: 3}, Slug: "first"},
	}
	assert.Equal(t, "first", u.PrimaryTenant().Slug)
	assert.True(t, u.MemberOf(9))
	assert.False(t, u.MemberOf(4))
}

func TestNormalization(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "jane_doe", UsernameKeyOf("Jane_Doe "))
}

func TestRole_Kind(t *testing.T) {
	var nilRole *Role
	assert.Equal(t, roles.Unknown, nilRole.Kind())
	assert.Equal(t, roles.TenantAdmin, (&Role{Name: "tenant admin"}).Kind())
}
