package models

// ThemeSettings is a free-form JSON object. Known keys are primaryColor,
// secondaryColor, fontFamily and logo; unknown keys are kept as-is.
type ThemeSettings map[string]any

const (
	DefaultPrimaryColor   = "#4f46e5"
	DefaultSecondaryColor = "#f43f5e"
)

func DefaultThemeSettings() ThemeSettings {
	return ThemeSettings{
		"primaryColor":   DefaultPrimaryColor,
		"secondaryColor": DefaultSecondaryColor,
		"logo":           nil,
	}
}

// Merge deep-merges patch into a copy of s. Nested objects are merged key by
// key, every other value (including null) replaces the existing one.
func (s ThemeSettings) Merge(patch map[string]any) ThemeSettings {
	return ThemeSettings(mergeMaps(s, patch))
}

func mergeMaps(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		pv, pok := v.(map[string]any)
		bv, bok := out[k].(map[string]any)
		if pok && bok {
			out[k] = mergeMaps(bv, pv)
			continue
		}
		out[k] = v
	}
	return out
}

type Tenant struct {
	Base
	Name          string        `gorm:"not null" json:"name"`
	Slug          string        `gorm:"uniqueIndex;not null" json:"slug"`
	Description   string        `json:"description,omitempty"`
	ThemeSettings ThemeSettings `gorm:"serializer:json;type:text" json:"theme_settings"`

	// Relationships
	Users []User `gorm:"many2many:tenant_users" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// TenantMember is a row of the tenant_users join table. Memberships are
// written explicitly so tenant creation never upserts the user row.
type TenantMember struct {
	TenantID uint `gorm:"primaryKey"`
	UserID   uint `gorm:"primaryKey"`
}

func (TenantMember) TableName() string {
	return "tenant_users"
}
