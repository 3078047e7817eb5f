package models

import "strings"

const ProviderLocal = "local"

type User struct {
	Base
	Username     string `gorm:"not null" json:"username"`
	UsernameKey  string `gorm:"uniqueIndex;not null" json:"-"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Provider     string `gorm:"not null;default:'local'" json:"provider"`
	Confirmed    bool   `gorm:"not null;default:false" json:"confirmed"`
	Blocked      bool   `gorm:"not null;default:false" json:"blocked"`
	RoleID       *uint  `gorm:"index" json:"-"`

	// Relationships
	Role    *Role    `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Tenants []Tenant `gorm:"many2many:tenant_users" json:"tenants,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameKeyOf is the case-insensitive comparison key for a username.
func UsernameKeyOf(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// PrimaryTenant is the membership with the lowest tenant id, nil when the
// user belongs to no tenant.
func (u *User) PrimaryTenant() *Tenant {
	var primary *Tenant
	for i := range u.Tenants {
		if primary == nil || u.Tenants[i].ID < primary.ID {
			primary = &u.Tenants[i]
		}
	}
	return primary
}

// MemberOf reports whether tenantID is among the loaded memberships.
func (u *User) MemberOf(tenantID uint) bool {
	for _, t := range u.Tenants {
		if t.ID == tenantID {
			return true
		}
	}
	return false
}
