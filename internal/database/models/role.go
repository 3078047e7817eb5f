package models

import "github.com/hugh/inkpress/internal/roles"

type Role struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `gorm:"index" json:"type,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Kind maps the stored name onto the closed role enumeration.
func (r *Role) Kind() roles.Kind {
	if r == nil {
		return roles.Unknown
	}
	return roles.Parse(r.Name)
}
