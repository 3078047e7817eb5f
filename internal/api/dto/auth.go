package dto

import (
	"strings"

	"github.com/hugh/inkpress/internal/api/validation"
	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/database/models"
)

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	TenantName string `json:"tenantName,omitempty"`
}

func (r RegisterRequest) Validate() error {
	if blank(r.Username) || blank(r.Email) || blank(r.Password) || blank(r.Role) {
		return apperr.Validation("All fields are required", nil)
	}

	errors := make(map[string]string)
	if strings.Contains(r.Username, "@") {
		errors["username"] = "Must not contain @"
	}
	if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if len(r.TenantName) > 100 {
		errors["tenantName"] = "Must be at most 100 characters"
	}
	if len(errors) > 0 {
		return apperr.Validation("Invalid registration data", errors)
	}
	return nil
}

func (r RegisterRequest) Input() auth.RegisterInput {
	return auth.RegisterInput{
		Username:   validation.SanitizeString(r.Username),
		Email:      r.Email,
		Password:   r.Password,
		Role:       r.Role,
		TenantName: strings.TrimSpace(validation.SanitizeString(r.TenantName)),
	}
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if blank(r.Identifier) || r.Password == "" {
		return apperr.Validation("Identifier and password are required", nil)
	}
	return nil
}

func (r LoginRequest) Input() auth.LoginInput {
	return auth.LoginInput{Identifier: r.Identifier, Password: r.Password}
}

type RegisterResponse struct {
	JWT     string      `json:"jwt"`
	User    UserView    `json:"user"`
	Tenant  *TenantView `json:"tenant,omitempty"`
	Message string      `json:"message"`
}

type LoginResponse struct {
	JWT  string   `json:"jwt"`
	User UserView `json:"user"`
	Role *string  `json:"role"`
}

// UserView is the sanitized user; password hashes and internal keys never
// leave the service.
type UserView struct {
	ID        uint         `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	Provider  string       `json:"provider"`
	Confirmed bool         `json:"confirmed"`
	Blocked   bool         `json:"blocked"`
	Role      *RoleView    `json:"role"`
	Tenant    *TenantView  `json:"tenant"`
	Tenants   []TenantView `json:"tenants,omitempty"`
}

type RoleView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

func NewUserView(u *models.User) UserView {
	v := UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Provider:  u.Provider,
		Confirmed: u.Confirmed,
		Blocked:   u.Blocked,
		Tenant:    NewTenantView(u.PrimaryTenant()),
	}
	if u.Role != nil {
		v.Role = &RoleView{
			ID:          u.Role.ID,
			Name:        u.Role.Name,
			Description: u.Role.Description,
			Type:        u.Role.Type,
		}
	}
	for i := range u.Tenants {
		v.Tenants = append(v.Tenants, *NewTenantView(&u.Tenants[i]))
	}
	return v
}

// RoleName is the role's name, nil when the user has none.
func RoleName(u *models.User) *string {
	if u.Role == nil {
		return nil
	}
	name := u.Role.Name
	return &name
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
