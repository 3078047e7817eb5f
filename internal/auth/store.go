package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugh/inkpress/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
)

// Load selects which relations a user lookup populates.
type Load uint8

const (
	WithRole Load = 1 << iota
	WithTenants

	WithAll = WithRole | WithTenants
)

// Store is the credential store: users and the role reference data.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) query(ctx context.Context, load Load) *gorm.DB {
	q := s.db.WithContext(ctx)
	if load&WithRole != 0 {
		q = q.Preload("Role")
	}
	if load&WithTenants != 0 {
		q = q.Preload("Tenants", func(db *gorm.DB) *gorm.DB {
			return db.Order("tenants.id")
		})
	}
	return q
}

func (s *Store) FindByID(ctx context.Context, id uint, load Load) (*models.User, error) {
	var user models.User
	if err := s.query(ctx, load).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier matches identifier against the email or the username,
// case-insensitively.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string, load Load) (*models.User, error) {
	var user models.User
	err := s.query(ctx, load).
		Where("email = ? OR username_key = ?", models.NormalizeEmail(identifier), models.UsernameKeyOf(identifier)).
		Order("id").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// EmailTaken and UsernameTaken include soft-deleted rows, the unique
// indexes still cover them.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", models.NormalizeEmail(email))
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username_key = ?", models.UsernameKeyOf(username))
}

func (s *Store) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Unscoped().
		Model(&models.User{}).
		Where(cond, arg).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return count > 0, nil
}

// FindRoleByName matches the stored role name exactly.
func (s *Store) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Omit("Role", "Tenants").Create(user).Error
}

// HardDeleteUser removes the user row and any memberships, bypassing soft
// delete so the email and username become available again.
func (s *Store) HardDeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.TenantMember{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.User{}, id).Error
	})
}

// HasMembership reports whether the user belongs to any tenant.
func (s *Store) HasMembership(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.TenantMember{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
