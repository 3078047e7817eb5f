package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugh/inkpress/internal/database/models"
	"gorm.io/gorm"
)

var ErrTenantNotFound = errors.New("tenant not found")

// Store is the persistence side of tenants and their memberships.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SlugTaken includes soft-deleted tenants, the unique index still covers them.
func (s *Store) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Unscoped().
		Model(&models.Tenant{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return count > 0, nil
}

// CreateWithOwner inserts the tenant and the owner's membership row in one
// transaction.
func (s *Store) CreateWithOwner(ctx context.Context, t *models.Tenant, ownerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Users").Create(t).Error; err != nil {
			return err
		}
		return tx.Create(&models.TenantMember{TenantID: t.ID, UserID: ownerID}).Error
	})
}

// HardDelete removes the tenant and its memberships, bypassing soft delete
// so the slug becomes available again.
func (s *Store) HardDelete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", id).Delete(&models.TenantMember{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Tenant{}, id).Error
	})
}

func (s *Store) FindByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) IsMember(ctx context.Context, tenantID, userID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.TenantMember{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return count > 0, nil
}

func (s *Store) SaveThemeSettings(ctx context.Context, t *models.Tenant) error {
	return s.db.WithContext(ctx).
		Model(t).
		Select("ThemeSettings", "UpdatedAt").
		Updates(t).Error
}

func (s *Store) SaveProfile(ctx context.Context, t *models.Tenant) error {
	return s.db.WithContext(ctx).
		Model(t).
		Select("Name", "Description", "UpdatedAt").
		Updates(t).Error
}
