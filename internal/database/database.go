package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/roles"
	"github.com/hugh/inkpress/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.Tenant{},
		&models.User{},
	)
}

// EnsureRoles seeds the role reference data. Existing rows are left alone.
func EnsureRoles(ctx context.Context, db *gorm.DB) error {
	for _, kind := range roles.All() {
		role := models.Role{
			Name:        kind.Name(),
			Description: kind.Description(),
			Type:        roleType(kind),
		}
		if err := db.WithContext(ctx).
			Where(models.Role{Name: role.Name}).
			Attrs(role).
			FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seeding role %q: %w", role.Name, err)
		}
	}
	return nil
}

func roleType(k roles.Kind) string {
	switch k {
	case roles.TenantAdmin:
		return "tenant_admin"
	case roles.Contributor:
		return "contributor"
	case roles.Authenticated:
		return "authenticated"
	default:
		return "public"
	}
}

// IsUniqueViolation reports whether err is a uniqueness constraint failure,
// either translated by gorm or raw from postgres (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
