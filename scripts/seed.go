//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/database"
	"github.com/hugh/inkpress/internal/roles"
	"github.com/hugh/inkpress/internal/tenant"
	"github.com/hugh/inkpress/pkg/config"
	"github.com/hugh/inkpress/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	if err := database.EnsureRoles(ctx, db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	// Create the demo Tenant Admin and its blog
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(auth.NewStore(db), tenant.NewStore(db), jwtService, nil, logger)

	username := envOr("ADMIN_USERNAME", "demo")
	email := envOr("ADMIN_EMAIL", "demo@example.com")
	password := envOr("ADMIN_PASSWORD", "demo1234")

	resp, err := authService.Register(ctx, auth.RegisterInput{
		Username:   username,
		Email:      email,
		Password:   password,
		Role:       roles.TenantAdmin.Name(),
		TenantName: "Demo Blog",
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) || errors.Is(err, apperr.ErrDuplicateUsername) {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Tenant: %s (/%s)\n", resp.Tenant.Name, resp.Tenant.Slug)
	fmt.Printf("Token: %s\n", resp.Token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
