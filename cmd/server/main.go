package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/inkpress/internal/api"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/database"
	"github.com/hugh/inkpress/internal/tasks"
	"github.com/hugh/inkpress/internal/tenant"
	"github.com/hugh/inkpress/pkg/config"
	"github.com/hugh/inkpress/pkg/queue"
	"github.com/hugh/inkpress/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting inkpress server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Roles are reference data; registration never creates them
	if err := database.EnsureRoles(context.Background(), db); err != nil {
		logger.Error("failed to seed roles", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, tenant cache and compensation retries disabled", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	// Asynq client for compensation retries
	var asynqClient *asynq.Client
	var enqueuer auth.CompensationEnqueuer
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		enqueuer = tasks.NewEnqueuer(asynqClient)
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	userStore := auth.NewStore(db)
	tenantStore := tenant.NewStore(db)
	authService := auth.NewService(userStore, tenantStore, jwtService, enqueuer, logger)
	tenantService := tenant.NewService(tenantStore, tenant.NewCache(redisClient, cfg.Tenant.CacheTTL(), logger), logger)

	if cfg.JWT.Secret == "change-me-in-production" && !cfg.Server.IsDevelopment() {
		logger.Warn("JWT_SECRET is the default value")
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Redis:             redisClient,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		Gate:              auth.NewGate(userStore),
		TenantService:     tenantService,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RateLimitReqs:     cfg.RateLimit.Requests,
		RateLimitSecs:     cfg.RateLimit.WindowSeconds,
		AuthRateLimitReqs: cfg.RateLimit.AuthRequests,
		CookieSecure:      cfg.Cookie.Secure,
		CookieMaxAge:      cfg.JWT.Expiry(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}

	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
