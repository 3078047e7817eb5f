package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/inkpress/internal/api/handlers"
	"github.com/hugh/inkpress/internal/api/middleware"
	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/hugh/inkpress/internal/apperr"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/metrics"
	"github.com/hugh/inkpress/internal/roles"
	"github.com/hugh/inkpress/internal/tenant"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB                *gorm.DB
	Redis             *redis.Client
	Logger            *slog.Logger
	JWTService        auth.TokenService
	AuthService       auth.Authenticator
	Gate              auth.Authorizer
	TenantService     *tenant.Service
	AllowedOrigins    []string      // CORS allowed origins
	RateLimitReqs     int           // Rate limit requests per window
	RateLimitSecs     int           // Rate limit window in seconds
	AuthRateLimitReqs int           // Per-window limit on /api/auth
	CookieSecure      bool          // Secure flag on the token cookie
	CookieMaxAge      time.Duration // Lifetime of the token cookie
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, respond.ErrorResponse{Error: respond.ErrorBody{
			Status:  http.StatusMethodNotAllowed,
			Name:    "MethodNotAllowedError",
			Message: "Method not allowed",
			Details: map[string]string{},
		}})
	})

	cookieMaxAge := cfg.CookieMaxAge
	if cookieMaxAge <= 0 {
		cookieMaxAge = 24 * time.Hour
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.CookieSecure, cookieMaxAge)
	tenantHandler := handlers.NewTenantHandler(cfg.TenantService)
	csrfStore := middleware.NewCSRFStore()

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public auth endpoints, with a stricter window than the global one
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimitReqs > 0 {
				r.Use(middleware.RateLimit(cfg.AuthRateLimitReqs, cfg.RateLimitSecs))
			}
			r.Post("/local/register", authHandler.Register)
			r.Post("/local", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// Public blog lookup
		r.Get("/tenants/by-slug/{slug}", tenantHandler.BySlug)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			if cfg.RateLimitReqs > 0 {
				r.Use(middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs))
			}
			r.Use(middleware.CSRF(csrfStore))

			r.Get("/users/me", authHandler.Me)

			// Tenant Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(cfg.Gate, roles.TenantAdmin))

				r.Get("/tenant/users/me", tenantHandler.Me)
				r.Route("/tenants/{id}", func(r chi.Router) {
					r.Put("/", tenantHandler.UpdateProfile)
					r.Get("/theme-settings", tenantHandler.GetThemeSettings)
					r.Put("/theme-settings", tenantHandler.UpdateThemeSettings)
				})
			})
		})
	})

	return &Router{r}
}
