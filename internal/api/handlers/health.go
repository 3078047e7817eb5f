package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	healthTimeout   = 2 * time.Second
)

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler takes a nil redis client when the cache is disabled.
func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health answers 503 only when the database is down. A failing redis
// leaves the API usable without the tenant cache, reported as degraded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: statusHealthy, Services: map[string]string{}}

	resp.Services["database"] = statusHealthy
	if err := h.pingDB(ctx); err != nil {
		resp.Services["database"] = statusUnhealthy
		resp.Status = statusUnhealthy
	}

	if h.redis == nil {
		resp.Services["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		resp.Services["redis"] = statusUnhealthy
		if resp.Status == statusHealthy {
			resp.Status = statusDegraded
		}
	} else {
		resp.Services["redis"] = statusHealthy
	}

	code := http.StatusOK
	if resp.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(w, code, resp)
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
