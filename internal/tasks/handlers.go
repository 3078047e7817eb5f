package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/inkpress/internal/auth"
	"github.com/hugh/inkpress/internal/database/models"
	"github.com/hugh/inkpress/internal/metrics"
	"github.com/hugh/inkpress/internal/roles"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	users  *auth.Store
	logger *slog.Logger
	grace  time.Duration
	now    func() time.Time
}

// NewHandler builds the worker's task handlers. grace is how old a Tenant
// Admin without a tenant must be before the sweep removes it.
func NewHandler(db *gorm.DB, logger *slog.Logger, grace time.Duration) *Handler {
	return &Handler{
		db:     db,
		users:  auth.NewStore(db),
		logger: logger,
		grace:  grace,
		now:    time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCompensateUser, h.HandleCompensateUser)
	mux.HandleFunc(TypeOrphanSweep, h.HandleOrphanSweep)
}

// HandleCompensateUser finishes a registration rollback. A user that gained
// a tenant membership in the meantime is left alone.
func (h *Handler) HandleCompensateUser(ctx context.Context, t *asynq.Task) error {
	var payload CompensateUserPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == 0 {
		return fmt.Errorf("payload has no user id: %w", asynq.SkipRetry)
	}

	h.logger.Info("compensating user", "user_id", payload.UserID, "reason", payload.Reason)

	if _, err := h.users.FindByID(ctx, payload.UserID, 0); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			h.logger.Info("user already gone", "user_id", payload.UserID)
			return nil
		}
		return err
	}

	member, err := h.users.HasMembership(ctx, payload.UserID)
	if err != nil {
		return err
	}
	if member {
		h.logger.Warn("user has a tenant membership, not deleting", "user_id", payload.UserID)
		return nil
	}

	if err := h.users.HardDeleteUser(ctx, payload.UserID); err != nil {
		return fmt.Errorf("deleting user %d: %w", payload.UserID, err)
	}

	metrics.CompensationCounter.WithLabelValues("recovered").Inc()
	h.logger.Info("compensation completed", "user_id", payload.UserID)
	return nil
}

// HandleOrphanSweep removes Tenant Admins that own no tenant and are older
// than the grace period, which covers registrations whose rollback was lost.
func (h *Handler) HandleOrphanSweep(ctx context.Context, t *asynq.Task) error {
	ids, err := h.findOrphans(ctx)
	if err != nil {
		return fmt.Errorf("finding orphans: %w", err)
	}
	if len(ids) == 0 {
		h.logger.Debug("orphan sweep found nothing")
		return nil
	}

	var errs []error
	deleted := 0
	for _, id := range ids {
		if err := h.users.HardDeleteUser(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("deleting user %d: %w", id, err))
			continue
		}
		deleted++
		metrics.CompensationCounter.WithLabelValues("swept").Inc()
	}

	h.logger.Info("orphan sweep completed", "found", len(ids), "deleted", deleted)
	return errors.Join(errs...)
}

func (h *Handler) findOrphans(ctx context.Context) ([]uint, error) {
	cutoff := h.now().Add(-h.grace)

	var ids []uint
	err := h.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", roles.TenantAdmin.Name()).
		Where("users.created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM tenant_users tu WHERE tu.user_id = users.id)").
		Pluck("users.id", &ids).Error
	return ids, err
}
