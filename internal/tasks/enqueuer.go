package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/inkpress/internal/auth"
)

// Enqueuer pushes compensation retries onto the asynq queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

var _ auth.CompensationEnqueuer = (*Enqueuer)(nil)

func (e *Enqueuer) EnqueueCompensateUser(ctx context.Context, userID uint, reason string) error {
	task, err := NewCompensateUserTask(CompensateUserPayload{UserID: userID, Reason: reason})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeCompensateUser, err)
	}
	return nil
}
