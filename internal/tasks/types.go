package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeCompensateUser = "identity:compensate_user"
	TypeOrphanSweep    = "identity:orphan_sweep"
)

// CompensateUserPayload names a user whose registration rollback failed.
type CompensateUserPayload struct {
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"`
}

func NewCompensateUserTask(payload CompensateUserPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCompensateUser, data,
		asynq.Queue("critical"),
		asynq.MaxRetry(10),
	), nil
}

// OrphanSweepPayload is empty - the sweep looks at every user
type OrphanSweepPayload struct{}

func NewOrphanSweepTask() *asynq.Task {
	return asynq.NewTask(TypeOrphanSweep, nil, asynq.Queue("low"))
}
