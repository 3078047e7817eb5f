// Package saga runs a short ordered list of forward actions, undoing the
// completed ones in reverse order when a later action fails.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Step is one forward action and its compensation. Undo may be nil for a
// step with nothing to reverse (typically the last one).
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Failure is returned by Run when a step fails.
type Failure struct {
	Step string
	Err  error
	// Compensations holds errors from Undo calls that themselves failed,
	// keyed by step name. Empty means the unwind was clean.
	Compensations map[string]error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("saga step %q failed: %v", f.Step, f.Err)
	if len(f.Compensations) > 0 {
		msg += fmt.Sprintf(" (%d compensation(s) failed)", len(f.Compensations))
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Clean reports whether every completed step was compensated.
func (f *Failure) Clean() bool { return len(f.Compensations) == 0 }

type Saga struct {
	steps  []Step
	logger *slog.Logger
}

func New(logger *slog.Logger, steps ...Step) *Saga {
	return &Saga{steps: steps, logger: logger}
}

// Add appends a step.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes the steps strictly in order. On the first failure the steps
// that already completed are compensated newest first, and a *Failure is
// returned. Compensation runs on a context detached from ctx's cancellation
// so a cancelled request still unwinds.
//
// Cancellation is checked before every step except the last one: once every
// write has committed, the final step always runs.
func (s *Saga) Run(ctx context.Context) error {
	done := make([]Step, 0, len(s.steps))

	for i, step := range s.steps {
		if i < len(s.steps)-1 {
			if err := ctx.Err(); err != nil {
				return s.unwind(ctx, done, step.Name, err)
			}
		}
		if err := step.Do(ctx); err != nil {
			return s.unwind(ctx, done, step.Name, err)
		}
		done = append(done, step)
	}
	return nil
}

func (s *Saga) unwind(ctx context.Context, done []Step, failed string, cause error) error {
	f := &Failure{Step: failed, Err: cause}
	undoCtx := context.WithoutCancel(ctx)

	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(undoCtx); err != nil {
			if f.Compensations == nil {
				f.Compensations = make(map[string]error)
			}
			f.Compensations[step.Name] = err
			s.logger.Error("saga compensation failed",
				"failed_step", failed,
				"compensating", step.Name,
				"error", err,
			)
			continue
		}
		s.logger.Info("saga step compensated", "failed_step", failed, "compensated", step.Name)
	}
	return f
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
