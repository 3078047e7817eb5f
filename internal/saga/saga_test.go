package saga_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hugh/inkpress/internal/saga"
	"github.com/hugh/inkpress/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ calls []string }

func (r *recorder) step(name string, doErr, undoErr error) saga.Step {
	return saga.Step{
		Name: name,
		Do: func(ctx context.Context) error {
			r.calls = append(r.calls, "do:"+name)
			return doErr
		},
		Undo: func(ctx context.Context) error {
			r.calls = append(r.calls, "undo:"+name)
			return undoErr
		},
	}
}

func TestSaga_AllStepsSucceed(t *testing.T) {
	rec := &recorder{}
	s := saga.New(util.Discard(), rec.step("a", nil, nil), rec.step("b", nil, nil))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"do:a", "do:b"}, rec.calls)
}

func TestSaga_UnwindsInReverse(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	s := saga.New(util.Discard()).
		Add(rec.step("a", nil, nil)).
		Add(rec.step("b", nil, nil)).
		Add(rec.step("c", boom, nil)).
		Add(rec.step("d", nil, nil))

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	f, ok := saga.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "c", f.Step)
	assert.True(t, f.Clean())

	// the failing step is not compensated, later steps never run
	assert.Equal(t, []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}, rec.calls)
}

func TestSaga_CompensationFailureIsReported(t *testing.T) {
	rec := &recorder{}
	undoErr := errors.New("delete failed")
	s := saga.New(util.Discard(),
		rec.step("create_user", nil, undoErr),
		rec.step("create_tenant", errors.New("tenant"), nil),
	)

	err := s.Run(context.Background())
	f, ok := saga.AsFailure(err)
	require.True(t, ok)
	assert.False(t, f.Clean())
	assert.Equal(t, undoErr, f.Compensations["create_user"])
	assert.Contains(t, err.Error(), "1 compensation(s) failed")
}

func TestSaga_NilUndoIsSkipped(t *testing.T) {
	var calls []string
	s := saga.New(util.Discard(),
		saga.Step{Name: "a", Do: func(context.Context) error { calls = append(calls, "a"); return nil }},
		saga.Step{Name: "b", Do: func(context.Context) error { return errors.New("x") }},
	)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, calls)
}

func TestSaga_CancelledContextStillUnwinds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undone bool

	s := saga.New(util.Discard(),
		saga.Step{
			Name: "a",
			Do:   func(context.Context) error { cancel(); return nil },
			Undo: func(ctx context.Context) error {
				undone = ctx.Err() == nil
				return nil
			},
		},
		saga.Step{Name: "b", Do: func(context.Context) error { return nil }},
		saga.Step{Name: "c", Do: func(context.Context) error { return nil }},
	)

	err := s.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, undone)

	f, ok := saga.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "b", f.Step)
}

func TestSaga_LastStepRunsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}

	s := saga.New(util.Discard(),
		rec.step("a", nil, nil),
		saga.Step{
			Name: "b",
			Do:   func(context.Context) error { cancel(); return nil },
			Undo: func(context.Context) error { rec.calls = append(rec.calls, "undo:b"); return nil },
		},
		rec.step("c", nil, nil),
	)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, []string{"do:a", "do:c"}, rec.calls)
}
