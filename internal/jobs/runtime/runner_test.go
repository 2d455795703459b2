package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/redislock"
)

type funcHandler struct {
	name string
	run  func(jc *Context) error
}

func (h funcHandler) Type() string           { return h.name }
func (h funcHandler) Run(jc *Context) error { return h.run(jc) }

func newTestRunner(t *testing.T, locker redislock.Locker, handlers ...Handler) (*Runner, repos.PipelineRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	reg := NewRegistry()
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	runs := repos.NewSet(db, log).PipelineRuns
	return NewRunner(log, reg, runs, locker, time.Minute), runs
}

func stored(t *testing.T, runs repos.PipelineRunRepo, run *types.PipelineRun) *types.PipelineRun {
	t.Helper()
	got, err := runs.GetByID(dbctx.From(context.Background()), run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	h := funcHandler{name: "weekly_village", run: func(*Context) error { return nil }}
	require.NoError(t, reg.Register(h))
	assert.Error(t, reg.Register(h))
	assert.Error(t, reg.Register(funcHandler{}))
	assert.Equal(t, []string{"weekly_village"}, reg.Types())
}

func TestRunnerRecordsSuccess(t *testing.T) {
	h := funcHandler{name: "weekly_village", run: func(jc *Context) error {
		return jc.Stage("aggregate", func(ctx context.Context) error {
			jc.Succeed("done", map[string]any{"users": 2})
			return nil
		})
	}}
	r, runs := newTestRunner(t, nil, h)

	run, err := r.Run(context.Background(), "weekly_village", "cli")
	require.NoError(t, err)

	got := stored(t, runs, run)
	assert.Equal(t, types.RunStatusSucceeded, got.Status)
	assert.Equal(t, "done", got.Stage)
	assert.Equal(t, "cli", got.TriggeredBy)
	require.NotNil(t, got.FinishedAt)
	var res map[string]any
	require.NoError(t, json.Unmarshal(got.Result, &res))
	assert.Equal(t, float64(2), res["users"])
}

func TestRunnerRecordsFailureAtStage(t *testing.T) {
	boom := errors.New("generator down")
	h := funcHandler{name: "weekly_village", run: func(jc *Context) error {
		jc.Progress("aggregate")
		return jc.Stage("narrate", func(context.Context) error { return boom })
	}}
	r, runs := newTestRunner(t, nil, h)

	run, err := r.Run(context.Background(), "weekly_village", "dev")
	require.ErrorIs(t, err, boom)

	got := stored(t, runs, run)
	assert.Equal(t, types.RunStatusFailed, got.Status)
	assert.Equal(t, "narrate", got.Stage)
	assert.Equal(t, "generator down", got.Error)
}

func TestRunnerSkipsWhenLockHeld(t *testing.T) {
	locker := redislock.NewLocal()
	lease, err := locker.Acquire(context.Background(), "daily_village", time.Minute)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	called := false
	h := funcHandler{name: "daily_village", run: func(*Context) error { called = true; return nil }}
	r, runs := newTestRunner(t, locker, h)

	run, err := r.Run(context.Background(), "daily_village", "schedule")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, types.RunStatusSkipped, stored(t, runs, run).Status)
}

func TestRunnerRecoversPanic(t *testing.T) {
	h := funcHandler{name: "daily_village", run: func(*Context) error { panic("nil map") }}
	r, runs := newTestRunner(t, nil, h)

	run, err := r.Run(context.Background(), "daily_village", "cli")
	require.Error(t, err)
	got := stored(t, runs, run)
	assert.Equal(t, types.RunStatusFailed, got.Status)
	assert.Equal(t, "panic", got.Stage)

	// The lock was released despite the panic.
	run, err = r.Run(context.Background(), "daily_village", "cli")
	require.Error(t, err)
	assert.Equal(t, types.RunStatusFailed, stored(t, runs, run).Status)
}

func TestRunnerUnknownPipeline(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	_, err := r.Run(context.Background(), "monthly", "cli")
	var unknown *UnknownPipelineError
	require.ErrorAs(t, err, &unknown)
	assert.ErrorAs(t, r.Trigger("monthly", "dev"), &unknown)
}

func TestTriggerRunsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
	done := make(chan struct{})
	h := funcHandler{name: "weekly_village", run: func(*Context) error { close(done); return nil }}
	r, _ := newTestRunner(t, nil, h)

	require.NoError(t, r.Trigger("weekly_village", "dev"))
	r.Wait()
	select {
	case <-done:
	default:
		t.Fatal("triggered pipeline did not run")
	}
}
