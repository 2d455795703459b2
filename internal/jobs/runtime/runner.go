package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/observability"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/redislock"
)

const DefaultLockTTL = 2 * time.Hour

type UnknownPipelineError struct{ Pipeline string }

func (e *UnknownPipelineError) Error() string { return "no handler registered for pipeline=" + e.Pipeline }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }

// Runner executes registered pipelines under a per-pipeline lock and records every attempt
// as a pipeline_run row.
type Runner struct {
	log      *logger.Logger
	registry *Registry
	runs     repos.PipelineRunRepo
	locker   redislock.Locker
	lockTTL  time.Duration

	wg sync.WaitGroup
}

func NewRunner(log *logger.Logger, registry *Registry, runs repos.PipelineRunRepo, locker redislock.Locker, lockTTL time.Duration) *Runner {
	if locker == nil {
		locker = redislock.NewLocal()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Runner{
		log:      log.With("service", "PipelineRunner"),
		registry: registry,
		runs:     runs,
		locker:   locker,
		lockTTL:  lockTTL,
	}
}

func (r *Runner) Known(pipeline string) bool {
	_, ok := r.registry.Get(pipeline)
	return ok
}

/*
Run executes pipeline synchronously and returns its audit row.
  - A held lock closes the row as skipped and returns a nil error.
  - A pipeline error closes the row as failed and is returned.
*/
func (r *Runner) Run(ctx context.Context, pipeline, triggeredBy string) (*types.PipelineRun, error) {
	h, ok := r.registry.Get(pipeline)
	if !ok {
		return nil, &UnknownPipelineError{Pipeline: pipeline}
	}

	run, err := r.runs.Create(dbctx.From(ctx), &types.PipelineRun{
		Pipeline:    pipeline,
		TriggeredBy: triggeredBy,
		Status:      types.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline run: %w", err)
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.run", "pipeline", pipeline, "triggered_by", triggeredBy, "run_id", run.ID.String())
	log := r.log.With("pipeline", pipeline, "run_id", run.ID, "triggered_by", triggeredBy)
	jc := NewContext(ctx, run, r.runs, log)

	lease, err := r.locker.Acquire(ctx, pipeline, r.lockTTL)
	if errors.Is(err, redislock.ErrHeld) {
		log.Warn("Pipeline already running elsewhere; skipping")
		jc.Skip("lock held")
		observability.EndSpan(span, nil)
		observability.Current().ObservePipelineRun(pipeline, run.Status)
		return run, nil
	}
	if err != nil {
		err = fmt.Errorf("acquire lock: %w", err)
		jc.Fail("lock", err)
		observability.EndSpan(span, err)
		return run, err
	}
	defer func() {
		if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil {
			log.Warn("Pipeline lock release failed", "error", relErr)
		}
	}()

	log.Info("Pipeline started")
	err = r.invoke(h, jc)
	switch {
	case err != nil:
		jc.Fail(failStage(run), err)
	case !jc.Done():
		jc.Succeed("done", nil)
	}
	observability.EndSpan(span, err)
	observability.Current().ObservePipelineRun(pipeline, run.Status)
	log.Info("Pipeline finished", "status", run.Status, "stage", run.Stage)
	return run, err
}

func (r *Runner) invoke(h Handler, jc *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			jc.Log.Error("Pipeline handler panic", "panic", p)
			err = &panicError{Val: p}
			jc.Fail("panic", err)
		}
	}()
	return h.Run(jc)
}

func failStage(run *types.PipelineRun) string {
	if run.Stage != "" {
		return run.Stage
	}
	return "run"
}

// Trigger starts pipeline in the background and returns without waiting. The run outlives
// the caller's request; Wait blocks until every triggered run has returned.
func (r *Runner) Trigger(pipeline, triggeredBy string) error {
	if !r.Known(pipeline) {
		return &UnknownPipelineError{Pipeline: pipeline}
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.Run(context.Background(), pipeline, triggeredBy); err != nil {
			r.log.Error("Triggered pipeline failed", "pipeline", pipeline, "triggered_by", triggeredBy, "error", err)
		}
	}()
	return nil
}

func (r *Runner) Wait() { r.wg.Wait() }
