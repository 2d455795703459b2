package runtime

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/observability"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

/*
Context is the handle a pipeline gets for one run.
It owns the pipeline_run audit row; pipelines report through Progress/Fail/Succeed
and never write the row themselves.
*/
type Context struct {
	Ctx  context.Context
	Run  *types.PipelineRun
	Repo repos.PipelineRunRepo
	Log  *logger.Logger
}

func NewContext(ctx context.Context, run *types.PipelineRun, repo repos.PipelineRunRepo, log *logger.Logger) *Context {
	return &Context{Ctx: ctx, Run: run, Repo: repo, Log: log}
}

// Done reports whether Fail, Succeed or Skip already closed the run.
func (c *Context) Done() bool {
	return c == nil || c.Run == nil || c.Run.Status != types.RunStatusRunning
}

// Progress records the stage now executing.
func (c *Context) Progress(stage string) {
	if c.Done() {
		return
	}
	c.Run.Stage = stage
	c.update(map[string]interface{}{"stage": stage})
	if c.Log != nil {
		c.Log.Info("Pipeline stage started", "stage", stage)
	}
}

// Stage runs fn inside a span named for the stage and records it as current.
func (c *Context) Stage(stage string, fn func(ctx context.Context) error) error {
	c.Progress(stage)
	ctx, span := observability.StartSpan(c.Ctx, "pipeline.stage", "pipeline", c.pipeline(), "stage", stage)
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveStage(c.pipeline(), stage, status, time.Since(start))
	observability.EndSpan(span, err)
	return err
}

// UserFailures counts per-user failures a fan-out stage absorbed.
func (c *Context) UserFailures(stage string, n int) {
	if n <= 0 {
		return
	}
	observability.Current().AddUserFailures(c.pipeline(), stage, n)
	if c.Log != nil {
		c.Log.Warn("Stage finished with user failures", "stage", stage, "failures", n)
	}
}

// Fail closes the run as failed at stage.
func (c *Context) Fail(stage string, err error) {
	if c.Done() {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.Run.Status = types.RunStatusFailed
	c.Run.Stage = stage
	c.Run.Error = msg
	c.Run.FinishedAt = &now
	c.update(map[string]interface{}{
		"status":      types.RunStatusFailed,
		"stage":       stage,
		"error":       msg,
		"finished_at": now,
	})
	if c.Log != nil {
		c.Log.Error("Pipeline failed", "stage", stage, "error", msg)
	}
}

// Succeed closes the run and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	c.finish(types.RunStatusSucceeded, finalStage, result)
}

// Skip closes a run that never started work, e.g. because the lock was held.
func (c *Context) Skip(reason string) {
	c.finish(types.RunStatusSkipped, "lock", map[string]any{"reason": reason})
}

func (c *Context) finish(status, stage string, result any) {
	if c.Done() {
		return
	}
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		} else if c.Log != nil {
			c.Log.Warn("Pipeline result not encodable; dropping", "error", err)
		}
	}
	c.Run.Status = status
	c.Run.Stage = stage
	c.Run.Result = res
	c.Run.FinishedAt = &now
	c.update(map[string]interface{}{
		"status":      status,
		"stage":       stage,
		"result":      res,
		"finished_at": now,
	})
}

func (c *Context) pipeline() string {
	if c.Run == nil {
		return ""
	}
	return c.Run.Pipeline
}

// update is best effort: the audit row must never fail a run that already did its work.
func (c *Context) update(fields map[string]interface{}) {
	if c.Repo == nil || c.Run == nil {
		return
	}
	ctx := context.WithoutCancel(c.Ctx)
	if err := c.Repo.UpdateFields(dbctx.From(ctx), c.Run.ID, fields); err != nil && c.Log != nil {
		c.Log.Warn("Pipeline run audit update failed", "run_id", c.Run.ID, "error", err)
	}
}
