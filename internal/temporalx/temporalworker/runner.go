package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/temporalx"
	"github.com/yungbote/pinegate-backend/internal/temporalx/schedule"
)

// Runner polls the task queue for the village cron workflows.
type Runner struct {
	log     *logger.Logger
	cfg     temporalx.Config
	tc      temporalsdkclient.Client
	runner  schedule.PipelineRunner
	entries []schedule.Entry
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, runner schedule.PipelineRunner, entries []schedule.Entry) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if runner == nil {
		return nil, fmt.Errorf("temporal worker missing pipeline runner")
	}
	return &Runner{
		log:     log.With("service", "TemporalWorker"),
		cfg:     cfg,
		tc:      tc,
		runner:  runner,
		entries: entries,
	}, nil
}

// Start registers the cron workflows, starts polling and stops the worker when ctx ends.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return schedule.Register(ctx, r.log, r.tc, r.cfg.TaskQueue, r.entries)
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	// The SDK rejects a workflow task slot count of 1.
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 2 {
		concurrency = 2
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &schedule.Activities{Runner: r.runner}
	w.RegisterWorkflowWithOptions(schedule.Workflow, workflow.RegisterOptions{Name: schedule.WorkflowName})
	w.RegisterActivityWithOptions(acts.RunPipeline, activity.RegisterOptions{Name: schedule.ActivityRunPipeline})
	return w
}
