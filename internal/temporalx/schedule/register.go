package schedule

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// Starter is the slice of the Temporal client Register needs.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

// Register starts one cron workflow per entry. An entry whose workflow is already running
// is left alone, so restarts of the worker are harmless.
func Register(ctx context.Context, log *logger.Logger, c Starter, taskQueue string, entries []Entry) error {
	for _, e := range entries {
		opts := temporalsdkclient.StartWorkflowOptions{
			ID:                                       WorkflowID(e.Pipeline),
			TaskQueue:                                taskQueue,
			CronSchedule:                             e.Cron,
			WorkflowExecutionErrorWhenAlreadyStarted: true,
		}
		run, err := c.ExecuteWorkflow(ctx, opts, WorkflowName, RunInput{Pipeline: e.Pipeline})
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		switch {
		case errors.As(err, &started):
			log.Info("Cron workflow already registered", "pipeline", e.Pipeline, "workflow_id", opts.ID)
		case err != nil:
			return fmt.Errorf("register cron workflow %s: %w", e.Pipeline, err)
		default:
			log.Info("Cron workflow registered", "pipeline", e.Pipeline, "cron", e.Cron, "workflow_id", opts.ID, "run_id", run.GetRunID())
		}
	}
	return nil
}
