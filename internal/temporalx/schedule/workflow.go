package schedule

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one pipeline invocation per cron tick. The activity is attempted once:
// pipelines append chapters and board rows, so a blind retry would duplicate them.
func Workflow(ctx workflow.Context, in RunInput) (RunOutput, error) {
	if strings.TrimSpace(in.Pipeline) == "" {
		return RunOutput{}, fmt.Errorf("schedule: missing pipeline")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 6 * time.Hour,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	var out RunOutput
	if err := workflow.ExecuteActivity(ctx, ActivityRunPipeline, in).Get(ctx, &out); err != nil {
		return out, err
	}
	workflow.GetLogger(ctx).Info("Scheduled pipeline finished", "pipeline", in.Pipeline, "status", out.Status, "run_id", out.RunID)
	return out, nil
}
