package schedule

import (
	"context"

	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/pinegate-backend/internal/domain"
)

type PipelineRunner interface {
	Run(ctx context.Context, pipeline, triggeredBy string) (*types.PipelineRun, error)
}

type Activities struct {
	Runner PipelineRunner
}

func (a *Activities) RunPipeline(ctx context.Context, in RunInput) (RunOutput, error) {
	run, err := a.Runner.Run(ctx, in.Pipeline, TriggeredBy)
	out := RunOutput{}
	if run != nil {
		out = RunOutput{RunID: run.ID.String(), Status: run.Status, Stage: run.Stage}
	}
	if err != nil {
		return out, temporal.NewNonRetryableApplicationError(err.Error(), "PipelineFailed", err, out)
	}
	return out, nil
}
