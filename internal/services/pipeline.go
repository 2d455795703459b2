package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/apierr"
	"github.com/yungbote/pinegate-backend/internal/platform/directory"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// TriggeredByDev marks runs started from the dev endpoints.
const TriggeredByDev = "dev"

// PipelineTrigger is the part of the pipeline runner the API needs.
type PipelineTrigger interface {
	Known(pipeline string) bool
	Trigger(pipeline, triggeredBy string) error
}

type PipelineService interface {
	// Trigger starts pipeline in the background. Pipeline failures are never reported here.
	Trigger(ctx context.Context, pipeline string) error
	GetRun(ctx context.Context, id uuid.UUID) (*types.PipelineRun, error)
	CountUsers(ctx context.Context) (int, error)
}

type pipelineService struct {
	db      *gorm.DB
	log     *logger.Logger
	runs    repos.PipelineRunRepo
	trigger PipelineTrigger
	users   directory.Counter
}

func NewPipelineService(
	db *gorm.DB,
	baseLog *logger.Logger,
	runs repos.PipelineRunRepo,
	trigger PipelineTrigger,
	users directory.Counter,
) PipelineService {
	return &pipelineService{
		db:      db,
		log:     baseLog.With("service", "PipelineService"),
		runs:    runs,
		trigger: trigger,
		users:   users,
	}
}

func (s *pipelineService) Trigger(ctx context.Context, pipeline string) error {
	if s.trigger == nil || !s.trigger.Known(pipeline) {
		return apierr.NotFound("unknown_pipeline", fmt.Errorf("unknown pipeline %q", pipeline))
	}
	if err := s.trigger.Trigger(pipeline, TriggeredByDev); err != nil {
		return fmt.Errorf("trigger %s: %w", pipeline, err)
	}
	s.log.Info("Pipeline triggered", "pipeline", pipeline, "triggered_by", TriggeredByDev)
	return nil
}

func (s *pipelineService) GetRun(ctx context.Context, id uuid.UUID) (*types.PipelineRun, error) {
	run, err := s.runs.GetByID(dbctx.From(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get pipeline run: %w", err)
	}
	if run == nil {
		return nil, apierr.NotFound("pipeline_run_not_found", errors.New("pipeline run not found"))
	}
	return run, nil
}

func (s *pipelineService) CountUsers(ctx context.Context) (int, error) {
	if s.users == nil {
		return 0, errors.New("user directory not configured")
	}
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
