package jobs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type PipelineRunRepo interface {
	Create(dbc dbctx.Context, run *types.PipelineRun) (*types.PipelineRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PipelineRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{db: db, log: baseLog.With("repo", "PipelineRunRepo")}
}

func (r *pipelineRunRepo) Create(dbc dbctx.Context, run *types.PipelineRun) (*types.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *pipelineRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PipelineRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.PipelineRun
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *pipelineRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PipelineRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}
