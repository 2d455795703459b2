package tracker

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type TaskTemplateRepo interface {
	// GetByIDs includes soft-deleted templates so historical completions keep their weight.
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.TaskTemplate, error)
	ListActiveByUser(dbc dbctx.Context, userID string) ([]*types.TaskTemplate, error)
	Create(dbc dbctx.Context, rows []*types.TaskTemplate) ([]*types.TaskTemplate, error)
}

type taskTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TaskTemplateRepo {
	return &taskTemplateRepo{db: db, log: baseLog.With("repo", "TaskTemplateRepo")}
}

func (r *taskTemplateRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.TaskTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TaskTemplate
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Unscoped().
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskTemplateRepo) ListActiveByUser(dbc dbctx.Context, userID string) ([]*types.TaskTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TaskTemplate
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskTemplateRepo) Create(dbc dbctx.Context, rows []*types.TaskTemplate) ([]*types.TaskTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.TaskTemplate{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type TaskCompletionRepo interface {
	// ListCompleted returns rows with complete=true and completed_at inside w.
	ListCompleted(dbc dbctx.Context, w Window) ([]*types.TaskCompletion, error)
}

type taskCompletionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskCompletionRepo(db *gorm.DB, baseLog *logger.Logger) TaskCompletionRepo {
	return &taskCompletionRepo{db: db, log: baseLog.With("repo", "TaskCompletionRepo")}
}

func (r *taskCompletionRepo) ListCompleted(dbc dbctx.Context, w Window) ([]*types.TaskCompletion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TaskCompletion
	q := transaction.WithContext(dbc.Ctx).
		Where("complete = ?", true).
		Where("completed_at >= ? AND completed_at <= ?", w.From, w.To)
	if w.UserID != "" {
		q = q.Where("user_id = ?", w.UserID)
	}
	if err := q.Order("completed_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
