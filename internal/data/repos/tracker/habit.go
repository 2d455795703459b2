package tracker

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type HabitTemplateRepo interface {
	// GetByIDs includes soft-deleted templates.
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.HabitTemplate, error)
	ListActiveByUser(dbc dbctx.Context, userID string) ([]*types.HabitTemplate, error)
}

type habitTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHabitTemplateRepo(db *gorm.DB, baseLog *logger.Logger) HabitTemplateRepo {
	return &habitTemplateRepo{db: db, log: baseLog.With("repo", "HabitTemplateRepo")}
}

func (r *habitTemplateRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.HabitTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HabitTemplate
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

func (r *habitTemplateRepo) ListActiveByUser(dbc dbctx.Context, userID string) ([]*types.HabitTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HabitTemplate
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type HabitCompletionRepo interface {
	// ListCreated returns rows whose created_at falls inside w.
	ListCreated(dbc dbctx.Context, w Window) ([]*types.HabitCompletion, error)
}

type habitCompletionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHabitCompletionRepo(db *gorm.DB, baseLog *logger.Logger) HabitCompletionRepo {
	return &habitCompletionRepo{db: db, log: baseLog.With("repo", "HabitCompletionRepo")}
}

func (r *habitCompletionRepo) ListCreated(dbc dbctx.Context, w Window) ([]*types.HabitCompletion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HabitCompletion
	q := transaction.WithContext(dbc.Ctx).
		Where("created_at >= ? AND created_at <= ?", w.From, w.To)
	if w.UserID != "" {
		q = q.Where("user_id = ?", w.UserID)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
