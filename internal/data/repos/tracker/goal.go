package tracker

import (
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type GoalRepo interface {
	// ListCompleted returns non-deleted goals whose completed_at falls inside w.
	ListCompleted(dbc dbctx.Context, w Window) ([]*types.Goal, error)
	// ListCompletedUnscoped is ListCompleted including soft-deleted goals.
	// A completion stays scored after its goal is hidden.
	ListCompletedUnscoped(dbc dbctx.Context, w Window) ([]*types.Goal, error)
	Create(dbc dbctx.Context, goal *types.Goal) (*types.Goal, error)
}

type goalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	return &goalRepo{db: db, log: baseLog.With("repo", "GoalRepo")}
}

func (r *goalRepo) ListCompleted(dbc dbctx.Context, w Window) ([]*types.Goal, error) {
	return r.listCompleted(dbc, w, false)
}

func (r *goalRepo) ListCompletedUnscoped(dbc dbctx.Context, w Window) ([]*types.Goal, error) {
	return r.listCompleted(dbc, w, true)
}

func (r *goalRepo) listCompleted(dbc dbctx.Context, w Window, unscoped bool) ([]*types.Goal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx)
	if unscoped {
		q = q.Unscoped()
	}
	q = q.Where("completed_at IS NOT NULL").
		Where("completed_at >= ? AND completed_at <= ?", w.From, w.To)
	if w.UserID != "" {
		q = q.Where("user_id = ?", w.UserID)
	}
	var out []*types.Goal
	if err := q.Order("completed_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *goalRepo) Create(dbc dbctx.Context, goal *types.Goal) (*types.Goal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}
