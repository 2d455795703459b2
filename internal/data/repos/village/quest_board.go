package village

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type QuestBoardRepo interface {
	Create(dbc dbctx.Context, rows []*types.QuestBoardTemplate) ([]*types.QuestBoardTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QuestBoardTemplate, error)
	// ListVisible returns entries created at or after since that are either anonymous or owned by userID.
	ListVisible(dbc dbctx.Context, since time.Time, userID string) ([]*types.QuestBoardTemplate, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type questBoardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestBoardRepo(db *gorm.DB, baseLog *logger.Logger) QuestBoardRepo {
	return &questBoardRepo{db: db, log: baseLog.With("repo", "QuestBoardRepo")}
}

func (r *questBoardRepo) Create(dbc dbctx.Context, rows []*types.QuestBoardTemplate) ([]*types.QuestBoardTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.QuestBoardTemplate{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questBoardRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QuestBoardTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var q types.QuestBoardTemplate
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&q).Error; err != nil {
		return nil, err
	}
	if q.ID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

func (r *questBoardRepo) ListVisible(dbc dbctx.Context, since time.Time, userID string) ([]*types.QuestBoardTemplate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QuestBoardTemplate
	q := transaction.WithContext(dbc.Ctx).Where("created_at >= ?", since)
	if userID != "" {
		q = q.Where("(user_id IS NULL OR user_id = ?)", userID)
	} else {
		q = q.Where("user_id IS NULL")
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questBoardRepo) Delete(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.QuestBoardTemplate{})
	return res.RowsAffected, res.Error
}
