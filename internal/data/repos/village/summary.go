package village

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// WeeklySummaryRepo is append-only: chapters are never updated or deleted.
type WeeklySummaryRepo interface {
	Create(dbc dbctx.Context, s *types.WeeklySummary) (*types.WeeklySummary, error)
	// ListRecent returns up to limit chapters, newest first.
	ListRecent(dbc dbctx.Context, limit int) ([]*types.WeeklySummary, error)
	// GetLatest returns nil, nil when no chapter exists.
	GetLatest(dbc dbctx.Context) (*types.WeeklySummary, error)
}

type weeklySummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeeklySummaryRepo(db *gorm.DB, baseLog *logger.Logger) WeeklySummaryRepo {
	return &weeklySummaryRepo{db: db, log: baseLog.With("repo", "WeeklySummaryRepo")}
}

func (r *weeklySummaryRepo) Create(dbc dbctx.Context, s *types.WeeklySummary) (*types.WeeklySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *weeklySummaryRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.WeeklySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 5
	}
	var out []*types.WeeklySummary
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weeklySummaryRepo) GetLatest(dbc dbctx.Context) (*types.WeeklySummary, error) {
	rows, err := r.ListRecent(dbc, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

type DailySummaryRepo interface {
	Create(dbc dbctx.Context, s *types.DailySummary) (*types.DailySummary, error)
	// ListByUserSince returns the user's notes created at or after since, newest first.
	ListByUserSince(dbc dbctx.Context, userID string, since time.Time) ([]*types.DailySummary, error)
}

type dailySummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailySummaryRepo(db *gorm.DB, baseLog *logger.Logger) DailySummaryRepo {
	return &dailySummaryRepo{db: db, log: baseLog.With("repo", "DailySummaryRepo")}
}

func (r *dailySummaryRepo) Create(dbc dbctx.Context, s *types.DailySummary) (*types.DailySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *dailySummaryRepo) ListByUserSince(dbc dbctx.Context, userID string, since time.Time) ([]*types.DailySummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DailySummary
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
