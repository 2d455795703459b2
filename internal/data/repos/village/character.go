package village

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type CharacterRepo interface {
	Create(dbc dbctx.Context, c *types.Character) (*types.Character, error)
	GetByUserID(dbc dbctx.Context, userID string) (*types.Character, error)
	GetByUserIDs(dbc dbctx.Context, userIDs []string) ([]*types.Character, error)
	ListAll(dbc dbctx.Context) ([]*types.Character, error)
	Count(dbc dbctx.Context) (int64, error)
	UpdateLevel(dbc dbctx.Context, id uuid.UUID, level int) error
	// UpdateTitleByUserID reports the number of rows touched; zero is not an error.
	UpdateTitleByUserID(dbc dbctx.Context, userID string, title string) (int64, error)
	UpdateProfile(dbc dbctx.Context, userID string, updates map[string]interface{}) (int64, error)
}

type characterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCharacterRepo(db *gorm.DB, baseLog *logger.Logger) CharacterRepo {
	return &characterRepo{db: db, log: baseLog.With("repo", "CharacterRepo")}
}

func (r *characterRepo) Create(dbc dbctx.Context, c *types.Character) (*types.Character, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetByUserID returns nil, nil when the user has no character yet.
func (r *characterRepo) GetByUserID(dbc dbctx.Context, userID string) (*types.Character, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.Character
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *characterRepo) GetByUserIDs(dbc dbctx.Context, userIDs []string) ([]*types.Character, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Character
	if len(userIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id IN ?", userIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *characterRepo) ListAll(dbc dbctx.Context) ([]*types.Character, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Character
	if err := transaction.WithContext(dbc.Ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *characterRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Character{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *characterRepo) UpdateLevel(dbc dbctx.Context, id uuid.UUID, level int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Character{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"level": level, "updated_at": time.Now().UTC()}).Error
}

func (r *characterRepo) UpdateTitleByUserID(dbc dbctx.Context, userID string, title string) (int64, error) {
	return r.UpdateProfile(dbc, userID, map[string]interface{}{"title": title})
}

func (r *characterRepo) UpdateProfile(dbc dbctx.Context, userID string, updates map[string]interface{}) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return 0, nil
	}
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields["updated_at"] = time.Now().UTC()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Character{}).
		Where("user_id = ?", userID).
		Updates(fields)
	return res.RowsAffected, res.Error
}
