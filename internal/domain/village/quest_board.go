package village

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestBoardVisibility is how long a board entry is offered after creation.
const QuestBoardVisibility = 24 * time.Hour

// QuestBoardTemplate is a candidate goal on the board. UserID is nil for pool entries.
type QuestBoardTemplate struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	Category       string    `gorm:"column:category;not null" json:"category"`
	Weight         int       `gorm:"column:weight;not null" json:"weight"`
	DaysToComplete int       `gorm:"column:days_to_complete;not null" json:"days_to_complete"`
	UserID         *string   `gorm:"column:user_id;index" json:"user_id,omitempty"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (QuestBoardTemplate) TableName() string { return "quest_board_template" }

func (q *QuestBoardTemplate) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
