package village

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WeeklySummary is one chapter of the village story. Rows are append-only.
type WeeklySummary struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Summary        string    `gorm:"column:summary;type:text;not null" json:"summary"`
	NextWeekPrompt string    `gorm:"column:next_week_prompt;type:text;not null" json:"next_week_prompt"`
	AgentNotes     string    `gorm:"column:agent_notes;type:text;not null" json:"agent_notes"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (WeeklySummary) TableName() string { return "weekly_summary" }

func (w *WeeklySummary) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// DailySummary is a per-user continuity note for the next day's generation. Append-only.
type DailySummary struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"column:user_id;not null;index" json:"user_id"`
	AgentNotes string    `gorm:"column:agent_notes;type:text;not null" json:"agent_notes"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (DailySummary) TableName() string { return "daily_summary" }

func (d *DailySummary) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
