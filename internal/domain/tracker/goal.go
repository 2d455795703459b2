package tracker

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal is self-contained: the row is both the definition and its completion.
type Goal struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Category     *string        `gorm:"column:category" json:"category,omitempty"`
	Weight       *int           `gorm:"column:weight" json:"weight,omitempty"`
	DueDate      *time.Time     `gorm:"column:due_date" json:"due_date,omitempty"`
	CompletedAt  *time.Time     `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	FromTemplate bool           `gorm:"column:from_template;not null;default:false" json:"from_template"`
	Rewarded     bool           `gorm:"column:rewarded;not null;default:false" json:"rewarded"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Goal) TableName() string { return "goal" }

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
