package tracker

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HabitTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Category  *string        `gorm:"column:category" json:"category,omitempty"`
	Weight    *int           `gorm:"column:weight" json:"weight,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (HabitTemplate) TableName() string { return "habit_template" }

func (h *HabitTemplate) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// HabitCompletion is one day's tally of positive and negative habit hits.
type HabitCompletion struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string    `gorm:"column:user_id;not null;index" json:"user_id"`
	HabitTemplateID uuid.UUID `gorm:"type:uuid;column:habit_template_id;not null;index" json:"habit_template_id"`
	PositiveCount   int       `gorm:"column:positive_count;not null;default:0" json:"positive_count"`
	NegativeCount   int       `gorm:"column:negative_count;not null;default:0" json:"negative_count"`
	Date            time.Time `gorm:"column:date;not null" json:"date"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
}

func (HabitCompletion) TableName() string { return "habit_completion" }

func (h *HabitCompletion) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
