package tracker

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskTemplate is a user-owned recurring task definition.
type TaskTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Category  *string        `gorm:"column:category" json:"category,omitempty"`
	Weight    *int           `gorm:"column:weight" json:"weight,omitempty"`
	RRule     string         `gorm:"column:rrule" json:"rrule,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TaskTemplate) TableName() string { return "task_template" }

func (t *TaskTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaskCompletion marks one day of a task template as done (or not).
type TaskCompletion struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string     `gorm:"column:user_id;not null;index" json:"user_id"`
	TaskTemplateID uuid.UUID  `gorm:"type:uuid;column:task_template_id;not null;index" json:"task_template_id"`
	Complete       bool       `gorm:"column:complete;not null;default:false" json:"complete"`
	CompletedAt    *time.Time `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	Date           time.Time  `gorm:"column:date;not null" json:"date"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
}

func (TaskCompletion) TableName() string { return "task_completion" }

func (t *TaskCompletion) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
