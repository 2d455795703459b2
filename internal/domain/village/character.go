package village

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Character is the per-user game state. Level never decreases.
type Character struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	Level       int       `gorm:"column:level;not null;default:1" json:"level"`
	Name        string    `gorm:"column:name;not null;default:''" json:"name"`
	Title       string    `gorm:"column:title;not null;default:''" json:"title"`
	Description string    `gorm:"column:description;not null;default:''" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Character) TableName() string { return "village_character" }

func (c *Character) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
