package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/pinegate-backend/internal/domain"
)

// AutoMigrateAll is for local and test databases; production schema is managed outside the service.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}
