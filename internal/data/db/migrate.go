package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/tossup-backend/internal/domain/game"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&game.Session{},
		&game.Round{},
	)
}
