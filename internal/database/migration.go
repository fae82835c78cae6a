package database

import (
	"fmt"

	"datapilot/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserToken{},
		&models.Dataset{},
		&models.LinkedDataset{},
		&models.LinkedDatasetMetric{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.Report{},
		&models.Subscription{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
