package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cantus-labs/cantus-api/internal/logger"
	"github.com/cantus-labs/cantus-api/internal/models"
)

// Connect opens the Postgres connection
func Connect(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	logger.Info("Database connected", nil)
	return db, nil
}

// Migrate runs the schema migrations
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Piece{}); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("Database migrations completed", nil)
	return nil
}
