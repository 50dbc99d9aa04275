package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MiaowFISH/emohub/models"
)

var DB *gorm.DB

// Connect opens the SQLite database at dbPath, creating parent directories as
// needed, and migrates the schema.
func Connect(dbPath string) error {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.SetupJoinTable(&models.Image{}, "Tags", &models.ImageTag{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}

	if err := db.AutoMigrate(&models.Image{}, &models.Tag{}, &models.ImageTag{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	DB = db
	slog.Info("database connection established", "path", dbPath)
	return nil
}

// Ping verifies the connection is alive. Used by the health endpoint.
func Ping() error {
	var one int
	return DB.Raw("SELECT 1").Scan(&one).Error
}
