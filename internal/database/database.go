package database

import (
	"fmt"

	"ops-dashboard-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the SQLite database at path and runs migrations. It exits the
// process on failure.
func InitDB(path string) {
	db, err := Open(path, logger.Warn)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Fatal("Failed to open database")
	}
	DB = db
	logrus.WithField("path", path).Info("Database connected and migrated")
}

// Open connects to SQLite (pure Go, no CGO) and auto-migrates every model.
// Use ":memory:" for a throwaway database.
func Open(path string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive and shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
