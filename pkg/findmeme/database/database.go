package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/findmeme/findmeme/pkg/findmeme/config"
)

// Connect opens the database connection.
// Uses Postgres when DATABASE_URL is set, otherwise falls back to SQLite
// for local development.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
}

// Close shuts down the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
