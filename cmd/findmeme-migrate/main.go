package main

import (
	"github.com/sirupsen/logrus"

	"github.com/findmeme/findmeme/pkg/findmeme/config"
	"github.com/findmeme/findmeme/pkg/findmeme/database"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

// Standalone schema migration, for deployments that don't want the server
// to migrate on boot
func main() {
	cfg := config.LoadConfig()

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := models.AutoMigrate(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	logrus.Info("Database migrations completed")
}
