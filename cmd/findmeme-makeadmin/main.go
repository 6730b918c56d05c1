package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/findmeme/findmeme/pkg/findmeme/config"
	"github.com/findmeme/findmeme/pkg/findmeme/database"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

// Promotes an existing user to admin by username
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: findmeme-makeadmin <username>")
		os.Exit(1)
	}
	username := os.Args[1]

	cfg := config.LoadConfig()

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		logrus.Fatalf("User %q not found", username)
	}

	if err := db.Model(&user).Update("is_admin", true).Error; err != nil {
		logrus.Fatalf("Failed to promote user: %v", err)
	}

	logrus.Infof("%s is now an admin", user.Username)
}
