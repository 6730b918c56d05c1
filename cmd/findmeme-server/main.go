package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/findmeme/findmeme/pkg/findmeme/admin"
	"github.com/findmeme/findmeme/pkg/findmeme/auth"
	"github.com/findmeme/findmeme/pkg/findmeme/config"
	"github.com/findmeme/findmeme/pkg/findmeme/database"
	"github.com/findmeme/findmeme/pkg/findmeme/favorites"
	"github.com/findmeme/findmeme/pkg/findmeme/media"
	"github.com/findmeme/findmeme/pkg/findmeme/memes"
	"github.com/findmeme/findmeme/pkg/findmeme/models"
)

func main() {
	cfg := config.LoadConfig()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}
	logrus.Info("Database migrations completed")

	// Media uploads are disabled when no sink is configured; submissions
	// without a file still work via the placeholder URL
	var uploader media.Uploader
	if cfg.MediaUploadURL != "" {
		uploader = media.NewHTTPUploader(cfg.MediaUploadURL, cfg.MediaAPIKey)
	} else {
		logrus.Warn("MEDIA_UPLOAD_URL not set - file uploads disabled")
	}

	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "FindMeme API is running!",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Meme routes: browsing and submission are public, deletion is
		// admin only
		memesHandler := memes.NewHandler(db, uploader)
		memesHandler.RegisterRoutes(api.Group(""))
		memesHandler.RegisterAdminRoutes(api.Group("", auth.AuthMiddleware(), auth.RequireAdmin(db)))

		// Favorites routes (bearer auth required)
		favoritesHandler := favorites.NewHandler(db)
		favoritesHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Admin moderation routes (bearer auth + admin capability)
		adminHandler := admin.NewHandler(db, cfg.BootstrapSecret)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin(db))
		adminHandler.RegisterRoutes(adminGroup)

		// Bootstrap endpoint is shared-secret gated, never behind the
		// normal auth chain
		adminHandler.RegisterBootstrapRoutes(api.Group("/admin"))
	}

	logrus.Infof("Starting FindMeme server on :%s", cfg.AppPort)
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
