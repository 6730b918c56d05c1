package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	AppPort         string // HTTP listen port
	DatabaseURL     string // Postgres connection string (production)
	DBPath          string // SQLite file path (local development)
	JWTSecret       string // JWT signing secret
	BootstrapSecret string // Shared secret for the admin bootstrap endpoint
	MediaUploadURL  string // Media upload sink endpoint
	MediaAPIKey     string // Media upload sink API key
	IsProd          bool   // Is production environment
}

// LoadConfig loads configuration from environment variables,
// reading a .env file first if one is present
func LoadConfig() *Config {
	_ = godotenv.Load()
	cfg := &Config{
		AppPort:         os.Getenv("APP_PORT"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBPath:          os.Getenv("DB_PATH"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		BootstrapSecret: os.Getenv("BOOTSTRAP_SECRET"),
		MediaUploadURL:  os.Getenv("MEDIA_UPLOAD_URL"),
		MediaAPIKey:     os.Getenv("MEDIA_API_KEY"),
		IsProd:          os.Getenv("IS_PROD") == "true",
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "5050"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "findmeme.db"
	}
	return cfg
}
