package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	DatabasePath  string
	DatabaseDir   string
	MigrationsDir string
	ServerPort    string
	FrontendURL   string
	RateLimit     int
	RateWindow    time.Duration
}

// GetConfig returns the application configuration based on environment variables
func GetConfig() (*Config, error) {
	config := &Config{}

	// Database configuration
	if dbPath := os.Getenv("LIBRIS_DB_PATH"); dbPath != "" {
		config.DatabasePath = dbPath
		config.DatabaseDir = filepath.Dir(dbPath)
	} else {
		config.DatabaseDir = filepath.Join(".", "data")
		config.DatabasePath = filepath.Join(config.DatabaseDir, "libris.db")
	}

	// Migration scripts are embedded unless an override directory is given
	config.MigrationsDir = os.Getenv("LIBRIS_MIGRATIONS_DIR")

	// Server configuration
	config.ServerPort = os.Getenv("PORT")
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	// Frontend URL configuration
	config.FrontendURL = os.Getenv("LIBRIS_ALLOWED_ORIGIN")
	if config.FrontendURL == "" {
		config.FrontendURL = "http://localhost:3000"
	}

	// Rate limiting configuration
	config.RateLimit = envInt("LIBRIS_RATE_LIMIT", 100)
	windowSeconds := envInt("LIBRIS_RATE_WINDOW_SECONDS", 60)
	config.RateWindow = time.Duration(windowSeconds) * time.Second

	return config, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// EnsureDatabaseDir creates the database directory if it doesn't exist
func (c *Config) EnsureDatabaseDir() error {
	return os.MkdirAll(c.DatabaseDir, 0755)
}

// DatabaseExists checks if the database file exists
func (c *Config) DatabaseExists() bool {
	_, err := os.Stat(c.DatabasePath)
	return !os.IsNotExist(err)
}
