package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestGetConfigDefaults(t *testing.T) {
	t.Setenv("LIBRIS_DB_PATH", "")
	t.Setenv("LIBRIS_MIGRATIONS_DIR", "")
	t.Setenv("PORT", "")
	t.Setenv("LIBRIS_ALLOWED_ORIGIN", "")
	t.Setenv("LIBRIS_RATE_LIMIT", "")
	t.Setenv("LIBRIS_RATE_WINDOW_SECONDS", "")

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if cfg.DatabasePath != filepath.Join("data", "libris.db") {
		t.Errorf("Unexpected default database path: %s", cfg.DatabasePath)
	}
	if cfg.MigrationsDir != "" {
		t.Errorf("Expected embedded migrations by default, got dir %q", cfg.MigrationsDir)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.FrontendURL != "http://localhost:3000" {
		t.Errorf("Unexpected default frontend URL: %s", cfg.FrontendURL)
	}
	if cfg.RateLimit != 100 {
		t.Errorf("Expected default rate limit 100, got %d", cfg.RateLimit)
	}
	if cfg.RateWindow != time.Minute {
		t.Errorf("Expected default rate window 1m, got %s", cfg.RateWindow)
	}
}

func TestGetConfigOverrides(t *testing.T) {
	t.Setenv("LIBRIS_DB_PATH", "/var/lib/libris/books.db")
	t.Setenv("LIBRIS_MIGRATIONS_DIR", "/etc/libris/migrations")
	t.Setenv("PORT", "9090")
	t.Setenv("LIBRIS_ALLOWED_ORIGIN", "https://library.example.com")
	t.Setenv("LIBRIS_RATE_LIMIT", "10")
	t.Setenv("LIBRIS_RATE_WINDOW_SECONDS", "30")

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if cfg.DatabasePath != "/var/lib/libris/books.db" {
		t.Errorf("Unexpected database path: %s", cfg.DatabasePath)
	}
	if cfg.DatabaseDir != "/var/lib/libris" {
		t.Errorf("Expected database dir derived from path, got %s", cfg.DatabaseDir)
	}
	if cfg.MigrationsDir != "/etc/libris/migrations" {
		t.Errorf("Unexpected migrations dir: %s", cfg.MigrationsDir)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("Unexpected port: %s", cfg.ServerPort)
	}
	if cfg.FrontendURL != "https://library.example.com" {
		t.Errorf("Unexpected frontend URL: %s", cfg.FrontendURL)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("Unexpected rate limit: %d", cfg.RateLimit)
	}
	if cfg.RateWindow != 30*time.Second {
		t.Errorf("Unexpected rate window: %s", cfg.RateWindow)
	}
}

func TestEnvIntRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 100},
		{"not a number", "lots", 100},
		{"zero", "0", 100},
		{"negative", "-5", 100},
		{"valid", "250", 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LIBRIS_TEST_INT", tt.value)
			if got := envInt("LIBRIS_TEST_INT", 100); got != tt.want {
				t.Errorf("envInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestEnsureDatabaseDirAndExists(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DatabaseDir:  filepath.Join(dir, "nested", "data"),
		DatabasePath: filepath.Join(dir, "nested", "data", "libris.db"),
	}

	if err := cfg.EnsureDatabaseDir(); err != nil {
		t.Fatalf("EnsureDatabaseDir failed: %v", err)
	}
	if cfg.DatabaseExists() {
		t.Error("Expected database file to not exist yet")
	}
}
