package database

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"libris-backend/internal/config"
	"libris-backend/internal/migration"
	"libris-backend/migrations"
)

// Initialize opens the SQLite store at the configured path and applies
// pending migrations before returning the handle. A migration failure, or a
// store left with no applied migrations at all, closes the handle and fails;
// the process must not serve on a missing or half converged schema.
func Initialize(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if err := cfg.EnsureDatabaseDir(); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	scripts, err := migrationScripts(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	runner := migration.NewRunner(db.DB, scripts)
	if err := runner.Apply(ctx); err != nil {
		db.Close()
		return nil, err
	}

	var applied int
	if err := db.GetContext(ctx, &applied, `SELECT COUNT(*) FROM _migrations`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count applied migrations: %w", err)
	}
	if applied == 0 {
		db.Close()
		return nil, fmt.Errorf("store %s has no applied migrations", cfg.DatabasePath)
	}

	return db, nil
}

// Open opens the SQLite file with the connection settings every caller
// relies on: foreign keys enforced, WAL journaling, a busy timeout, and a
// single connection so concurrent writes serialize instead of failing with
// SQLITE_BUSY.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// migrationScripts resolves the script source: an override directory when
// one is configured, the embedded set otherwise.
func migrationScripts(cfg *config.Config) (fs.FS, error) {
	if cfg.MigrationsDir == "" {
		return migrations.FS, nil
	}

	info, err := os.Stat(cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", cfg.MigrationsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %s is not a directory", cfg.MigrationsDir)
	}

	return os.DirFS(cfg.MigrationsDir), nil
}
