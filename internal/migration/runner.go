package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"libris-backend/internal/models"
)

// Runner applies pending migration scripts exactly once each, in filename
// order, one transaction per script. The applied name is recorded in
// _migrations inside the same transaction as the script it belongs to, so a
// script and its record always land or vanish together.
type Runner struct {
	db      *sql.DB
	scanner *FileScanner
	logger  *log.Logger
}

// NewRunner creates a runner reading scripts from fsys.
func NewRunner(db *sql.DB, fsys fs.FS) *Runner {
	return &Runner{
		db:      db,
		scanner: NewFileScanner(fsys),
		logger:  log.New(os.Stdout, "[migration] ", log.LstdFlags),
	}
}

// Apply converges the schema. Already applied scripts are skipped, so a
// second run is a no-op, and an empty script set is a successful no-op too.
// A failing script rolls back atomically, stops the run before any later
// script, and surfaces as a migration error naming the script.
func (r *Runner) Apply(ctx context.Context) error {
	if err := r.ensureMetaTable(ctx); err != nil {
		return err
	}

	migrations, err := r.scanner.ScanMigrations()
	if err != nil {
		return fmt.Errorf("failed to scan migrations: %w", err)
	}
	if len(migrations) == 0 {
		r.logger.Println("No migration scripts found")
		return nil
	}

	applied, err := r.appliedRecords(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, m := range migrations {
		if _, ok := applied[m.Name]; !ok {
			pending = append(pending, m)
		}
	}

	if len(pending) == 0 {
		r.logger.Println("No pending migrations")
		return nil
	}

	r.logger.Printf("Found %d pending migrations", len(pending))

	for _, m := range pending {
		r.logger.Printf("Applying %s", m.Name)
		if err := r.applyOne(ctx, m); err != nil {
			return models.NewMigrationError(m.Name, err)
		}
	}

	r.logger.Println("All migrations applied")
	return nil
}

// Status lists every known script with its applied state. Recorded names
// whose file no longer exists are listed last and flagged missing.
func (r *Runner) Status(ctx context.Context) ([]ScriptStatus, error) {
	if err := r.ensureMetaTable(ctx); err != nil {
		return nil, err
	}

	migrations, err := r.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := r.appliedRecords(ctx)
	if err != nil {
		return nil, err
	}

	var statuses []ScriptStatus
	onDisk := make(map[string]bool)
	for _, m := range migrations {
		onDisk[m.Name] = true
		status := ScriptStatus{Name: m.Name}
		if appliedAt, ok := applied[m.Name]; ok {
			status.Applied = true
			at := appliedAt
			status.AppliedAt = &at
		}
		statuses = append(statuses, status)
	}

	var orphans []string
	for name := range applied {
		if !onDisk[name] {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		at := applied[name]
		statuses = append(statuses, ScriptStatus{
			Name:      name,
			Applied:   true,
			AppliedAt: &at,
			Missing:   true,
		})
	}

	return statuses, nil
}

// ensureMetaTable bootstraps the bookkeeping table. Safe to call on every
// startup.
func (r *Runner) ensureMetaTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create _migrations table: %w", err)
	}
	return nil
}

func (r *Runner) appliedRecords(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, applied_at FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		applied[rec.Name] = rec.AppliedAt
	}

	return applied, rows.Err()
}

// applyOne runs one script and its bookkeeping insert in a single
// transaction.
func (r *Runner) applyOne(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range splitStatements(m.Script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO _migrations (name, applied_at) VALUES (?, ?)`,
		m.Name, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// splitStatements splits a script into executable statements on semicolons,
// dropping line comments so a trailing comment never yields an empty
// statement. Semicolons inside string literals are not handled; the schema
// scripts here do not need them.
func splitStatements(script string) []string {
	var statements []string
	for _, raw := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
