package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"libris-backend/internal/config"
	"libris-backend/internal/database"
	"libris-backend/internal/migration"
	"libris-backend/migrations"
)

func main() {
	var (
		dbPath = flag.String("db", "", "Database path (overrides environment)")
		dir    = flag.String("dir", "", "Migrations directory (default: embedded scripts)")
		help   = flag.Bool("help", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  up      Apply all pending migrations\n")
		fmt.Fprintf(os.Stderr, "  status  Show migration status\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *help || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
		cfg.DatabaseDir = filepath.Dir(*dbPath)
	}
	if *dir != "" {
		cfg.MigrationsDir = *dir
	}

	if err := cfg.EnsureDatabaseDir(); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var scripts fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		scripts = os.DirFS(cfg.MigrationsDir)
	}

	runner := migration.NewRunner(db.DB, scripts)
	ctx := context.Background()

	switch command := flag.Arg(0); command {
	case "up":
		if err := runner.Apply(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations completed successfully")

	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to get status: %v", err)
		}
		printStatus(statuses)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func printStatus(statuses []migration.ScriptStatus) {
	if len(statuses) == 0 {
		fmt.Println("No migration scripts found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCRIPT\tSTATE\tAPPLIED AT")
	fmt.Fprintln(w, "------\t-----\t----------")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		if s.Missing {
			state = "applied (file missing)"
		}

		appliedAt := ""
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, state, appliedAt)
	}
	w.Flush()
}
