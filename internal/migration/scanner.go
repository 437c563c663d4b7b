package migration

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// FileScanner discovers migration scripts in a flat directory. Lexicographic
// filename order is the application order, so scripts carry a numeric prefix
// like 001_create_books.sql.
type FileScanner struct {
	fsys fs.FS
}

// NewFileScanner creates a new file scanner
func NewFileScanner(fsys fs.FS) *FileScanner {
	return &FileScanner{fsys: fsys}
}

// ScanMigrations returns every .sql script in the directory, sorted by
// filename. Subdirectories and other file types are ignored.
func (s *FileScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(s.fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Name:   entry.Name(),
			Script: string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}
