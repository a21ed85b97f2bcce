// Package sqlite implements the store.Store interface backed by a local
// SQLite file.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/relaynotes/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pragmas are applied to every pooled connection. WAL lets the HTTP
// readers run while the ingestion loop writes.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// SQLiteStore implements store.Store backed by SQLite.
type SQLiteStore struct {
	*store.SQLStore
}

// Compile-time check that SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)

// Open creates or opens the database at path and applies migrations.
// Failures wrap store.ErrUnavailable.
func Open(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", store.ErrUnavailable)
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database dir: %v", store.ErrUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", cleanPath+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", store.ErrUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %v", store.ErrUnavailable, err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: run migrations: %v", store.ErrUnavailable, err)
	}

	return &SQLiteStore{SQLStore: store.NewSQLStore(db, store.QuestionPlaceholder)}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}
	return store.Migrate(migrationsFS, "migrations", "sqlite", driver)
}
