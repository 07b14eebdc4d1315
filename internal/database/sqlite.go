package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS override_histories (
	user_id              INTEGER PRIMARY KEY,
	modification_counter INTEGER NOT NULL,
	payload              TEXT    NOT NULL,
	updated_at           TEXT    NOT NULL
);`

// OpenSQLite opens the history store at path, creating the file and schema
// when missing. ":memory:" gives a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL and a busy timeout keep the CLI and bot from tripping over each other
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply SQLite schema: %w", err)
	}

	logger.Debug("SQLite store opened", "path", path)
	return db, nil
}
