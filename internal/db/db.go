package db

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/ccp-journal/ccp/internal/config"
	"github.com/ccp-journal/ccp/internal/layout"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 1

// Table names shared with the packages that own them.
const (
	DocumentsTable = "documents"
	SearchTable    = "entry_search"
)

// Init prepares root and opens the document database at root/store/CCP.db.
// The root parameter allows tests to use t.TempDir() instead of ~/.ccp.
func Init(root string) (*sql.DB, error) {
	paths := layout.New(root)

	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	if err := os.MkdirAll(paths.StoreDir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return Open(paths.DatabaseFile())
}

// Open opens (creating if needed) the database file at dbPath and applies
// the schema. Separate Open calls on one file behave like separate processes.
func Open(dbPath string) (*sql.DB, error) {
	// Pragmas in the connection string apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// 0 -> 1: document collections and the entry search index
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS documents (
		  collection TEXT NOT NULL,
		  key        TEXT NOT NULL,
		  body       TEXT NOT NULL,
		  created_at INTEGER NOT NULL,
		  updated_at INTEGER NOT NULL,
		  PRIMARY KEY (collection, key)
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS entry_search USING fts5(
		  title,
		  text,
		  tags,
		  timestamp UNINDEXED,
		  size UNINDEXED,
		  duration UNINDEXED,
		  tokenize = 'unicode61'
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
