package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ccp-journal/ccp/internal/config"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// Database lives at {root}/store/CCP.db
	dbPath := filepath.Join(tmpDir, "store", "CCP.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	for _, table := range []string{DocumentsTable, SearchTable} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("%s table not found: %v", table, err)
		}
	}
}

func TestInit_CreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "nested", "path", ".ccp")

	db, err := Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(root, "store")); os.IsNotExist(err) {
		t.Errorf("store directory not created under %s", root)
	}
}

func TestUserVersion(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	version, err := GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after Init = %d, want %d", version, CurrentSchemaVersion)
	}

	if err := SetUserVersion(db, 99); err != nil {
		t.Fatalf("SetUserVersion() error = %v", err)
	}
	version, err = GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != 99 {
		t.Errorf("user_version = %d, want 99", version)
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	if _, err := db1.Exec(`INSERT INTO documents (collection, key, body, created_at, updated_at) VALUES ('config', 'CONFIG', '{"_id":"CONFIG","counter":3}', 0, 0)`); err != nil {
		t.Fatalf("seed insert error = %v", err)
	}
	db1.Close()

	db2, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer db2.Close()

	var body string
	if err := db2.QueryRow(`SELECT body FROM documents WHERE collection='config' AND key='CONFIG'`).Scan(&body); err != nil {
		t.Fatalf("seeded document lost after re-init: %v", err)
	}
}

func TestOpen_TwoHandlesShareFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "shared.db")

	a, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open(a) error = %v", err)
	}
	defer a.Close()
	b, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open(b) error = %v", err)
	}
	defer b.Close()

	if _, err := a.Exec(`INSERT INTO documents (collection, key, body, created_at, updated_at) VALUES ('t', '1', '{}', 0, 0)`); err != nil {
		t.Fatalf("insert via a: %v", err)
	}
	var n int
	if err := b.QueryRow(`SELECT COUNT(*) FROM documents WHERE collection='t'`).Scan(&n); err != nil {
		t.Fatalf("count via b: %v", err)
	}
	if n != 1 {
		t.Errorf("count via b = %d, want 1", n)
	}
}

func TestConfigurePool_NilConfig(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 2, DBMaxIdleConns: 2})

	if got := db.Stats().MaxOpenConnections; got != 2 {
		t.Errorf("MaxOpenConnections = %d, want 2", got)
	}
}
