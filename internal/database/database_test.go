package database

import (
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("creates directory and applies migrations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ledger.db")

		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open() returned unexpected error: %v", err)
		}
		defer db.Close()

		var count int
		err = db.QueryRow(`SELECT COUNT(*) FROM ledger_document`).Scan(&count)
		if err != nil {
			t.Fatalf("ledger_document table missing: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected empty ledger_document, got %d rows", count)
		}

		version, err := SchemaVersion(db)
		if err != nil {
			t.Fatalf("SchemaVersion() returned unexpected error: %v", err)
		}
		if version != 1 {
			t.Errorf("Expected schema version 1, got %d", version)
		}
	})

	t.Run("is idempotent across reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")

		db, err := Open(path)
		if err != nil {
			t.Fatalf("first Open() failed: %v", err)
		}
		db.Close()

		db, err = Open(path)
		if err != nil {
			t.Fatalf("second Open() failed: %v", err)
		}
		defer db.Close()

		if err := HealthCheck(db); err != nil {
			t.Errorf("HealthCheck() failed: %v", err)
		}
	})
}
