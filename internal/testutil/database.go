package testutil

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ndewijer/Position-Ledger-Backend/internal/database"
)

// SetupTestDB creates a migrated SQLite database in a temporary directory.
// The database is automatically cleaned up when the test completes.
//
// A file is used rather than ":memory:" so the schema goes through the same
// goose migrations and pragmas as production.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "ledger_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CleanDatabase removes every stored ledger document.
//
// Example usage:
//
//	t.Run("Second test", func(t *testing.T) {
//	    testutil.CleanDatabase(t, db)
//	    // Fresh empty ledger
//	})
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM ledger_document"); err != nil {
		t.Fatalf("Failed to clean ledger_document: %v", err)
	}
}

// WriteRawDocument stores a raw document body under the given collection name,
// bypassing the repository. Used to seed malformed or legacy data.
//
// Example usage:
//
//	testutil.WriteRawDocument(t, db, "local_history", `[{"id":1,"totalVal":"abc"}]`)
func WriteRawDocument(t *testing.T, db *sql.DB, name, document string) {
	t.Helper()

	query := `
		INSERT INTO ledger_document (name, document, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document
	`
	if _, err := db.Exec(query, name, []byte(document)); err != nil {
		t.Fatalf("Failed to write document %s: %v", name, err)
	}
}

// ReadRawDocument returns the stored body of a collection, or "" when it does not exist.
func ReadRawDocument(t *testing.T, db *sql.DB, name string) string {
	t.Helper()

	var document []byte
	err := db.QueryRow("SELECT document FROM ledger_document WHERE name = ?", name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		t.Fatalf("Failed to read document %s: %v", name, err)
	}
	return string(document)
}

// CountRows returns the number of rows in a table.
//
// Example usage:
//
//	count := testutil.CountRows(t, db, "ledger_document")
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	//nolint:gosec // G202: Table names come from test code only
	query := "SELECT COUNT(*) FROM " + table
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}
