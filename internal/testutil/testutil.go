// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/database"
)

// TestDB wraps a migrated test database.
type TestDB struct {
	DB     *database.DB
	Conn   *sql.DB
	Logger zerolog.Logger
}

// NewTestDB creates a migrated database in a temp directory. The database
// is closed and removed when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDB{
		DB:     db,
		Conn:   db.Conn(),
		Logger: zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel),
	}
}
