// Package testutil provides shared test helpers.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"rolegate/internal/database"
)

// TestDB opens a fresh database in a temporary directory. It is closed when
// the test finishes.
func TestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(t.TempDir())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
