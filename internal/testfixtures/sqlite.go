package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite/migration"
)

// NewSQLiteStorage opens a migrated in-memory storage that is closed when
// the test ends.
func NewSQLiteStorage(tb testing.TB) *sqlite.Storage {
	tb.Helper()
	return openStorage(tb, migration.InMemoryTestSQLiteConfig())
}

// NewSQLiteFileStorage opens a migrated WAL storage in a temporary file,
// with the production pool so readers and writers use separate connections.
func NewSQLiteFileStorage(tb testing.TB) *sqlite.Storage {
	tb.Helper()
	return openStorage(tb, migration.DefaultSQLiteConfig(filepath.Join(tb.TempDir(), "hauki.db")))
}

func openStorage(tb testing.TB, config migration.SQLiteConfig) *sqlite.Storage {
	tb.Helper()

	storage, err := sqlite.Open(config, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return storage
}
