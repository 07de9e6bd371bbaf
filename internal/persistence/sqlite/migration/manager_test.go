package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"001_create_items.sql": {Data: []byte("-- items\nCREATE TABLE items (id TEXT PRIMARY KEY);\nCREATE INDEX idx_items ON items(id);\n")},
		"002_add_name.sql":     {Data: []byte("ALTER TABLE items ADD COLUMN name TEXT NOT NULL DEFAULT '';")},
		"README.md":            {Data: []byte("ignored")},
	}
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	manager := NewManager(NewScanner(testFiles(), "."), NewSQLiteExecutor(db), nil)

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO items (id, name) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("expected migrated schema, got %v", err)
	}

	// Second run is a no-op.
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 || len(status.AppliedMigrations) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.AppliedMigrations[0].Checksum == "" {
		t.Fatalf("expected checksum to be recorded")
	}
}

func TestManager_RunMigrationsRollsBackFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok_table (id TEXT);\nCREATE TABLE broken (;\n")},
	}
	manager := NewManager(NewScanner(files, "."), NewSQLiteExecutor(db), nil)

	err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	var migErr *MigrationError
	if !errors.As(err, &migErr) || migErr.Version != "001" {
		t.Fatalf("expected MigrationError for 001, got %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO ok_table (id) VALUES ('x')`); err == nil {
		t.Fatalf("expected first statement to be rolled back")
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PendingCount != 1 || status.CurrentVersion != "" {
		t.Fatalf("expected migration to stay pending, got %+v", status)
	}
}

func TestManager_DetectsModifiedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := testFiles()
	if err := NewManager(NewScanner(files, "."), NewSQLiteExecutor(db), nil).RunMigrations(ctx); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	files["002_add_name.sql"] = &fstest.MapFile{Data: []byte("ALTER TABLE items ADD COLUMN other TEXT;")}
	_, err := NewManager(NewScanner(files, "."), NewSQLiteExecutor(db), nil).PendingMigrations(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}
