package migration

import (
	"context"
	"time"
)

// Migration represents a database migration with its metadata and SQL content.
type Migration struct {
	Version     string // Version identifier (e.g., "001", "002")
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of the file contents
}

// FileScanner discovers migration files.
type FileScanner interface {
	// ScanMigrations returns every migration sorted by numeric version.
	ScanMigrations() ([]Migration, error)
	// ValidateFileName checks if a migration file follows the naming convention.
	ValidateFileName(filename string) error
}

// Executor runs migrations against a database.
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
	InitializeVersionTable(ctx context.Context) error
	// ExecuteMigration runs a migration and records it in the same transaction.
	ExecuteMigration(ctx context.Context, migration Migration) error
	// AppliedMigrations returns all applied migrations ordered by version.
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}

// Status describes the current migration state.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration represents a migration that has been successfully applied.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
