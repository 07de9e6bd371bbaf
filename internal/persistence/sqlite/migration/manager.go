package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager orchestrates the migration process.
type Manager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a migration manager. A nil logger uses slog.Default.
func NewManager(scanner FileScanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// RunMigrations executes all pending migrations in sequential order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for i, migration := range pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(pending)),
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	m.logger.InfoContext(ctx, "migrations applied",
		"count", len(pending),
		"duration", time.Since(started).String(),
	)
	return nil
}

// PendingMigrations returns the migrations not yet applied. It fails when an
// applied migration file has been modified since it ran.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	checksums := make(map[string]string, len(applied))
	for _, a := range applied {
		checksums[a.Version] = a.Checksum
	}

	var pending []Migration
	for _, migration := range available {
		sum, ok := checksums[migration.Version]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if sum != "" && sum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return pending, nil
}

// Status reports applied and pending migrations.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}
