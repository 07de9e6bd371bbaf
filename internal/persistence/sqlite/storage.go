package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage is the SQLite implementation of every persistence repository.
type Storage struct {
	*ConnectionPool
	*DataSourceRepository
	*ResourceRepository
	*DatePeriodRepository

	logger *slog.Logger
}

var (
	_ persistence.Transactor           = (*Storage)(nil)
	_ persistence.DataSourceRepository = (*Storage)(nil)
	_ persistence.ResourceRepository   = (*Storage)(nil)
	_ persistence.DatePeriodRepository = (*Storage)(nil)
)

// Open opens the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		ConnectionPool:       pool,
		DataSourceRepository: NewDataSourceRepository(pool),
		ResourceRepository:   NewResourceRepository(pool),
		DatePeriodRepository: NewDatePeriodRepository(pool),
		logger:               logger,
	}, nil
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.DB()),
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.DB()),
		s.logger,
	)
	return manager.Status(ctx)
}
