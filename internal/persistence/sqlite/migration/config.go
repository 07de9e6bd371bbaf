package migration

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteConfig holds SQLite-specific database configuration.
type SQLiteConfig struct {
	// DSN is the database file path or ":memory:".
	DSN string
	// BusyTimeout sets how long to wait for database locks.
	BusyTimeout       time.Duration
	EnableForeignKeys bool
	// JournalMode sets the SQLite journal mode (WAL, DELETE, MEMORY, ...).
	JournalMode string
	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF).
	Synchronous string
	// CacheSize sets the page cache size in KB (negative) or pages.
	CacheSize       int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var (
	validJournalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	validSyncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// Validate checks the configuration for obviously invalid values.
func (c SQLiteConfig) Validate() error {
	switch {
	case c.DSN == "":
		return fmt.Errorf("DSN cannot be empty")
	case c.BusyTimeout < 0:
		return fmt.Errorf("BusyTimeout cannot be negative")
	case c.JournalMode != "" && !validJournalModes[c.JournalMode]:
		return fmt.Errorf("invalid journal mode: %s", c.JournalMode)
	case c.Synchronous != "" && !validSyncModes[c.Synchronous]:
		return fmt.Errorf("invalid synchronous mode: %s", c.Synchronous)
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0:
		return fmt.Errorf("connection limits cannot be negative")
	case c.ConnMaxLifetime < 0:
		return fmt.Errorf("ConnMaxLifetime cannot be negative")
	}
	return nil
}

// Open opens and configures a SQLite database, creating its directory when
// needed. Pragmas travel in the DSN so every pooled connection gets them.
func Open(config SQLiteConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}
	if config.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.dataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func (c SQLiteConfig) dataSourceName() string {
	pragmas := url.Values{}
	pragmas.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.JournalMode != "" {
		pragmas.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		pragmas.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}
	if c.EnableForeignKeys {
		pragmas.Add("_pragma", "foreign_keys(1)")
	}
	if c.CacheSize != 0 {
		pragmas.Add("_pragma", fmt.Sprintf("cache_size(%d)", c.CacheSize))
	}
	return c.DSN + "?" + pragmas.Encode()
}

// DefaultSQLiteConfig returns a SQLite configuration for a file database.
func DefaultSQLiteConfig(databasePath string) SQLiteConfig {
	return SQLiteConfig{
		DSN:               databasePath,
		BusyTimeout:       30 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		CacheSize:         -2000,
		MaxOpenConns:      25,
		MaxIdleConns:      5,
		ConnMaxLifetime:   5 * time.Minute,
	}
}

// InMemoryTestSQLiteConfig returns a single-connection in-memory configuration.
func InMemoryTestSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		DSN:               ":memory:",
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "MEMORY",
		Synchronous:       "OFF",
		CacheSize:         -1000,
		MaxOpenConns:      1,
		MaxIdleConns:      1,
	}
}
