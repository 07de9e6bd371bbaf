// Package migration applies versioned SQL schema changes to SQLite databases.
//
// Migrations are read from an fs.FS, usually an embedded directory, and must
// be named {version}_{description}.sql (e.g. "001_initial_schema.sql").
// Applied versions are tracked in the schema_migrations table; each
// migration and its bookkeeping row are written in one transaction.
//
//	manager := migration.NewManager(migration.NewScanner(files), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
