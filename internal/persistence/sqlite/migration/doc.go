// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files live in an fs.FS (normally an embed.FS compiled into the
// binary) and are named {version}_{description}.sql, for example
// "001_roster_documents.sql". Applied versions are tracked in the
// schema_migrations table; each file runs in its own transaction together
// with its bookkeeping row.
//
// Example usage:
//
//	db, err := migration.DefaultSQLiteConfig(path).Open(ctx)
//	manager := migration.NewManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(db), files, "migrations", logger)
//	if _, err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
