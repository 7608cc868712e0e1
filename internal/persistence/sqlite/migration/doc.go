// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migrations are read from an fs.FS (normally an embed.FS compiled into the
// binary) and must be named {version}_{description}.sql, for example
// "001_create_rooms.sql". Versions form a gapless sequence; each migration runs
// in its own transaction and is recorded in the schema_migrations table together
// with its checksum and execution time.
//
//	runner := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := runner.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
