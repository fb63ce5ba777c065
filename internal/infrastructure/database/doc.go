// Package database provides SQLite database connectivity for terrarium-core.
//
// This package manages:
//   - Database connection with WAL mode so queries can read during ingest
//   - Schema migrations embedded in the binary
//   - Connection pooling and lifecycle management
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live under migrations/ as version-prefixed pairs
// (YYYYMMDD_HHMMSS_description.up.sql / .down.sql). Each migration is
// applied in its own transaction and recorded in schema_migrations.
package database
