// Package database provides SQLite database connectivity for syncbridge.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Additive schema migrations embedded in the binary
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
