package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS should be set by the main package to embed migration files.
// This allows the migrations to be compiled into the binary.
//
// Usage in a migrations package:
//
//	//go:embed *.sql
//	var migrationsFS embed.FS
//
//	func init() {
//	    database.MigrationsFS = migrationsFS
//	    database.MigrationsDir = "."
//	}
var MigrationsFS embed.FS

// MigrationsDir is the directory within MigrationsFS containing migration files.
var MigrationsDir = "migrations"

// Migration is a single versioned schema change. The version is the
// YYYYMMDD_HHMMSS prefix of the filename; ordering is lexical.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Migrate applies all pending migrations in version order.
//
// Each migration runs in its own transaction: a failure rolls back only
// that migration, leaves earlier ones committed, and stops before later
// ones. Re-running Migrate after fixing the failure continues from the
// failed version. Migrations are additive-only; there is no down path.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// appliedVersions returns the set of migration versions already recorded.
func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.DB.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return applied, nil
}

// applyMigration runs a single migration and records it, atomically.
func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// loadMigrations reads all *.sql files from the embedded filesystem,
// sorted by version.
func loadMigrations() ([]Migration, error) {
	var empty embed.FS
	if MigrationsFS == empty {
		return nil, nil // No embedded migrations
	}

	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		// Directory might not exist if no migrations
		return nil, nil
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, name, ok := parseMigrationFilename(entry.Name())
		if !ok {
			continue
		}

		data, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(data),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationFilename splits "YYYYMMDD_HHMMSS_description.sql" into
// version ("YYYYMMDD_HHMMSS") and name ("description").
func parseMigrationFilename(filename string) (version, name string, ok bool) {
	base := strings.TrimSuffix(filename, ".sql")

	const parts = 3
	fields := strings.SplitN(base, "_", parts)
	if len(fields) < parts {
		return "", "", false
	}

	return fields[0] + "_" + fields[1], fields[2], true
}
