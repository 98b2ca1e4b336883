package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

// testMigrationsDir is the directory containing test migration files.
const testMigrationsDir = "testdata"

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useTestMigrations points the package at the testdata migrations and
// restores the originals when the test finishes.
func useTestMigrations(t *testing.T, fs embed.FS, dir string) {
	t.Helper()
	origFS := MigrationsFS
	origDir := MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = fs
	MigrationsDir = dir
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	useTestMigrations(t, testMigrationsFS, testMigrationsDir)

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Verify table was created
	var tableName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='test_cursors'",
	).Scan(&tableName)
	if err != nil {
		t.Fatalf("table test_cursors not created: %v", err)
	}

	// Verify migration was recorded
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		t.Fatalf("appliedVersions() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("expected 1 applied migration, got %d", len(applied))
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateNoMigrations verifies behaviour with no migrations.
func TestMigrateNoMigrations(t *testing.T) {
	var emptyFS embed.FS
	useTestMigrations(t, emptyFS, ".")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantName    string
		wantOk      bool
	}{
		{
			name:        "valid migration",
			filename:    "20260601_120000_initial_schema.sql",
			wantVersion: "20260601_120000",
			wantName:    "initial_schema",
			wantOk:      true,
		},
		{
			name:        "multi word description",
			filename:    "20260601_130000_add_audit_logs.sql",
			wantVersion: "20260601_130000",
			wantName:    "add_audit_logs",
			wantOk:      true,
		},
		{
			name:     "missing description",
			filename: "20260601_120000.sql",
			wantOk:   false,
		},
		{
			name:     "no version prefix",
			filename: "schema.sql",
			wantOk:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
		})
	}
}
