package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/infrastructure/database"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:    filepath.Join(t.TempDir(), "audit_test.db"),
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		//nolint:errcheck
		db.Close()
	})

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			source TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		)`)
	if err != nil {
		t.Fatalf("creating table: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func TestRepository_CreateGeneratesID(t *testing.T) {
	repo := newTestRepo(t)

	entry := &Entry{
		Action:     ActionStarted,
		EntityType: EntityProcess,
		EntityID:   "syncthing",
		Source:     "supervisor",
		Details:    map[string]any{"pid": 4242},
	}
	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(entry.ID) != len("aud-")+8 {
		t.Errorf("generated ID = %q, want aud- prefix with 8 chars", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestRepository_ListFiltersByAction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []Entry{
		{Action: ActionStarted, EntityType: EntityProcess, EntityID: "syncthing", Source: "supervisor"},
		{Action: ActionRestarted, EntityType: EntityProcess, EntityID: "syncthing", Source: "supervisor"},
		{Action: ActionStopped, EntityType: EntityProcess, EntityID: "syncthing", Source: "supervisor",
			Details: map[string]any{"status": "error"}},
		{Action: ActionScan, EntityType: EntityFolder, EntityID: "default", Source: "api"},
	}
	for i := range seed {
		seed[i].CreatedAt = time.Date(2026, 8, 25, 10, 0, i, 0, time.UTC)
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Action: ActionStopped})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("List(action=stopped) total = %d, len = %d, want 1/1", result.Total, len(result.Entries))
	}
	if got := result.Entries[0].Details["status"]; got != "error" {
		t.Errorf("Details[status] = %v, want %q", got, "error")
	}

	result, err = repo.List(ctx, Filter{EntityType: EntityProcess})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 {
		t.Errorf("List(entity_type=process) total = %d, want 3", result.Total)
	}

	// Most recent first.
	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Entries[0].Action != ActionScan {
		t.Errorf("first entry action = %q, want %q (newest first)", all.Entries[0].Action, ActionScan)
	}
}

func TestRepository_ListPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := Entry{
			Action:     ActionRestarted,
			EntityType: EntityProcess,
			Source:     "supervisor",
			CreatedAt:  time.Date(2026, 8, 25, 10, 0, i, 0, time.UTC),
		}
		if err := repo.Create(ctx, &entry); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if len(page.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(page.Entries))
	}

	empty, err := repo.List(ctx, Filter{Action: "no_such_action"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty.Entries == nil {
		t.Error("Entries = nil, want empty slice")
	}
}
