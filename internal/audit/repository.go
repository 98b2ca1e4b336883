// Package audit records supervisor and bridge activity in the
// audit_logs table, giving the syncthing lifecycle a queryable
// history.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lifecycle actions recorded by the bridge.
const (
	ActionStarted   = "started"
	ActionRestarted = "restarted"
	ActionStopped   = "stopped"
	ActionSweep     = "sweep_kill"
	ActionScan      = "scan"
	ActionShutdown  = "shutdown"
)

// Entity types appearing in the audit trail.
const (
	EntityProcess = "process"
	EntityFolder  = "folder"
)

// Entry represents a single audit trail record.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which audit entries to return.
type Filter struct {
	Action     string // optional: filter by action (started, restarted, stopped, ...)
	EntityType string // optional: filter by entity type (process, folder)
	EntityID   string // optional: filter by specific entity ID
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for audit trail operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the audit trail in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new audit entry. The ID and CreatedAt are generated
// if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "aud-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, source, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.EntityType,
		nullableString(entry.EntityID),
		entry.Source, detailsJSON,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns audit entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // dynamic query builder: WHERE clause assembly from filter fields
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, action, entity_type, entity_id, source, details, created_at FROM audit_logs %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var entityID, detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Action, &entry.EntityType,
			&entityID, &entry.Source, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if entityID.Valid {
			entry.EntityID = entityID.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				entry.Details = details
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = t

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
