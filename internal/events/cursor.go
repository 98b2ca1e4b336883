package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/infrastructure/database"
)

// CursorStore persists a consumer's event watermark across restarts.
type CursorStore interface {
	// Load returns the last processed event ID for a consumer, or 0
	// when the consumer has no stored cursor yet.
	Load(ctx context.Context, consumerID string) (int64, error)

	// Save records the last processed event ID for a consumer.
	Save(ctx context.Context, consumerID string, lastEventID int64) error
}

// SQLiteCursorStore keeps one cursor row per consumer in the
// event_cursors table.
type SQLiteCursorStore struct {
	db *database.DB
}

// NewSQLiteCursorStore creates a cursor store backed by the given
// database.
func NewSQLiteCursorStore(db *database.DB) *SQLiteCursorStore {
	return &SQLiteCursorStore{db: db}
}

// Load implements CursorStore.
func (s *SQLiteCursorStore) Load(ctx context.Context, consumerID string) (int64, error) {
	var lastID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_event_id FROM event_cursors WHERE consumer_id = ?`,
		consumerID,
	).Scan(&lastID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading cursor for %s: %w", consumerID, err)
	}
	return lastID, nil
}

// Save implements CursorStore.
func (s *SQLiteCursorStore) Save(ctx context.Context, consumerID string, lastEventID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_cursors (consumer_id, last_event_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(consumer_id) DO UPDATE SET
		   last_event_id = excluded.last_event_id,
		   updated_at = excluded.updated_at`,
		consumerID, lastEventID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving cursor for %s: %w", consumerID, err)
	}
	return nil
}
