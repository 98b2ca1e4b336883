package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/syncthing"
)

// Default consumer behaviour. The poll itself blocks server-side, so
// the retry interval only matters when the daemon is unreachable.
const (
	defaultBatchLimit    = 100
	defaultRetryInterval = 5 * time.Second
)

// Handler processes one event. Handlers are invoked sequentially on
// the consumer goroutine, in event order, exactly once per event ID.
type Handler func(ctx context.Context, ev syncthing.Event)

// Logger is the minimal logging interface the consumer needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config controls a Consumer.
type Config struct {
	// ConsumerID namespaces the persisted cursor.
	ConsumerID string

	// BatchLimit caps how many events one poll may return.
	// Defaults to 100.
	BatchLimit int

	// RetryInterval is the pause after a failed poll.
	// Defaults to 5 seconds.
	RetryInterval time.Duration
}

// Consumer long-polls the syncthing event feed and dispatches each
// event exactly once.
//
// Successive polls overlap deliberately: each poll asks for events
// after the last persisted cursor, so a batch may repeat the tail of
// the previous one. The consumer keeps an in-memory watermark and
// discards any record whose ID is at or below it, which makes the
// overlap invisible to handlers. The watermark is persisted through
// the CursorStore after each dispatched batch, so a crash between
// dispatch and persist re-delivers at most one batch.
type Consumer struct {
	client  syncthing.Client
	store   CursorStore
	handler Handler
	cfg     Config
	logger  Logger

	mu        sync.Mutex
	watermark int64
	fresh     bool
}

// NewConsumer creates a consumer. The handler must not be nil.
func NewConsumer(client syncthing.Client, store CursorStore, cfg Config, handler Handler) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("events: handler is required")
	}
	if cfg.ConsumerID == "" {
		return nil, errors.New("events: consumer ID is required")
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}

	return &Consumer{
		client:  client,
		store:   store,
		handler: handler,
		cfg:     cfg,
		logger:  noopLogger{},
	}, nil
}

// SetLogger sets the logger for the consumer.
func (c *Consumer) SetLogger(logger Logger) {
	c.logger = logger
}

// Reset clears the watermark so the next poll starts from the
// beginning of the feed, and makes Run ignore any previously stored
// cursor. Call it whenever the daemon the consumer polls has just been
// launched or relaunched: a fresh daemon numbers its events from 1, so
// a cursor carried over from an earlier daemon run would silently
// discard everything until the IDs catch up.
func (c *Consumer) Reset() {
	c.mu.Lock()
	c.watermark = 0
	c.fresh = true
	c.mu.Unlock()
	c.logger.Info("event cursor reset")
}

// Watermark returns the ID of the last dispatched event.
func (c *Consumer) Watermark() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watermark
}

// Run polls until ctx is cancelled. The stored cursor is loaded once
// at the start, unless Reset was called first: a reset pins the
// consumer to the start of the feed regardless of what a previous run
// persisted. Poll failures are logged and retried.
func (c *Consumer) Run(ctx context.Context) error {
	stored, err := c.store.Load(ctx, c.cfg.ConsumerID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if !c.fresh {
		c.watermark = stored
	}
	cursor := c.watermark
	c.mu.Unlock()

	c.logger.Info("event consumer started",
		"consumer_id", c.cfg.ConsumerID,
		"cursor", cursor,
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("event poll failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryInterval):
			}
		}
	}
}

// poll fetches one batch, dispatches the unseen events, and persists
// the advanced cursor.
func (c *Consumer) poll(ctx context.Context) error {
	since := c.Watermark()

	batch, err := c.client.Events(ctx, since, c.cfg.BatchLimit)
	if err != nil {
		return err
	}

	dispatched := c.Dispatch(ctx, batch)
	if dispatched == 0 {
		return nil
	}

	if err := c.store.Save(ctx, c.cfg.ConsumerID, c.Watermark()); err != nil {
		// The events already reached the handler; losing the save
		// only risks a re-delivery on restart.
		c.logger.Warn("cursor save failed", "error", err)
	}
	return nil
}

// Dispatch feeds a batch through the duplicate filter and the handler,
// advancing the watermark past every dispatched event. It returns the
// number of events actually handled.
func (c *Consumer) Dispatch(ctx context.Context, batch []syncthing.Event) int {
	dispatched := 0
	for _, ev := range batch {
		c.mu.Lock()
		if ev.ID <= c.watermark {
			c.mu.Unlock()
			continue
		}
		c.watermark = ev.ID
		c.mu.Unlock()

		c.handler(ctx, ev)
		dispatched++
	}
	return dispatched
}
