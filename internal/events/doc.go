// Package events consumes the syncthing event feed.
//
// The daemon's /rest/events endpoint is a long-poll with a monotonic
// ID cursor. Consecutive fetches overlap at the edges, so the consumer
// filters by watermark before dispatching: a feed returning batches
// [5,6] and then [6,7] delivers event 6 to the handler exactly once.
// Cursors persist in SQLite so a bridge restart resumes where it left
// off.
package events
