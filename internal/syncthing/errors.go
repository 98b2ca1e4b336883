package syncthing

import (
	"errors"
	"fmt"
)

// Sentinel errors for the REST client.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnavailable is returned when the syncthing API cannot be
	// reached at all: connection refused, reset, or timed out. The
	// daemon is likely still starting or has gone away.
	ErrUnavailable = errors.New("syncthing: api unavailable")

	// ErrProtocolMismatch is returned when the API answered but the
	// response body does not decode into the shapes this client
	// binding expects. Usually means the wrong version binding was
	// selected for the running daemon.
	ErrProtocolMismatch = errors.New("syncthing: unexpected response shape")

	// ErrUnsupportedVersion is returned by SelectClient when no
	// binding exists for the reported daemon version.
	ErrUnsupportedVersion = errors.New("syncthing: unsupported daemon version")
)

// APIError represents a well-formed error response from the syncthing
// API: the transport worked and the daemon answered, but with a
// non-2xx status. Check with errors.As().
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("syncthing: api error (status %d)", e.Status)
	}
	return fmt.Sprintf("syncthing: api error (status %d): %s", e.Status, e.Message)
}
