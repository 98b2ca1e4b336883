package influxdb

import "errors"

// Sentinel errors, matchable with errors.Is. Most write failures are
// delivered asynchronously through the SetOnError callback instead.
var (
	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed initial connection.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the integration is
	// switched off in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
