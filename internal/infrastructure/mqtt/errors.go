package mqtt

import "errors"

// Sentinel errors for broker operations, matchable with errors.Is.
var (
	// ErrNotConnected is returned for operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed initial broker connection.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps publish failures, including timeouts.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps subscribe failures, including timeouts.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned for QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
