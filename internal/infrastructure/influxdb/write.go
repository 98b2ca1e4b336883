package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteConnectionMetric records transfer counters for one device
// connection.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Syncthing device ID the connection belongs to
//   - inBytes: Cumulative bytes received from the device
//   - outBytes: Cumulative bytes sent to the device
//   - connected: Whether the device is currently connected
//
// Example:
//
//	client.WriteConnectionMetric("ABCDEFG-...", 1048576, 524288, true)
func (c *Client) WriteConnectionMetric(deviceID string, inBytes, outBytes int64, connected bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_connections",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"in_bytes_total":  inBytes,
			"out_bytes_total": outBytes,
			"connected":       connected,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTransferTotals records the aggregate transfer counters across
// all connections.
//
// Parameters:
//   - inBytes: Total cumulative bytes received
//   - outBytes: Total cumulative bytes sent
//   - deviceCount: Number of currently connected devices
func (c *Client) WriteTransferTotals(inBytes, outBytes int64, deviceCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transfer_totals",
		nil,
		map[string]interface{}{
			"in_bytes_total":  inBytes,
			"out_bytes_total": outBytes,
			"device_count":    deviceCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSupervisorEvent records a supervisor lifecycle transition as an
// annotated point, useful for overlaying restarts on transfer graphs.
//
// Parameters:
//   - action: The lifecycle action (started, restarted, stopped)
//   - status: Exit status string for stops, "" otherwise
func (c *Client) WriteSupervisorEvent(action, status string) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{"action": action}
	if status != "" {
		tags["status"] = status
	}

	point := write.NewPoint(
		"supervisor_events",
		tags,
		map[string]interface{}{"count": 1},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
