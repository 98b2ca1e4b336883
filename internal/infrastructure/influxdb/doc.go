// Package influxdb provides InfluxDB connectivity for syncbridge.
//
// It wraps the official influxdb-client-go v2 library with syncbridge
// patterns for connection management, metric writing, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Per-device connection transfer counters
//   - Aggregate transfer totals
//   - Supervisor lifecycle annotations
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "syncbridge",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteConnectionMetric(deviceID, 1048576, 524288, true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a
// callback. Connection and health check errors are returned directly.
package influxdb
