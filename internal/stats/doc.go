// Package stats records syncthing connection statistics over time.
//
// A Sampler polls the versioned API client on a fixed interval and
// writes per-device transfer counters plus aggregate totals through a
// Recorder, normally the InfluxDB client. Samples taken while the
// daemon is down are skipped silently.
package stats
