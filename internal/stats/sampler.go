package stats

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/syncthing"
)

// defaultInterval is used when the configured sample interval is
// missing or non-positive.
const defaultInterval = 30 * time.Second

// Recorder receives connection samples. Satisfied by *influxdb.Client.
type Recorder interface {
	WriteConnectionMetric(deviceID string, inBytes, outBytes int64, connected bool)
	WriteTransferTotals(inBytes, outBytes int64, deviceCount int)
}

// Logger is the minimal logging interface the sampler needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sampler periodically fetches connection statistics through the
// versioned API client and records them.
type Sampler struct {
	client   syncthing.Client
	rec      Recorder
	interval time.Duration
	logger   Logger

	// onSample, when set, receives each successful sample. Used to
	// feed the MQTT bridge alongside the recorder.
	onSample func(syncthing.Connections)
}

// NewSampler creates a sampler recording through rec every interval.
func NewSampler(client syncthing.Client, rec Recorder, interval time.Duration) (*Sampler, error) {
	if client == nil {
		return nil, errors.New("stats: api client is required")
	}
	if rec == nil {
		return nil, errors.New("stats: recorder is required")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sampler{
		client:   client,
		rec:      rec,
		interval: interval,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the sampler.
func (s *Sampler) SetLogger(logger Logger) {
	s.logger = logger
}

// SetOnSample sets a callback invoked with each successful sample.
func (s *Sampler) SetOnSample(fn func(syncthing.Connections)) {
	s.onSample = fn
}

// Run samples until ctx is cancelled. A failed fetch is logged and
// skipped; the daemon being down between restarts is normal.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	conns, err := s.client.Connections(ctx)
	if err != nil {
		if errors.Is(err, syncthing.ErrUnavailable) {
			s.logger.Debug("connection sample skipped, daemon unavailable")
		} else {
			s.logger.Warn("connection sample failed", "error", err)
		}
		return
	}

	connected := 0
	for deviceID, conn := range conns.Devices {
		s.rec.WriteConnectionMetric(deviceID, conn.InBytesTotal, conn.OutBytesTotal, conn.Connected)
		if conn.Connected {
			connected++
		}
	}
	s.rec.WriteTransferTotals(conns.Total.InBytesTotal, conns.Total.OutBytesTotal, connected)

	if s.onSample != nil {
		s.onSample(conns)
	}
}
