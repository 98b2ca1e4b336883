package syncthing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

func init() {
	registerBinding("0.12", newClientV12)
}

// clientV12 binds the v0.12-era wire shapes. The connections endpoint
// of that generation returns a flat map keyed by device ID with the
// aggregate under the reserved key "total", and folder configuration
// carries a readOnly boolean.
type clientV12 struct {
	restClient
}

func newClientV12(baseURL, apiKey string) Client {
	return &clientV12{restClient{newRest(baseURL, apiKey)}}
}

type connV12 struct {
	Address       string    `json:"address"`
	ClientVersion string    `json:"clientVersion"`
	InBytesTotal  int64     `json:"inBytesTotal"`
	OutBytesTotal int64     `json:"outBytesTotal"`
	At            time.Time `json:"at"`
}

func (w connV12) normalise(connected bool) ConnectionInfo {
	return ConnectionInfo{
		Address:       w.Address,
		Connected:     connected,
		ClientVersion: w.ClientVersion,
		InBytesTotal:  w.InBytesTotal,
		OutBytesTotal: w.OutBytesTotal,
		At:            w.At,
	}
}

func (c *clientV12) Connections(ctx context.Context) (Connections, error) {
	var wire map[string]connV12
	if err := c.get(ctx, "/rest/system/connections", nil, &wire); err != nil {
		return Connections{}, err
	}

	out := Connections{Devices: make(map[string]ConnectionInfo, len(wire))}
	for id, conn := range wire {
		if id == "total" {
			out.Total = conn.normalise(false)
			continue
		}
		// Presence in the map means the device is connected in
		// this generation.
		out.Devices[id] = conn.normalise(true)
	}
	return out, nil
}

type folderV12 struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Path     string `json:"path"`
	ReadOnly bool   `json:"readOnly"`
}

func (c *clientV12) Config(ctx context.Context) (Config, error) {
	var wire struct {
		Folders []folderV12 `json:"folders"`
		Devices []Device    `json:"devices"`
	}
	if err := c.get(ctx, "/rest/system/config", nil, &wire); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Folders: make([]Folder, 0, len(wire.Folders)),
		Devices: wire.Devices,
	}
	for _, f := range wire.Folders {
		cfg.Folders = append(cfg.Folders, Folder{
			ID:       f.ID,
			Label:    f.Label,
			Path:     f.Path,
			ReadOnly: f.ReadOnly,
		})
	}
	return cfg, nil
}

// Events overrides the shared implementation to tolerate the older
// feed's habit of emitting a bare object when only one event is
// pending.
func (c *clientV12) Events(ctx context.Context, since int64, limit int) ([]Event, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/rest/events", eventQuery(since, limit), &raw); err != nil {
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(raw, &events); err == nil {
		return events, nil
	}

	var single Event
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("%w: decoding /rest/events: %v", ErrProtocolMismatch, err)
	}
	return []Event{single}, nil
}
