package syncthing

import (
	"context"
	"time"
)

func init() {
	registerBinding("0.13", newClientV13)
}

// clientV13 binds the v0.13+ wire shapes: the connections endpoint
// nests the per-device map under "connections" with a sibling "total"
// aggregate, each entry carries an explicit connected flag, and folder
// configuration replaced the readOnly boolean with a type string.
type clientV13 struct {
	restClient
}

func newClientV13(baseURL, apiKey string) Client {
	return &clientV13{restClient{newRest(baseURL, apiKey)}}
}

type connV13 struct {
	Address       string    `json:"address"`
	Connected     bool      `json:"connected"`
	ClientVersion string    `json:"clientVersion"`
	InBytesTotal  int64     `json:"inBytesTotal"`
	OutBytesTotal int64     `json:"outBytesTotal"`
	At            time.Time `json:"at"`
}

func (w connV13) normalise() ConnectionInfo {
	return ConnectionInfo{
		Address:       w.Address,
		Connected:     w.Connected,
		ClientVersion: w.ClientVersion,
		InBytesTotal:  w.InBytesTotal,
		OutBytesTotal: w.OutBytesTotal,
		At:            w.At,
	}
}

func (c *clientV13) Connections(ctx context.Context) (Connections, error) {
	var wire struct {
		Connections map[string]connV13 `json:"connections"`
		Total       connV13            `json:"total"`
	}
	if err := c.get(ctx, "/rest/system/connections", nil, &wire); err != nil {
		return Connections{}, err
	}

	out := Connections{
		Total:   wire.Total.normalise(),
		Devices: make(map[string]ConnectionInfo, len(wire.Connections)),
	}
	for id, conn := range wire.Connections {
		out.Devices[id] = conn.normalise()
	}
	return out, nil
}

type folderV13 struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
	Type  string `json:"type"`
}

func (c *clientV13) Config(ctx context.Context) (Config, error) {
	var wire struct {
		Folders []folderV13 `json:"folders"`
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
			ReadOnly: f.Type == "readonly" || f.Type == "sendonly",
		})
	}
	return cfg, nil
}
