package syncthing

import (
	"encoding/json"
	"time"
)

// Version describes the running syncthing daemon.
type Version struct {
	Version     string `json:"version"`
	LongVersion string `json:"longVersion"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
}

// SystemInfo is a subset of /rest/system/status.
type SystemInfo struct {
	MyID          string    `json:"myID"`
	Uptime        int64     `json:"uptime"`
	Goroutines    int       `json:"goroutines"`
	PathSeparator string    `json:"pathSeparator"`
	StartTime     time.Time `json:"startTime"`
}

// ConnectionInfo describes a single device connection (or the total
// aggregate) in normalised form.
type ConnectionInfo struct {
	Address       string    `json:"address"`
	Connected     bool      `json:"connected"`
	ClientVersion string    `json:"clientVersion"`
	InBytesTotal  int64     `json:"inBytesTotal"`
	OutBytesTotal int64     `json:"outBytesTotal"`
	At            time.Time `json:"at"`
}

// Connections is the normalised shape of /rest/system/connections:
// an aggregate total plus a per-device map, regardless of how the
// daemon version lays the response out on the wire.
type Connections struct {
	Total   ConnectionInfo
	Devices map[string]ConnectionInfo
}

// Folder is a subset of a configured folder.
type Folder struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Path     string `json:"path"`
	ReadOnly bool   `json:"-"`
}

// Device is a subset of a configured device.
type Device struct {
	DeviceID string `json:"deviceID"`
	Name     string `json:"name"`
}

// Config is the subset of the daemon configuration the bridge needs.
type Config struct {
	Folders []Folder `json:"folders"`
	Devices []Device `json:"devices"`
}

// Ignores is the response of /rest/db/ignores: the raw lines from
// .stignore plus the expanded patterns the daemon derived from them.
type Ignores struct {
	Lines    []string `json:"ignore"`
	Patterns []string `json:"expanded"`
}

// Event is a single entry from the /rest/events feed. IDs increase
// strictly monotonically within a daemon run; Data is left raw because
// its shape depends on Type.
type Event struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}
