package syncthing

import (
	"context"
	"net/http"
	"testing"
)

const deviceA = "AAAAAAA-BBBBBBB-CCCCCCC-DDDDDDD-EEEEEEE-FFFFFFF-GGGGGGG"

func TestClientV12_ConnectionsNormalised(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte(`{
			"` + deviceA + `": {
				"address": "192.168.1.10:22000",
				"clientVersion": "v0.12.25",
				"inBytesTotal": 1024,
				"outBytesTotal": 2048,
				"at": "2026-08-25T10:00:00Z"
			},
			"total": {
				"address": "",
				"inBytesTotal": 1024,
				"outBytesTotal": 2048,
				"at": "2026-08-25T10:00:00Z"
			}
		}`))
	})

	c := newClientV12(srv.URL, "k")
	conns, err := c.Connections(context.Background())
	if err != nil {
		t.Fatalf("Connections() error = %v", err)
	}

	if conns.Total.InBytesTotal != 1024 || conns.Total.OutBytesTotal != 2048 {
		t.Errorf("Total = in %d out %d, want in 1024 out 2048",
			conns.Total.InBytesTotal, conns.Total.OutBytesTotal)
	}
	if len(conns.Devices) != 1 {
		t.Fatalf("len(Devices) = %d, want 1 (total must not appear as a device)", len(conns.Devices))
	}

	dev, ok := conns.Devices[deviceA]
	if !ok {
		t.Fatalf("Devices missing %s", deviceA)
	}
	if !dev.Connected {
		t.Error("device Connected = false, want true for a listed connection")
	}
	if dev.Address != "192.168.1.10:22000" {
		t.Errorf("Address = %q, want %q", dev.Address, "192.168.1.10:22000")
	}
}

func TestClientV13_ConnectionsNormalised(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte(`{
			"connections": {
				"` + deviceA + `": {
					"address": "192.168.1.10:22000",
					"connected": true,
					"clientVersion": "v1.27.2",
					"inBytesTotal": 100,
					"outBytesTotal": 200
				}
			},
			"total": {"inBytesTotal": 100, "outBytesTotal": 200}
		}`))
	})

	c := newClientV13(srv.URL, "k")
	conns, err := c.Connections(context.Background())
	if err != nil {
		t.Fatalf("Connections() error = %v", err)
	}

	if conns.Total.InBytesTotal != 100 {
		t.Errorf("Total.InBytesTotal = %d, want 100", conns.Total.InBytesTotal)
	}
	dev, ok := conns.Devices[deviceA]
	if !ok {
		t.Fatalf("Devices missing %s", deviceA)
	}
	if !dev.Connected || dev.ClientVersion != "v1.27.2" {
		t.Errorf("device = %+v, want connected with client version v1.27.2", dev)
	}
}

func TestClientV12_ConfigReadOnly(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte(`{
			"folders": [
				{"id": "default", "path": "/data/default", "readOnly": true},
				{"id": "photos", "path": "/data/photos", "readOnly": false}
			],
			"devices": [{"deviceID": "` + deviceA + `", "name": "laptop"}]
		}`))
	})

	c := newClientV12(srv.URL, "k")
	cfg, err := c.Config(context.Background())
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}

	if len(cfg.Folders) != 2 {
		t.Fatalf("len(Folders) = %d, want 2", len(cfg.Folders))
	}
	if !cfg.Folders[0].ReadOnly || cfg.Folders[1].ReadOnly {
		t.Errorf("ReadOnly flags = %v/%v, want true/false",
			cfg.Folders[0].ReadOnly, cfg.Folders[1].ReadOnly)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].Name != "laptop" {
		t.Errorf("Devices = %v, want one named laptop", cfg.Devices)
	}
}

func TestClientV13_ConfigFolderType(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte(`{
			"folders": [
				{"id": "default", "path": "/data/default", "type": "sendreceive"},
				{"id": "archive", "path": "/data/archive", "type": "sendonly"}
			],
			"devices": []
		}`))
	})

	c := newClientV13(srv.URL, "k")
	cfg, err := c.Config(context.Background())
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}

	if cfg.Folders[0].ReadOnly {
		t.Error("sendreceive folder marked read-only")
	}
	if !cfg.Folders[1].ReadOnly {
		t.Error("sendonly folder not marked read-only")
	}
}

func TestClientV12_EventsSingleObject(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte(`{"id": 9, "type": "StateChanged", "time": "2026-08-25T10:00:00Z", "data": {}}`))
	})

	c := newClientV12(srv.URL, "k")
	events, err := c.Events(context.Background(), 8, 0)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 1 || events[0].ID != 9 {
		t.Errorf("events = %v, want single event with ID 9", events)
	}
}
