package bridge

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/syncbridge-core/internal/syncthing"
)

// fakePublisher records published messages and registered handlers.
type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]mqtt.MessageHandler
}

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic, payload, qos, retained})
	return nil
}

func (f *fakePublisher) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakePublisher) last(t *testing.T) published {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		t.Fatal("no messages published")
	}
	return f.messages[len(f.messages)-1]
}

func TestBridge_PublishRunning(t *testing.T) {
	pub := newFakePublisher()
	b := New(pub, 1)

	b.PublishRunning(4242)

	msg := pub.last(t)
	if msg.topic != "syncbridge/process/state" {
		t.Errorf("topic = %q, want %q", msg.topic, "syncbridge/process/state")
	}
	if !msg.retained {
		t.Error("state message not retained")
	}

	var payload struct {
		State string `json:"state"`
		PID   int    `json:"pid"`
	}
	if err := json.Unmarshal(msg.payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.State != "running" || payload.PID != 4242 {
		t.Errorf("payload = %+v, want state=running pid=4242", payload)
	}
}

func TestBridge_PublishLog(t *testing.T) {
	pub := newFakePublisher()
	b := New(pub, 1)

	b.PublishLog("folder default is up to date")

	msg := pub.last(t)
	if msg.topic != "syncbridge/process/log" {
		t.Errorf("topic = %q, want %q", msg.topic, "syncbridge/process/log")
	}
	if msg.retained {
		t.Error("log message retained, want fire and forget")
	}
	if msg.qos != 0 {
		t.Errorf("log qos = %d, want 0", msg.qos)
	}
}

func TestBridge_PublishEvent(t *testing.T) {
	pub := newFakePublisher()
	b := New(pub, 1)

	b.PublishEvent(syncthing.Event{
		ID:   17,
		Type: "DeviceConnected",
		Time: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Data: json.RawMessage(`{"id":"dev1"}`),
	})

	msg := pub.last(t)
	if msg.topic != "syncbridge/events/DeviceConnected" {
		t.Errorf("topic = %q, want %q", msg.topic, "syncbridge/events/DeviceConnected")
	}

	var payload struct {
		ID   int64           `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg.payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.ID != 17 || len(payload.Data) == 0 {
		t.Errorf("payload = %+v, want ID 17 with raw data preserved", payload)
	}
}

func TestBridge_PublishConnections(t *testing.T) {
	pub := newFakePublisher()
	b := New(pub, 1)

	b.PublishConnections(syncthing.Connections{
		Total: syncthing.ConnectionInfo{InBytesTotal: 100, OutBytesTotal: 200},
		Devices: map[string]syncthing.ConnectionInfo{
			"dev1": {Connected: true, InBytesTotal: 100},
		},
	})

	msg := pub.last(t)
	if msg.topic != "syncbridge/system/connections" {
		t.Errorf("topic = %q, want %q", msg.topic, "syncbridge/system/connections")
	}

	var payload struct {
		Total struct {
			InBytesTotal int64 `json:"inBytesTotal"`
		} `json:"total"`
		Devices map[string]json.RawMessage `json:"deviceConnections"`
	}
	if err := json.Unmarshal(msg.payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.Total.InBytesTotal != 100 {
		t.Errorf("total.inBytesTotal = %d, want 100", payload.Total.InBytesTotal)
	}
	if _, ok := payload.Devices["dev1"]; !ok {
		t.Error("deviceConnections missing dev1")
	}
}

func TestBridge_SubscribeCommands(t *testing.T) {
	pub := newFakePublisher()
	b := New(pub, 1)

	var mu sync.Mutex
	var gotName string
	if err := b.SubscribeCommands(func(name string, _ []byte) {
		mu.Lock()
		gotName = name
		mu.Unlock()
	}); err != nil {
		t.Fatalf("SubscribeCommands() error = %v", err)
	}

	handler, ok := pub.handlers["syncbridge/command/+"]
	if !ok {
		t.Fatal("no handler registered for syncbridge/command/+")
	}

	//nolint:errcheck
	handler("syncbridge/command/restart", []byte(`{}`))
	mu.Lock()
	if gotName != "restart" {
		t.Errorf("command name = %q, want %q", gotName, "restart")
	}
	mu.Unlock()

	// Malformed topic must not reach the handler.
	//nolint:errcheck
	handler("syncbridge/command/", []byte(`{}`))
	mu.Lock()
	if gotName != "restart" {
		t.Errorf("handler called for malformed topic, name = %q", gotName)
	}
	mu.Unlock()

	if err := b.SubscribeCommands(nil); err == nil {
		t.Error("SubscribeCommands(nil) error = nil, want error")
	}
}
