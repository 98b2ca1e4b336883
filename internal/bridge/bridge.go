package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/syncbridge-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/syncbridge-core/internal/supervisor"
	"github.com/nerrad567/syncbridge-core/internal/syncthing"
)

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher is the subset of the MQTT client the bridge publishes
// through. Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// CommandHandler receives remote-control commands from the command
// topics: the command name ("restart", "stop", ...) plus the raw
// payload.
type CommandHandler func(name string, payload []byte)

// Bridge republishes supervisor lifecycle transitions, filtered log
// lines, and consumed syncthing events onto MQTT topics.
type Bridge struct {
	pub    Publisher
	qos    byte
	logger Logger
	topics mqtt.Topics
	subs   []*supervisor.Subscription
}

// New creates a bridge publishing through pub at the given QoS.
func New(pub Publisher, qos byte) *Bridge {
	return &Bridge{
		pub:    pub,
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// statePayload is the JSON shape published to the process state topic.
type statePayload struct {
	State     string `json:"state"`
	PID       int    `json:"pid,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// logPayload is the JSON shape published to the process log topic.
type logPayload struct {
	Line      string `json:"line"`
	Timestamp string `json:"timestamp"`
}

// eventPayload is the JSON shape published per consumed event.
type eventPayload struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Attach subscribes the bridge to a supervisor's lifecycle events.
// Call Detach to undo.
func (b *Bridge) Attach(sup *supervisor.Supervisor) {
	b.subs = append(b.subs,
		sup.OnStarting(func() {
			b.publishState("starting", 0, "")
		}),
		sup.OnRestarted(func() {
			b.publishState("restarting", 0, "")
		}),
		sup.OnStopped(func(status supervisor.ExitStatus) {
			b.publishState("stopped", 0, status.String())
		}),
		sup.OnMessage(func(line string) {
			b.PublishLog(line)
		}),
	)
}

// Detach removes the supervisor subscriptions added by Attach.
func (b *Bridge) Detach() {
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.subs = nil
}

// PublishRunning announces a running process with its PID. The
// supervisor's Starting event fires before the PID exists, so the
// caller publishes this once Start returns.
func (b *Bridge) PublishRunning(pid int) {
	b.publishState("running", pid, "")
}

func (b *Bridge) publishState(state string, pid int, status string) {
	payload, err := json.Marshal(statePayload{
		State:     state,
		PID:       pid,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	// Retained so late subscribers see the current state.
	if err := b.pub.Publish(b.topics.ProcessState(), payload, b.qos, true); err != nil {
		b.logger.Warn("state publish failed", "state", state, "error", err)
	}
}

// PublishLog publishes one filtered log line.
func (b *Bridge) PublishLog(line string) {
	payload, err := json.Marshal(logPayload{
		Line:      line,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := b.pub.Publish(b.topics.ProcessLog(), payload, 0, false); err != nil {
		b.logger.Debug("log publish failed", "error", err)
	}
}

// PublishEvent republishes one consumed syncthing event under its
// type-specific topic.
func (b *Bridge) PublishEvent(ev syncthing.Event) {
	payload, err := json.Marshal(eventPayload{
		ID:   ev.ID,
		Type: ev.Type,
		Time: ev.Time,
		Data: ev.Data,
	})
	if err != nil {
		return
	}
	if err := b.pub.Publish(b.topics.Event(ev.Type), payload, b.qos, false); err != nil {
		b.logger.Warn("event publish failed", "type", ev.Type, "error", err)
	}
}

// PublishConnections publishes a connection statistics snapshot.
func (b *Bridge) PublishConnections(conns syncthing.Connections) {
	payload, err := json.Marshal(struct {
		Total   syncthing.ConnectionInfo            `json:"total"`
		Devices map[string]syncthing.ConnectionInfo `json:"deviceConnections"`
	}{
		Total:   conns.Total,
		Devices: conns.Devices,
	})
	if err != nil {
		return
	}
	if err := b.pub.Publish(b.topics.Connections(), payload, b.qos, true); err != nil {
		b.logger.Warn("connections publish failed", "error", err)
	}
}

// SubscribeCommands wires the command topics to a handler. Unknown or
// malformed command topics are ignored with a debug log.
func (b *Bridge) SubscribeCommands(handler CommandHandler) error {
	if handler == nil {
		return fmt.Errorf("bridge: command handler is required")
	}
	return b.pub.Subscribe(b.topics.AllCommands(), b.qos, func(topic string, payload []byte) error {
		name := mqtt.CommandName(topic)
		if name == "" {
			b.logger.Debug("ignoring malformed command topic", "topic", topic)
			return nil
		}
		handler(name, payload)
		return nil
	})
}
