package mqtt

import "fmt"

// Topic prefixes for the syncbridge MQTT surface.
//
// All topics live under a single root: syncbridge/{category}/...
// Process topics carry supervisor state, events topics carry the
// consumed syncthing feed, and command topics accept remote control.
const (
	// TopicPrefix is the root for all syncbridge topics.
	TopicPrefix = "syncbridge"

	// TopicPrefixProcess is the base for supervised-process topics.
	TopicPrefixProcess = "syncbridge/process"

	// TopicPrefixEvents is the base for republished syncthing events.
	TopicPrefixEvents = "syncbridge/events"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "syncbridge/system"
)

// Topics provides builders for syncbridge MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ProcessState()
//	// Returns: "syncbridge/process/state"
type Topics struct{}

// ProcessState returns the topic for supervisor state transitions.
// Published retained so new subscribers see the current state.
//
// Example: syncbridge/process/state
func (Topics) ProcessState() string {
	return fmt.Sprintf("%s/state", TopicPrefixProcess)
}

// ProcessLog returns the topic for filtered syncthing log lines.
//
// Example: syncbridge/process/log
func (Topics) ProcessLog() string {
	return fmt.Sprintf("%s/log", TopicPrefixProcess)
}

// Event returns the topic for a republished syncthing event type.
//
// Example: syncbridge/events/DeviceConnected
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// Command returns the topic for a remote-control command.
//
// Example: syncbridge/command/restart
func (Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, name)
}

// Connections returns the topic for connection statistics snapshots.
//
// Example: syncbridge/system/connections
func (Topics) Connections() string {
	return fmt.Sprintf("%s/connections", TopicPrefixSystem)
}

// SystemStatus returns the bridge status topic, also used for the LWT.
//
// Example: syncbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: syncbridge/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// CommandName extracts the command name from a command topic, or ""
// when the topic is not a command topic.
func CommandName(topic string) string {
	prefix := TopicPrefix + "/command/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	return topic[len(prefix):]
}
