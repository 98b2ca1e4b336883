// Package bridge republishes syncbridge activity onto MQTT.
//
// Supervisor state transitions go to syncbridge/process/state
// (retained), filtered log lines to syncbridge/process/log, consumed
// syncthing events to syncbridge/events/{type}, and connection
// snapshots to syncbridge/system/connections. The command topics under
// syncbridge/command/+ accept remote restart/stop requests.
package bridge
