// Package mqtt provides MQTT client connectivity for syncbridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// syncbridge uses MQTT as its outbound event surface: supervisor state
// transitions, filtered syncthing log lines, and consumed syncthing
// events are published to syncbridge/... topics, and a small command
// topic set accepts remote restart/stop requests.
//
//	syncbridge ↔ MQTT Broker ↔ dashboards / automation
//
// # Security Considerations
//
//   - TLS is required for non-localhost brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to remote-control commands
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a state transition
//	topic := mqtt.Topics{}.ProcessState()
//	client.Publish(topic, []byte(`{"state":"running"}`), 1, true)
package mqtt
