// Package mqtt provides MQTT client connectivity for the Doorman hub.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Doorman uses MQTT as the glue between the hub and the peripherals it
// doesn't own: NFC readers publish tag scans, and the hub publishes
// retained actor state so wall displays and other consumers can mirror
// relay state without polling the API.
//
//	NFC Readers → MQTT Broker ↔ Doorman Hub → State Consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to tag scans
//	err = client.Subscribe(mqtt.Topics{}.NFCScan(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish retained actor state
//	topic := mqtt.Topics{}.ActorState("gpio-main", "relay-1")
//	client.PublishRetained(topic, []byte(`{"on":true}`))
package mqtt
