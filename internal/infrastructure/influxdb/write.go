package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordActuation writes a measurement for a single dispatch attempt.
//
// This satisfies the action service's metrics sink. The write is
// non-blocking; data is batched and sent asynchronously, so a slow or
// absent InfluxDB never delays an actuation.
//
// Parameters:
//   - actionID: The dispatched action's ID
//   - actionName: The action's human-readable name
//   - success: Whether the hardware write succeeded
//   - duration: Time from dispatch to trigger completion
func (c *Client) RecordActuation(actionID, actionName string, success bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actuation",
		map[string]string{
			"action_id":   actionID,
			"action_name": actionName,
		},
		map[string]interface{}{
			"success":     success,
			"duration_ms": float64(duration.Microseconds()) / 1000.0,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// ActorStateChanged records an actor output transition. The name
// matches the hardware package's state sink interface, so the client
// can be wired directly as a discovery sink alongside the MQTT state
// publisher.
//
// Written on every successful hardware write, including timer-driven
// reverts, so the measurement reconstructs the full relay timeline.
//
// Parameters:
//   - deviceID: Owning device identifier (e.g., "gpio-main")
//   - actorID: Actor identifier (e.g., "relay-1")
//   - on: The new output level
func (c *Client) ActorStateChanged(deviceID, actorID string, on bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actor_state",
		map[string]string{
			"device_id": deviceID,
			"actor_id":  actorID,
		},
		map[string]interface{}{
			"on": on,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hub-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
