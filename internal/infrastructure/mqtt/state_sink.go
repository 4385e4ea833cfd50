package mqtt

import (
	"fmt"
	"time"
)

// StatePublisher mirrors actor output changes to retained MQTT state
// topics. It satisfies the hardware package's state sink interface, so
// wall displays and other consumers can follow relay state without
// polling the API.
//
// Publishes are fire-and-forget: a broker outage must never stall a
// relay write, so failures are logged and dropped.
type StatePublisher struct {
	client *Client
	logger Logger // may be nil
}

// NewStatePublisher creates a state publisher over an established
// client connection.
func NewStatePublisher(client *Client, logger Logger) *StatePublisher {
	return &StatePublisher{client: client, logger: logger}
}

// ActorStateChanged publishes the new output level as a retained
// message on the actor's state topic.
//
// The sink is invoked while the actor holds its mutex, so the publish
// (which can block on broker acknowledgement) runs in its own
// goroutine.
func (p *StatePublisher) ActorStateChanged(deviceID, actorID string, on bool) {
	topic := Topics{}.ActorState(deviceID, actorID)
	payload := fmt.Sprintf(`{"on":%t,"timestamp":"%s"}`,
		on, time.Now().UTC().Format(time.RFC3339))

	go func() {
		if err := p.client.PublishRetained(topic, []byte(payload)); err != nil {
			if p.logger != nil {
				p.logger.Warn("actor state publish failed",
					"topic", topic, "error", err)
			}
		}
	}()
}
