package mqtt

import "fmt"

// Topic prefixes for the Doorman MQTT namespace.
//
// Scheme: doorman/{category}/...
const (
	// TopicPrefix is the base for all Doorman topics.
	TopicPrefix = "doorman"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "doorman/system"
)

// Topics provides builders for Doorman MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ActorState("gpio-main", "relay-1")
//	// Returns: "doorman/device/gpio-main/actor/relay-1/state"
type Topics struct{}

// NFCScan returns the topic NFC readers publish scans to.
//
// Payload: {"tag_id": "<physical uid>"}
//
// Example: doorman/nfc/scan
func (Topics) NFCScan() string {
	return fmt.Sprintf("%s/nfc/scan", TopicPrefix)
}

// ActorState returns the retained state topic for a single actor.
//
// Example: doorman/device/gpio-main/actor/relay-1/state
func (Topics) ActorState(deviceID, actorID string) string {
	return fmt.Sprintf("%s/device/%s/actor/%s/state", TopicPrefix, deviceID, actorID)
}

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: doorman/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllActorStates returns a pattern matching every actor state topic.
//
// Pattern: doorman/device/+/actor/+/state
func (Topics) AllActorStates() string {
	return fmt.Sprintf("%s/device/+/actor/+/state", TopicPrefix)
}

// AllTopics returns a pattern matching all Doorman topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: doorman/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
