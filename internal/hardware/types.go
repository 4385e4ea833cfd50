package hardware

import (
	"context"
	"errors"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Params carries actuation parameters from an action definition to an
// actor. Actors parse what they understand and reject the rest.
type Params map[string]any

// ActorState is a point-in-time snapshot of an actor's output.
type ActorState struct {
	On bool `json:"on"`
}

// Actor is a single controllable output on a device.
// Implementations must be safe for concurrent Trigger calls.
type Actor interface {
	// ID is unique within the owning device.
	ID() string
	Name() string
	// Kind names the actor behaviour, e.g. "timed-relay".
	Kind() string
	// State reports the current output without touching hardware.
	State() ActorState
	// Trigger performs the actuation described by params. It returns
	// once the immediate write is done; any delayed revert continues
	// in the background.
	Trigger(ctx context.Context, params Params) error
}

// Device is a piece of hardware exposing one or more actors.
// Devices are constructed by drivers during discovery and never
// modified afterwards.
type Device struct {
	ID     string
	Name   string
	Driver string

	actors []Actor
	byID   map[string]Actor
}

// NewDevice creates a device with the given actors. Actor order is
// preserved for listings.
func NewDevice(id, name, driver string, actors ...Actor) *Device {
	d := &Device{
		ID:     id,
		Name:   name,
		Driver: driver,
		actors: actors,
		byID:   make(map[string]Actor, len(actors)),
	}
	for _, a := range actors {
		d.byID[a.ID()] = a
	}
	return d
}

// Actor returns the actor with the given ID, or ErrActorNotFound.
func (d *Device) Actor(id string) (Actor, error) {
	a, ok := d.byID[id]
	if !ok {
		return nil, ErrActorNotFound
	}
	return a, nil
}

// Actors returns the device's actors in discovery order.
func (d *Device) Actors() []Actor {
	return d.actors
}

// Driver discovers the devices a particular backend provides.
type Driver interface {
	// Name identifies the driver in device records and logs.
	Name() string
	// Discover probes the backend and returns its devices. Called
	// exactly once, at startup.
	Discover(ctx context.Context) ([]*Device, error)
}

// PinIO abstracts a digital output bank (GPIO pins, relay board
// channels). Implementations must be safe for concurrent use across
// distinct pins; callers serialise access per pin.
type PinIO interface {
	Read(pin int) (bool, error)
	Write(pin int, on bool) error
}

// StateSink receives actor output changes after every successful
// physical write. Implementations must not block.
type StateSink interface {
	ActorStateChanged(deviceID, actorID string, on bool)
}

// Sentinel errors for hardware operations.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrActorNotFound  = errors.New("actor not found")
	ErrInvalidParams  = errors.New("invalid actuation parameters")
	ErrWriteFailed    = errors.New("hardware write failed")
)
