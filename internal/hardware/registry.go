package hardware

import (
	"context"
	"fmt"
)

// Registry holds every discovered device. It is populated by a single
// discovery pass at startup and read-only afterwards, so lookups need
// no locking.
type Registry struct {
	devices []*Device
	byID    map[string]*Device
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
// Must be called before Discover.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Discover runs every driver once and registers the devices they
// report. A driver that fails discovery aborts startup: a door
// controller that silently comes up without its relays is worse than
// one that refuses to start.
func (r *Registry) Discover(ctx context.Context, drivers ...Driver) error {
	for _, drv := range drivers {
		devices, err := drv.Discover(ctx)
		if err != nil {
			return fmt.Errorf("driver %s discovery: %w", drv.Name(), err)
		}

		for _, d := range devices {
			if _, exists := r.byID[d.ID]; exists {
				return fmt.Errorf("driver %s: duplicate device id %q", drv.Name(), d.ID)
			}
			r.devices = append(r.devices, d)
			r.byID[d.ID] = d
			r.logger.Info("device registered",
				"device_id", d.ID, "name", d.Name, "driver", drv.Name(), "actors", len(d.Actors()))
		}
	}

	r.logger.Info("discovery complete", "devices", len(r.devices))
	return nil
}

// Get returns the device with the given ID, or ErrDeviceNotFound.
func (r *Registry) Get(id string) (*Device, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// List returns all devices in discovery order.
func (r *Registry) List() []*Device {
	return r.devices
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	return len(r.devices)
}
