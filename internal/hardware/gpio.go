package hardware

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// GPIORelayDriver exposes a relay board wired to GPIO pins as a single
// device with one timed-relay actor per configured pin.
type GPIORelayDriver struct {
	deviceID   string
	deviceName string
	pins       []int
	io         PinIO
	sink       StateSink
	logger     Logger
}

// NewGPIORelayDriver creates the driver. io decides where the writes
// land: SysfsPinIO on a real board, MemoryPinIO in tests and dev mode.
func NewGPIORelayDriver(deviceID, deviceName string, pins []int, io PinIO, sink StateSink, logger Logger) *GPIORelayDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &GPIORelayDriver{
		deviceID:   deviceID,
		deviceName: deviceName,
		pins:       pins,
		io:         io,
		sink:       sink,
		logger:     logger,
	}
}

// Name returns the driver name.
func (d *GPIORelayDriver) Name() string { return "gpio-relay" }

// Discover builds the relay device. Relays are numbered from 1 in pin
// order: relay-1, relay-2, ...
func (d *GPIORelayDriver) Discover(_ context.Context) ([]*Device, error) {
	actors := make([]Actor, 0, len(d.pins))
	for i, pin := range d.pins {
		id := fmt.Sprintf("relay-%d", i+1)
		name := fmt.Sprintf("Relay %d", i+1)
		relay, err := NewTimedRelay(d.deviceID, id, name, pin, d.io, d.sink, d.logger)
		if err != nil {
			return nil, fmt.Errorf("initialising %s: %w", id, err)
		}
		actors = append(actors, relay)
	}

	return []*Device{NewDevice(d.deviceID, d.deviceName, d.Name(), actors...)}, nil
}

// MemoryPinIO is an in-memory PinIO for tests and development hosts
// without GPIO hardware. Unwritten pins read as off.
type MemoryPinIO struct {
	mu   sync.Mutex
	pins map[int]bool
}

// NewMemoryPinIO creates an in-memory pin bank.
func NewMemoryPinIO() *MemoryPinIO {
	return &MemoryPinIO{pins: make(map[int]bool)}
}

// Read returns the last written level for the pin.
func (m *MemoryPinIO) Read(pin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pins[pin], nil
}

// Write sets the pin level.
func (m *MemoryPinIO) Write(pin int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[pin] = on
	return nil
}

// SysfsPinIO drives GPIO pins through the Linux sysfs interface.
// Pins must already be exported and set to output direction (done at
// provisioning time; see deploy docs), which lets the service run
// without root.
type SysfsPinIO struct {
	base string
}

// NewSysfsPinIO creates a sysfs-backed pin bank rooted at
// /sys/class/gpio.
func NewSysfsPinIO() *SysfsPinIO {
	return &SysfsPinIO{base: "/sys/class/gpio"}
}

func (s *SysfsPinIO) valuePath(pin int) string {
	return filepath.Join(s.base, "gpio"+strconv.Itoa(pin), "value")
}

// Read returns the current pin level.
func (s *SysfsPinIO) Read(pin int) (bool, error) {
	data, err := os.ReadFile(s.valuePath(pin))
	if err != nil {
		return false, fmt.Errorf("reading gpio %d: %w", pin, err)
	}
	return len(data) > 0 && data[0] == '1', nil
}

// Write sets the pin level.
func (s *SysfsPinIO) Write(pin int, on bool) error {
	value := []byte("0")
	if on {
		value = []byte("1")
	}
	if err := os.WriteFile(s.valuePath(pin), value, 0o644); err != nil {
		return fmt.Errorf("writing gpio %d: %w", pin, err)
	}
	return nil
}
