package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TimedRelay is an actor driving a single relay channel through a
// PinIO. Its one trick is the timed actuation: write a level, then
// write the complement after a delay. The revert timer belongs to the
// actor, not the request, so it keeps running after the triggering
// HTTP request has returned.
//
// Concurrency contract:
//   - Triggers on the same relay serialise on the actor mutex.
//   - A new trigger cancels any pending revert; the latest trigger's
//     timeline is the only one that plays out.
//   - Distinct relays share nothing and actuate fully in parallel.
type TimedRelay struct {
	id       string
	name     string
	deviceID string
	pin      int
	io       PinIO
	sink     StateSink // may be nil
	logger   Logger

	mu           sync.Mutex
	generation   uint64
	cancelRevert context.CancelFunc // pending revert, nil when none
	on           bool               // last written level
}

// NewTimedRelay creates a relay actor. The initial output state is
// read from the hardware so a restart doesn't misreport relays that
// were left energised.
func NewTimedRelay(deviceID, id, name string, pin int, io PinIO, sink StateSink, logger Logger) (*TimedRelay, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	on, err := io.Read(pin)
	if err != nil {
		return nil, fmt.Errorf("reading initial state of pin %d: %w", pin, err)
	}

	return &TimedRelay{
		id:       id,
		name:     name,
		deviceID: deviceID,
		pin:      pin,
		io:       io,
		sink:     sink,
		logger:   logger,
		on:       on,
	}, nil
}

// ID returns the actor ID.
func (r *TimedRelay) ID() string { return r.id }

// Name returns the human-readable actor name.
func (r *TimedRelay) Name() string { return r.name }

// Kind returns "timed-relay".
func (r *TimedRelay) Kind() string { return "timed-relay" }

// State reports the last written output level.
func (r *TimedRelay) State() ActorState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ActorState{On: r.on}
}

// Trigger writes the requested level and, when seconds > 0, schedules
// a revert to the complement. Parameters:
//
//	on      bool, default true — the level to write now
//	seconds number ≥ 0, default 0 — delay before writing the
//	        complement; 0 means no revert
//
// Trigger returns once the immediate write has completed. The revert
// is detached from ctx by design: cancelling the request must not
// leave a door relay stuck in the actuated state.
func (r *TimedRelay) Trigger(ctx context.Context, params Params) error {
	on, seconds, err := parseTriggerParams(params)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Supersede any pending revert before touching hardware. Even if
	// the write below fails, the old timeline must not fire under the
	// new trigger.
	r.generation++
	if r.cancelRevert != nil {
		r.cancelRevert()
		r.cancelRevert = nil
	}

	if err := r.write(on); err != nil {
		return err
	}

	if seconds > 0 {
		revertCtx, cancel := context.WithCancel(context.Background())
		r.cancelRevert = cancel
		gen := r.generation
		delay := time.Duration(seconds * float64(time.Second))
		go r.revertAfter(revertCtx, gen, !on, delay)
	}

	return nil
}

// revertAfter waits out the delay and writes the complement level,
// unless a newer trigger cancelled or superseded this timeline.
func (r *TimedRelay) revertAfter(ctx context.Context, gen uint64, level bool, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Cancelled-vs-fired race: the timer may fire while a new trigger
	// holds the mutex. The generation check closes that window.
	if r.generation != gen {
		return
	}
	r.cancelRevert = nil

	if err := r.write(level); err != nil {
		// The triggering request is long gone; the log and the sink
		// are the only places this can surface.
		r.logger.Error("relay revert failed",
			"device_id", r.deviceID, "actor_id", r.id, "pin", r.pin, "error", err)
	}
}

// write performs the physical write and reports the new state.
// Callers must hold r.mu.
func (r *TimedRelay) write(on bool) error {
	if err := r.io.Write(r.pin, on); err != nil {
		return fmt.Errorf("%w: pin %d: %v", ErrWriteFailed, r.pin, err)
	}
	r.on = on
	if r.sink != nil {
		r.sink.ActorStateChanged(r.deviceID, r.id, on)
	}
	return nil
}

// parseTriggerParams extracts and validates the trigger parameters.
// Unknown keys are ignored; wrong types and negative delays are not.
func parseTriggerParams(params Params) (on bool, seconds float64, err error) {
	on = true
	if raw, ok := params["on"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return false, 0, fmt.Errorf("%w: on must be a boolean", ErrInvalidParams)
		}
		on = b
	}

	if raw, ok := params["seconds"]; ok {
		switch v := raw.(type) {
		case float64:
			seconds = v
		case int:
			seconds = float64(v)
		default:
			return false, 0, fmt.Errorf("%w: seconds must be a number", ErrInvalidParams)
		}
		if seconds < 0 {
			return false, 0, fmt.Errorf("%w: seconds must not be negative", ErrInvalidParams)
		}
	}

	return on, seconds, nil
}
