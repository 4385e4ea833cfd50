package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doormanhub/doorman-core/internal/audit"
	"github.com/doormanhub/doorman-core/internal/hardware"
	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
)

// MetricsSink receives a measurement for every dispatch attempt.
// Implementations must not block the dispatch path.
type MetricsSink interface {
	RecordActuation(actionID, actionName string, success bool, duration time.Duration)
}

// Service owns the action lifecycle: validated CRUD against the
// repository and dispatch against the hardware registry.
type Service struct {
	repo     Repository
	registry *hardware.Registry
	recorder *audit.Recorder
	metrics  MetricsSink // may be nil
	logger   *logging.Logger
}

// NewService creates the action service. metrics may be nil.
func NewService(repo Repository, registry *hardware.Registry, recorder *audit.Recorder, metrics MetricsSink, logger *logging.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.With("component", "action"),
	}
}

// Create validates and stores a new action. The device/actor binding is
// checked against the live registry — a typo should fail at creation,
// not at two in the morning when the door won't open. The check is
// advisory only: hardware can still disappear between create and
// dispatch, and dispatch re-resolves every time.
func (s *Service) Create(ctx context.Context, action *Action) error {
	if err := s.validate(action); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, action); err != nil {
		return err
	}

	s.logger.Info("action created", "action_id", action.ID, "name", action.Name)
	return nil
}

// Get retrieves an action by ID.
func (s *Service) Get(ctx context.Context, id string) (*Action, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of actions plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Action, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Update replaces an action's fields wholesale after the same
// validation as Create.
func (s *Service) Update(ctx context.Context, action *Action) error {
	if err := s.validate(action); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, action); err != nil {
		return err
	}

	s.logger.Info("action updated", "action_id", action.ID, "name", action.Name)
	return nil
}

// Remove deletes actions by ID, ignoring absent ones.
func (s *Service) Remove(ctx context.Context, ids ...string) (int64, error) {
	return s.repo.Remove(ctx, ids...)
}

// RemoveAll deletes every action.
func (s *Service) RemoveAll(ctx context.Context) (int64, error) {
	return s.repo.RemoveAll(ctx)
}

// Dispatch resolves the action and fires it against the registry.
// userID and clientIP attribute the resulting event log entries; pass
// audit.SystemUser and "" for machine-originated triggers.
//
// Resolution failures are distinct in logs and error values (stale
// device vs stale actor) even though the HTTP layer collapses them for
// clients.
func (s *Service) Dispatch(ctx context.Context, actionID, userID, clientIP string) (*Action, error) {
	action, err := s.repo.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}

	device, err := s.registry.Get(action.DeviceID)
	if err != nil {
		s.logger.Warn("stale device reference",
			"action_id", action.ID, "name", action.Name, "device_id", action.DeviceID)
		s.recorder.Error(ctx, userID, clientIP,
			fmt.Sprintf("action %s failed: device %s not present", action.Name, action.DeviceID))
		return nil, fmt.Errorf("%w: %s", ErrStaleDevice, action.DeviceID)
	}

	actor, err := device.Actor(action.ActorID)
	if err != nil {
		s.logger.Warn("stale actor reference",
			"action_id", action.ID, "name", action.Name,
			"device_id", action.DeviceID, "actor_id", action.ActorID)
		s.recorder.Error(ctx, userID, clientIP,
			fmt.Sprintf("action %s failed: actor %s not present on %s",
				action.Name, action.ActorID, action.DeviceID))
		return nil, fmt.Errorf("%w: %s/%s", ErrStaleActor, action.DeviceID, action.ActorID)
	}

	start := time.Now()
	err = actor.Trigger(ctx, action.Params)
	if s.metrics != nil {
		s.metrics.RecordActuation(action.ID, action.Name, err == nil, time.Since(start))
	}

	if err != nil {
		s.logger.Error("actuation failed",
			"action_id", action.ID, "name", action.Name,
			"device_id", action.DeviceID, "actor_id", action.ActorID, "error", err)
		s.recorder.Error(ctx, userID, clientIP,
			fmt.Sprintf("action %s failed", action.Name))
		return nil, fmt.Errorf("%w: %s: %v", ErrActuationFailed, action.Name, err)
	}

	s.logger.Info("action dispatched",
		"action_id", action.ID, "name", action.Name,
		"device_id", action.DeviceID, "actor_id", action.ActorID)
	s.recorder.Info(ctx, userID, clientIP,
		fmt.Sprintf("action %s executed", action.Name))

	return action, nil
}

// validate checks the fields a handler cannot: name presence and the
// device/actor binding against the registry.
func (s *Service) validate(action *Action) error {
	if strings.TrimSpace(action.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAction)
	}

	device, err := s.registry.Get(action.DeviceID)
	if err != nil {
		if errors.Is(err, hardware.ErrDeviceNotFound) {
			return fmt.Errorf("%w: no such device %q", ErrInvalidAction, action.DeviceID)
		}
		return err
	}
	if _, err := device.Actor(action.ActorID); err != nil {
		if errors.Is(err, hardware.ErrActorNotFound) {
			return fmt.Errorf("%w: no actor %q on device %q", ErrInvalidAction, action.ActorID, action.DeviceID)
		}
		return err
	}

	return nil
}
