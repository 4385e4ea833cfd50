package nfc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doormanhub/doorman-core/internal/action"
	"github.com/doormanhub/doorman-core/internal/audit"
	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
	"github.com/doormanhub/doorman-core/internal/infrastructure/mqtt"
)

// Subscriber is the slice of the MQTT client the scan listener needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Service resolves tag scans to action dispatches.
type Service struct {
	tags    Repository
	actions *action.Service
	logger  *logging.Logger
}

// NewService creates the NFC service.
func NewService(tags Repository, actions *action.Service, logger *logging.Logger) *Service {
	return &Service{
		tags:    tags,
		actions: actions,
		logger:  logger.With("component", "nfc"),
	}
}

// TriggerTag looks up the tag and dispatches its bound action. userID
// and clientIP attribute the resulting event log entries; MQTT-driven
// scans pass audit.SystemUser.
//
// An unknown tag is ErrTagNotFound. A tag bound to a removed action
// surfaces the dispatch error (action not found, stale hardware).
func (s *Service) TriggerTag(ctx context.Context, tagID, userID, clientIP string) (*action.Action, error) {
	tag, err := s.tags.Get(ctx, tagID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("tag scan resolved", "tag_id", tag.ID, "action_id", tag.ActionID)
	return s.actions.Dispatch(ctx, tag.ActionID, userID, clientIP)
}

// scanPayload is the message NFC readers publish on the scan topic.
type scanPayload struct {
	TagID string `json:"tag_id"`
}

// ListenScans subscribes to the NFC scan topic and dispatches each
// scanned tag as the system user. Dispatch failures are logged by the
// MQTT client's handler wrapper; a bad scan never tears the
// subscription down.
func (s *Service) ListenScans(sub Subscriber, qos byte) error {
	topic := mqtt.Topics{}.NFCScan()

	err := sub.Subscribe(topic, qos, func(_ string, payload []byte) error {
		var scan scanPayload
		if err := json.Unmarshal(payload, &scan); err != nil {
			return fmt.Errorf("decoding scan payload: %w", err)
		}
		if strings.TrimSpace(scan.TagID) == "" {
			return fmt.Errorf("scan payload missing tag_id")
		}

		// Detached from the subscription callback's lifetime; the
		// dispatch owns its own timeline.
		_, err := s.TriggerTag(context.Background(), scan.TagID, audit.SystemUser, "")
		if err != nil {
			return fmt.Errorf("dispatching scan for tag %s: %w", scan.TagID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	s.logger.Info("listening for tag scans", "topic", topic)
	return nil
}
