package audit

import (
	"context"

	"github.com/doormanhub/doorman-core/internal/infrastructure/logging"
)

// Notifier receives each event after it has been persisted. The
// websocket hub implements this to stream the log to admin clients.
// Notify must not block; slow consumers drop rather than stall writes.
type Notifier interface {
	Notify(event Event)
}

// Recorder writes events to the repository and fans them out to
// notifiers. A failed write is logged and swallowed: the operation
// that produced the event has already happened, and refusing it after
// the fact helps nobody.
type Recorder struct {
	repo      Repository
	notifiers []Notifier
	logger    *logging.Logger
}

// NewRecorder creates an event recorder.
func NewRecorder(repo Repository, logger *logging.Logger, notifiers ...Notifier) *Recorder {
	return &Recorder{
		repo:      repo,
		notifiers: notifiers,
		logger:    logger.With("component", "audit"),
	}
}

// Debug records a debug-severity event.
func (r *Recorder) Debug(ctx context.Context, userID, clientIP, text string) {
	r.record(ctx, SeverityDebug, userID, clientIP, text)
}

// Info records an info-severity event.
func (r *Recorder) Info(ctx context.Context, userID, clientIP, text string) {
	r.record(ctx, SeverityInfo, userID, clientIP, text)
}

// Error records an error-severity event.
func (r *Recorder) Error(ctx context.Context, userID, clientIP, text string) {
	r.record(ctx, SeverityError, userID, clientIP, text)
}

func (r *Recorder) record(ctx context.Context, severity Severity, userID, clientIP, text string) {
	event := Event{
		UserID:   userID,
		ClientIP: clientIP,
		Severity: severity,
		Text:     text,
	}

	if err := r.repo.Create(ctx, &event); err != nil {
		r.logger.Error("recording event failed",
			"severity", severity, "user_id", event.UserID, "text", text, "error", err)
		return
	}

	for _, n := range r.notifiers {
		n.Notify(event)
	}
}
