// Package audit provides the append-only event log: every login,
// actuation and administrative change lands here, and the log is the
// evidence trail for a system that opens doors.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an event log entry.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// SystemUser is recorded as the acting user for events with no human
// behind them (startup, MQTT-triggered scans, revert timers).
const SystemUser = "system"

// Event represents a single event log entry. Events are append-only:
// there is no edit operation, only bulk removal by an admin.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Severity  Severity  `json:"severity"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	Severity Severity // optional: filter by severity
	Limit    int      // default 25, max 200
	Offset   int      // pagination offset
}

// Pagination bounds.
const (
	defaultLimit = 25
	maxLimit     = 200
)

// ListResult contains the paginated event results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the interface for event log persistence.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	RemoveAll(ctx context.Context) (int64, error)
}

// SQLiteRepository stores events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new event log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new event. ID, UserID, Severity and CreatedAt are
// defaulted if empty.
func (r *SQLiteRepository) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.UserID == "" {
		event.UserID = SystemUser
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, client_ip, severity, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, nullableString(event.ClientIP),
		string(event.Severity), event.Text,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns events matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where := ""
	var args []any
	if filter.Severity != "" {
		where = "WHERE severity = ?"
		args = append(args, string(filter.Severity))
	}

	// WHERE is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events %s", where) //nolint:gosec // no user input in SQL string
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // no user input in SQL string
		"SELECT id, user_id, client_ip, severity, text, created_at FROM events %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var clientIP sql.NullString
		var severity, createdAt string

		if err := rows.Scan(&event.ID, &event.UserID, &clientIP,
			&severity, &event.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		if clientIP.Valid {
			event.ClientIP = clientIP.String
		}
		event.Severity = Severity(severity)

		event.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", createdAt, err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// RemoveAll deletes every event. Returns the number of deleted rows.
func (r *SQLiteRepository) RemoveAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM events")
	if err != nil {
		return 0, fmt.Errorf("removing all events: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
