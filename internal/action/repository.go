// Package action stores named actuations (an action binds a device, an
// actor and a parameter payload) and dispatches them against the live
// hardware registry.
package action

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doormanhub/doorman-core/internal/hardware"
)

// Action is a stored, nameable actuation. Device and actor are held as
// plain ID references: the registry is rebuilt from discovery on every
// start, and an action may outlive the hardware it points at. Such
// stale references only surface when the action is dispatched.
type Action struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	DeviceID    string          `json:"device_id"`
	ActorID     string          `json:"actor_id"`
	Params      hardware.Params `json:"params"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Sentinel errors for action operations.
var (
	ErrActionNotFound  = errors.New("action not found")
	ErrNameExists      = errors.New("action name already exists")
	ErrInvalidAction   = errors.New("invalid action definition")
	ErrStaleDevice     = errors.New("action references unknown device")
	ErrStaleActor      = errors.New("action references unknown actor")
	ErrActuationFailed = errors.New("actuation failed")
)

// Repository defines the interface for action persistence.
type Repository interface {
	Create(ctx context.Context, action *Action) error
	Get(ctx context.Context, id string) (*Action, error)
	List(ctx context.Context, limit, offset int) ([]Action, int, error)
	Update(ctx context.Context, action *Action) error
	Remove(ctx context.Context, ids ...string) (int64, error)
	RemoveAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed action repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const actionColumns = "id, name, description, device_id, actor_id, params, created_at, updated_at"

// Create inserts a new action. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, action *Action) error {
	if action.ID == "" {
		action.ID = "act-" + uuid.NewString()[:8]
	}

	params, err := encodeParams(action.Params)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	action.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	action.UpdatedAt = action.CreatedAt

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO actions (id, name, description, device_id, actor_id, params, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID, action.Name, action.Description, action.DeviceID, action.ActorID,
		params, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("creating action: %w", err)
	}

	return nil
}

// Get retrieves an action by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Action, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+actionColumns+" FROM actions WHERE id = ?", id)
	return scanActionFrom(row)
}

// List returns a page of actions ordered by creation date, plus the
// total count.
func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]Action, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM actions").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting actions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+actionColumns+" FROM actions ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		a, err := scanActionFrom(rows)
		if err != nil {
			return nil, 0, err
		}
		actions = append(actions, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating actions: %w", err)
	}

	if actions == nil {
		actions = []Action{}
	}
	return actions, total, nil
}

// Update replaces an action's fields wholesale, preserving the ID and
// creation timestamp.
func (r *SQLiteRepository) Update(ctx context.Context, action *Action) error {
	params, err := encodeParams(action.Params)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	action.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE actions SET name = ?, description = ?, device_id = ?, actor_id = ?, params = ?, updated_at = ?
		 WHERE id = ?`,
		action.Name, action.Description, action.DeviceID, action.ActorID,
		params, now, action.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("updating action: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrActionNotFound
	}
	return nil
}

// Remove deletes the actions with the given IDs. Absent IDs are
// ignored. Returns the number of rows actually deleted.
func (r *SQLiteRepository) Remove(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM actions WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("removing actions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// RemoveAll deletes every action.
func (r *SQLiteRepository) RemoveAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM actions")
	if err != nil {
		return 0, fmt.Errorf("removing all actions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanActionFrom scans an action from any scanner (Row or Rows).
func scanActionFrom(s scanner) (*Action, error) {
	var a Action
	var params string
	var createdAt, updatedAt string

	err := s.Scan(&a.ID, &a.Name, &a.Description, &a.DeviceID, &a.ActorID,
		&params, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("scanning action: %w", err)
	}

	if err := json.Unmarshal([]byte(params), &a.Params); err != nil {
		return nil, fmt.Errorf("decoding params for action %s: %w", a.ID, err)
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &a, nil
}

// encodeParams serialises the parameter payload for storage. A nil map
// is stored as an empty object so the column round-trips cleanly.
func encodeParams(p hardware.Params) (string, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: params not serialisable: %v", ErrInvalidAction, err)
	}
	return string(data), nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
