// Package nfc stores NFC tag bindings and turns tag scans into action
// dispatches. A tag row maps the card's physical UID to an action ID;
// scans arrive either through the API or from readers publishing on
// the MQTT scan topic, and both paths converge on the same dispatch.
package nfc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tag binds a physical NFC tag to an action. The ID is the tag's
// physical UID as reported by the reader, so a scan is a single keyed
// lookup. The action reference is soft: removing an action leaves the
// tag row behind, and scanning it then fails at dispatch.
type Tag struct {
	ID        string    `json:"id"`
	ActionID  string    `json:"action_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for tag operations.
var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagExists   = errors.New("tag already registered")
	ErrInvalidTag  = errors.New("invalid tag definition")
)

// Repository defines the interface for tag persistence.
type Repository interface {
	Create(ctx context.Context, tag *Tag) error
	Get(ctx context.Context, id string) (*Tag, error)
	List(ctx context.Context, limit, offset int) ([]Tag, int, error)
	Update(ctx context.Context, tag *Tag) error
	Remove(ctx context.Context, ids ...string) (int64, error)
	RemoveAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed tag repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create registers a tag. The ID must be the physical UID; registering
// the same UID twice fails with ErrTagExists.
func (r *SQLiteRepository) Create(ctx context.Context, tag *Tag) error {
	if strings.TrimSpace(tag.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTag)
	}
	if strings.TrimSpace(tag.ActionID) == "" {
		return fmt.Errorf("%w: action_id is required", ErrInvalidTag)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	tag.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, action_id, created_at) VALUES (?, ?, ?)`,
		tag.ID, tag.ActionID, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTagExists
		}
		return fmt.Errorf("creating tag: %w", err)
	}

	return nil
}

// Get retrieves a tag by its physical UID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Tag, error) {
	var tag Tag
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, action_id, created_at FROM tags WHERE id = ?", id).
		Scan(&tag.ID, &tag.ActionID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("getting tag: %w", err)
	}

	tag.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &tag, nil
}

// List returns a page of tags ordered by registration date, plus the
// total count.
func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]Tag, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, action_id, created_at FROM tags ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		var createdAt string
		if err := rows.Scan(&tag.ID, &tag.ActionID, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scanning tag: %w", err)
		}
		tag.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tags: %w", err)
	}

	if tags == nil {
		tags = []Tag{}
	}
	return tags, total, nil
}

// Update rebinds a tag to a different action. The UID itself is
// immutable; re-registering a moved card is a remove plus create.
func (r *SQLiteRepository) Update(ctx context.Context, tag *Tag) error {
	if strings.TrimSpace(tag.ActionID) == "" {
		return fmt.Errorf("%w: action_id is required", ErrInvalidTag)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE tags SET action_id = ? WHERE id = ?`, tag.ActionID, tag.ID)
	if err != nil {
		return fmt.Errorf("updating tag: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTagNotFound
	}
	return nil
}

// Remove deletes the tags with the given IDs. Absent IDs are ignored.
// Returns the number of rows actually deleted.
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
		"DELETE FROM tags WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("removing tags: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// RemoveAll deletes every tag.
func (r *SQLiteRepository) RemoveAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tags")
	if err != nil {
		return 0, fmt.Errorf("removing all tags: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
