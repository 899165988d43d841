package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists tasks in PostgreSQL. Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store. logger may be nil.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Create inserts a new pending task for ownerID. An empty priority
// defaults to medium. dueDate and category are optional.
func (s *Store) Create(ctx context.Context, ownerID, title, description, priority string, dueDate *time.Time, category string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	var t Task
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (owner_id, title, description, priority, due_date, category)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, owner_id, title, description, completed, priority, due_date, category, created_at, updated_at`,
		ownerID, title, description, priority, dueDate, category,
	).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate, &t.Category, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Debug("created task", "id", t.ID, "owner", ownerID)
	return &t, nil
}

// List returns the owner's tasks, optionally filtered by completion
// status. An empty status means all. Newest first.
func (s *Store) List(ctx context.Context, ownerID, status string) ([]*Task, error) {
	if status == "" {
		status = StatusAll
	}
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	query := `SELECT id, owner_id, title, description, completed, priority, due_date, category, created_at, updated_at
	          FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}
	switch status {
	case StatusPending:
		query += ` AND completed = false`
	case StatusCompleted:
		query += ` AND completed = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate, &t.Category, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Get returns one task by id, owner scoped.
func (s *Store) Get(ctx context.Context, id uuid.UUID, ownerID string) (*Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, description, completed, priority, due_date, category, created_at, updated_at
		 FROM tasks WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate, &t.Category, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// SetCompletion marks a task completed or pending and returns the
// updated row. ErrNotFound covers both missing and foreign tasks.
func (s *Store) SetCompletion(ctx context.Context, id uuid.UUID, ownerID string, completed bool) (*Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx,
		`UPDATE tasks SET completed = $3, updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, owner_id, title, description, completed, priority, due_date, category, created_at, updated_at`,
		id, ownerID, completed,
	).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate, &t.Category, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating task completion: %w", err)
	}
	return &t, nil
}

// Update applies a partial update and returns the new row. At least one
// field must be set.
func (s *Store) Update(ctx context.Context, id uuid.UUID, ownerID string, update Update) (*Task, error) {
	set := make([]string, 0, 5)
	args := []any{id, ownerID}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		add("title", title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Priority != nil {
		if !ValidPriority(*update.Priority) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, *update.Priority)
		}
		add("priority", *update.Priority)
	}
	if update.ClearDueDate {
		add("due_date", nil)
	} else if update.DueDate != nil {
		add("due_date", *update.DueDate)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}

	if len(set) == 0 {
		return nil, ErrNoFields
	}

	query := fmt.Sprintf(
		`UPDATE tasks SET %s, updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, owner_id, title, description, completed, priority, due_date, category, created_at, updated_at`,
		strings.Join(set, ", "))

	var t Task
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate, &t.Category, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return &t, nil
}

// Delete removes a task permanently. ErrNotFound covers both missing
// and foreign tasks.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted task", "id", id, "owner", ownerID)
	return nil
}
