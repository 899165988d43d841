// Package task implements owner-scoped task storage. Every query filters
// by owner, so a caller can never see or touch another user's tasks.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Task priorities. Stored as text with a database check constraint.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status filters for List.
const (
	StatusAll       = "all"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is a single to-do item belonging to one user.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Update carries a partial task update. Nil fields are left unchanged.
// ClearDueDate removes the due date entirely and takes precedence over
// DueDate.
type Update struct {
	Title        *string
	Description  *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
	Category     *string
}

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is a known List filter.
func ValidStatus(s string) bool {
	return s == StatusAll || s == StatusPending || s == StatusCompleted
}
