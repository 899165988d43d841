package task

import "errors"

var (
	// ErrNotFound is returned when no task matches the given id for the
	// calling owner. A task owned by someone else is indistinguishable
	// from a missing one.
	ErrNotFound = errors.New("task not found")

	// ErrEmptyTitle is returned when creating or renaming a task with a
	// blank title.
	ErrEmptyTitle = errors.New("task title must not be empty")

	// ErrInvalidPriority is returned for a priority outside low, medium
	// or high.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidStatus is returned for a List filter outside all,
	// pending or completed.
	ErrInvalidStatus = errors.New("invalid status filter")

	// ErrNoFields is returned when an Update names nothing to change.
	ErrNoFields = errors.New("no fields to update")
)
