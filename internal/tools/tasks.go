// Package tools defines the model-callable tools: task management backed
// by the task store, and web page text extraction. Each constructor
// returns agent.Tool values ready for registry registration; the caller
// identity always comes from the authenticated request.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/task"
)

// Task tool names.
const (
	AddTaskName      = "add_task"
	ListTasksName    = "list_tasks"
	CompleteTaskName = "complete_task"
	DeleteTaskName   = "delete_task"
	UpdateTaskName   = "update_task"
)

// AddTaskInput defines input for the add_task tool.
type AddTaskInput struct {
	Title       string `json:"title" jsonschema_description:"Short title of the task. Required."`
	Description string `json:"description,omitempty" jsonschema_description:"Longer free-form details about the task."`
	Priority    string `json:"priority,omitempty" jsonschema_description:"Priority level: low, medium or high. Defaults to medium."`
	DueDate     string `json:"due_date,omitempty" jsonschema_description:"Due date in RFC 3339 format, e.g. 2026-09-01T12:00:00Z."`
	Category    string `json:"category,omitempty" jsonschema_description:"Free-form category label, e.g. work or shopping."`
}

// ListTasksInput defines input for the list_tasks tool.
type ListTasksInput struct {
	Status string `json:"status,omitempty" jsonschema_description:"Filter by completion status: all, pending or completed. Defaults to all."`
}

// CompleteTaskInput defines input for the complete_task tool.
type CompleteTaskInput struct {
	TaskID    string `json:"task_id" jsonschema_description:"UUID of the task to update. Required."`
	Completed *bool  `json:"completed,omitempty" jsonschema_description:"Completion state to set. Defaults to true (mark done)."`
}

// DeleteTaskInput defines input for the delete_task tool.
type DeleteTaskInput struct {
	TaskID string `json:"task_id" jsonschema_description:"UUID of the task to delete permanently. Required."`
}

// UpdateTaskInput defines input for the update_task tool. Omitted fields
// stay unchanged.
type UpdateTaskInput struct {
	TaskID      string  `json:"task_id" jsonschema_description:"UUID of the task to update. Required."`
	Title       *string `json:"title,omitempty" jsonschema_description:"New title."`
	Description *string `json:"description,omitempty" jsonschema_description:"New description."`
	Priority    *string `json:"priority,omitempty" jsonschema_description:"New priority: low, medium or high."`
	DueDate     *string `json:"due_date,omitempty" jsonschema_description:"New due date in RFC 3339 format, or empty string to clear."`
	Category    *string `json:"category,omitempty" jsonschema_description:"New category label."`
}

// TaskTools exposes the task store to the model.
type TaskTools struct {
	store  *task.Store
	logger *slog.Logger
}

// NewTaskTools creates the task toolset. logger may be nil.
func NewTaskTools(store *task.Store, logger *slog.Logger) *TaskTools {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskTools{store: store, logger: logger}
}

// Register adds all task tools to the registry.
func (t *TaskTools) Register(r *agent.Registry) error {
	add, err := agent.NewTool(AddTaskName,
		"Create a new task for the user. Use when the user wants to add, remember or schedule something.",
		t.addTask)
	if err != nil {
		return err
	}

	list, err := agent.NewTool(ListTasksName,
		"List the user's tasks, optionally filtered by status (all, pending, completed).",
		t.listTasks)
	if err != nil {
		return err
	}

	complete, err := agent.NewTool(CompleteTaskName,
		"Mark a task as completed (or pending again). Requires the task's id from list_tasks.",
		t.completeTask)
	if err != nil {
		return err
	}

	del, err := agent.NewTool(DeleteTaskName,
		"Delete a task permanently. Only call after the user has confirmed the deletion.",
		t.deleteTask)
	if err != nil {
		return err
	}

	update, err := agent.NewTool(UpdateTaskName,
		"Update a task's title, description, priority, due date or category. Omitted fields are kept.",
		t.updateTask)
	if err != nil {
		return err
	}

	for _, tool := range []*agent.Tool{add, list, complete, del, update} {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func (t *TaskTools) addTask(ctx context.Context, caller auth.Caller, in AddTaskInput) (any, error) {
	var due *time.Time
	if in.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, in.DueDate)
		if err != nil {
			return nil, fmt.Errorf("due_date must be RFC 3339: %w", err)
		}
		due = &parsed
	}

	created, err := t.store.Create(ctx, caller.UserID, in.Title, in.Description, in.Priority, due, in.Category)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (t *TaskTools) listTasks(ctx context.Context, caller auth.Caller, in ListTasksInput) (any, error) {
	tasks, err := t.store.List(ctx, caller.UserID, in.Status)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"count": len(tasks),
		"tasks": tasks,
	}, nil
}

func (t *TaskTools) completeTask(ctx context.Context, caller auth.Caller, in CompleteTaskInput) (any, error) {
	id, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("task_id must be a UUID: %w", err)
	}
	completed := true
	if in.Completed != nil {
		completed = *in.Completed
	}
	return t.store.SetCompletion(ctx, id, caller.UserID, completed)
}

func (t *TaskTools) deleteTask(ctx context.Context, caller auth.Caller, in DeleteTaskInput) (any, error) {
	id, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("task_id must be a UUID: %w", err)
	}
	if err := t.store.Delete(ctx, id, caller.UserID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": in.TaskID}, nil
}

func (t *TaskTools) updateTask(ctx context.Context, caller auth.Caller, in UpdateTaskInput) (any, error) {
	id, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("task_id must be a UUID: %w", err)
	}

	update := task.Update{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Category:    in.Category,
	}
	if in.DueDate != nil {
		if *in.DueDate == "" {
			update.ClearDueDate = true
		} else {
			parsed, err := time.Parse(time.RFC3339, *in.DueDate)
			if err != nil {
				return nil, fmt.Errorf("due_date must be RFC 3339: %w", err)
			}
			update.DueDate = &parsed
		}
	}

	return t.store.Update(ctx, id, caller.UserID, update)
}
