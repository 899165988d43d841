package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/task"
	"github.com/taskpilot/taskpilot/internal/testutil"
	"github.com/taskpilot/taskpilot/internal/tools"
)

// setupTaskTools wires the task toolset behind an executor, the way the
// orchestrator dispatches it in production.
func setupTaskTools(t *testing.T) (*agent.Executor, *task.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := task.New(db.Pool, nil)

	registry := agent.NewRegistry()
	require.NoError(t, tools.NewTaskTools(store, nil).Register(registry))
	return agent.NewExecutor(registry, nil), store
}

func TestTaskTools_AddAndList(t *testing.T) {
	exec, _ := setupTaskTools(t)
	ctx := context.Background()
	alice := auth.Caller{UserID: "alice"}

	result := exec.Execute(ctx, alice, tools.AddTaskName, map[string]any{
		"title":    "water plants",
		"priority": "high",
		"category": "home",
	})
	require.Equal(t, agent.StatusOK, result.Status, "add failed: %s", result.Error)

	created, ok := result.Data.(*task.Task)
	require.True(t, ok)
	assert.Equal(t, "water plants", created.Title)
	assert.Equal(t, task.PriorityHigh, created.Priority)
	assert.Equal(t, "alice", created.OwnerID)

	result = exec.Execute(ctx, alice, tools.ListTasksName, map[string]any{"status": "pending"})
	require.Equal(t, agent.StatusOK, result.Status)
	listing := result.Data.(map[string]any)
	assert.Equal(t, 1, listing["count"])

	// A different caller sees nothing.
	result = exec.Execute(ctx, auth.Caller{UserID: "bob"}, tools.ListTasksName, map[string]any{})
	require.Equal(t, agent.StatusOK, result.Status)
	assert.Equal(t, 0, result.Data.(map[string]any)["count"])
}

func TestTaskTools_CompleteUpdateDelete(t *testing.T) {
	exec, store := setupTaskTools(t)
	ctx := context.Background()
	alice := auth.Caller{UserID: "alice"}

	created, err := store.Create(ctx, "alice", "pay rent", "", "", nil, "")
	require.NoError(t, err)
	id := created.ID.String()

	t.Run("complete defaults to done", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.CompleteTaskName, map[string]any{"task_id": id})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)
		assert.True(t, result.Data.(*task.Task).Completed)
	})

	t.Run("complete can revert", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.CompleteTaskName, map[string]any{
			"task_id": id, "completed": false,
		})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)
		assert.False(t, result.Data.(*task.Task).Completed)
	})

	t.Run("update changes named fields only", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.UpdateTaskName, map[string]any{
			"task_id":  id,
			"priority": "low",
			"due_date": "2026-09-15T09:00:00Z",
		})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)
		updated := result.Data.(*task.Task)
		assert.Equal(t, task.PriorityLow, updated.Priority)
		assert.Equal(t, "pay rent", updated.Title)
		require.NotNil(t, updated.DueDate)
	})

	t.Run("empty due date clears it", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.UpdateTaskName, map[string]any{
			"task_id":  id,
			"due_date": "",
		})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)
		updated := result.Data.(*task.Task)
		assert.Nil(t, updated.DueDate)

		fetched, err := store.Get(ctx, created.ID, "alice")
		require.NoError(t, err)
		assert.Nil(t, fetched.DueDate)
	})

	t.Run("bad due date is a tool failure", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.UpdateTaskName, map[string]any{
			"task_id":  id,
			"due_date": "next tuesday",
		})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "RFC 3339")
	})

	t.Run("foreign caller cannot delete", func(t *testing.T) {
		result := exec.Execute(ctx, auth.Caller{UserID: "mallory"}, tools.DeleteTaskName, map[string]any{"task_id": id})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "not found")
	})

	t.Run("owner deletes", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.DeleteTaskName, map[string]any{"task_id": id})
		require.Equal(t, agent.StatusOK, result.Status, result.Error)

		_, err := store.Get(ctx, created.ID, "alice")
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("malformed id is a tool failure", func(t *testing.T) {
		result := exec.Execute(ctx, alice, tools.DeleteTaskName, map[string]any{"task_id": "42"})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "UUID")
	})
}
