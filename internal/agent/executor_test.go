package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/auth"
)

func TestExecutor_Execute(t *testing.T) {
	caller := auth.Caller{UserID: "alice"}

	t.Run("success returns ok result", func(t *testing.T) {
		r := agent.NewRegistry()
		require.NoError(t, r.Register(echoTool(t, "echo")))
		exec := agent.NewExecutor(r, nil)

		result := exec.Execute(context.Background(), caller, "echo", map[string]any{"text": "hi"})
		assert.Equal(t, agent.StatusOK, result.Status)
		assert.Equal(t, "hi", result.Data)
		assert.Empty(t, result.Error)
	})

	t.Run("unknown tool is a failed result", func(t *testing.T) {
		exec := agent.NewExecutor(agent.NewRegistry(), nil)

		result := exec.Execute(context.Background(), caller, "nope", nil)
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "unknown tool")
	})

	t.Run("schema violation is a failed result", func(t *testing.T) {
		r := agent.NewRegistry()
		require.NoError(t, r.Register(echoTool(t, "echo")))
		exec := agent.NewExecutor(r, nil)

		result := exec.Execute(context.Background(), caller, "echo", map[string]any{"text": 42})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "invalid arguments")
	})

	t.Run("handler error is a failed result", func(t *testing.T) {
		r := agent.NewRegistry()
		failing, err := agent.NewTool("failing", "always fails",
			func(_ context.Context, _ auth.Caller, _ echoInput) (any, error) {
				return nil, errors.New("storage offline")
			})
		require.NoError(t, err)
		require.NoError(t, r.Register(failing))
		exec := agent.NewExecutor(r, nil)

		result := exec.Execute(context.Background(), caller, "failing", map[string]any{"text": "x"})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "storage offline")
	})

	t.Run("panic is contained", func(t *testing.T) {
		r := agent.NewRegistry()
		panicking, err := agent.NewTool("panicking", "panics",
			func(_ context.Context, _ auth.Caller, _ echoInput) (any, error) {
				panic("boom")
			})
		require.NoError(t, err)
		require.NoError(t, r.Register(panicking))
		exec := agent.NewExecutor(r, nil)

		result := exec.Execute(context.Background(), caller, "panicking", map[string]any{"text": "x"})
		assert.Equal(t, agent.StatusError, result.Status)
		assert.Contains(t, result.Error, "panicked")
	})
}

// A forged identity in the model's arguments must never reach a handler:
// the executor strips every identity-shaped key and the handler only sees
// the authenticated caller.
func TestExecutor_ScrubsForgedIdentity(t *testing.T) {
	type spyInput struct {
		Text string `json:"text,omitempty"`
	}

	var seenCaller auth.Caller
	var seenArgs map[string]any

	r := agent.NewRegistry()
	spy, err := agent.NewTool("spy", "records what it receives",
		func(_ context.Context, caller auth.Caller, _ spyInput) (any, error) {
			seenCaller = caller
			return "done", nil
		})
	require.NoError(t, err)
	require.NoError(t, r.Register(spy))

	raw, err := agent.NewTool("raw", "records raw args",
		func(_ context.Context, _ auth.Caller, in map[string]any) (any, error) {
			seenArgs = in
			return "done", nil
		})
	require.NoError(t, err)
	require.NoError(t, r.Register(raw))

	exec := agent.NewExecutor(r, nil)

	forged := map[string]any{
		"text":     "hello",
		"owner_id": "mallory",
		"ownerId":  "mallory",
		"owner":    "mallory",
		"user_id":  "mallory",
		"userId":   "mallory",
		"user":     "mallory",
	}

	result := exec.Execute(context.Background(), auth.Caller{UserID: "alice"}, "spy", forged)
	require.Equal(t, agent.StatusOK, result.Status)
	assert.Equal(t, "alice", seenCaller.UserID)

	result = exec.Execute(context.Background(), auth.Caller{UserID: "alice"}, "raw", forged)
	require.Equal(t, agent.StatusOK, result.Status)
	assert.Equal(t, map[string]any{"text": "hello"}, seenArgs)

	// The model's original request is left intact for the transcript.
	assert.Equal(t, "mallory", forged["owner_id"])
}
