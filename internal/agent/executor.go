package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/taskpilot/taskpilot/internal/auth"
)

// Result statuses. Tool failures are results fed back to the model, not
// orchestrator errors: the model gets a chance to recover or explain.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the outcome of one tool execution.
type Result struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK wraps data in a successful Result.
func OK(data any) Result { return Result{Status: StatusOK, Data: data} }

// Failure wraps an error message in a failed Result.
func Failure(msg string) Result { return Result{Status: StatusError, Error: msg} }

// ownerArgKeys are argument names a model could use to impersonate
// another user. They are stripped before validation so identity always
// comes from the authenticated request.
var ownerArgKeys = []string{"owner_id", "ownerId", "owner", "user_id", "userId", "user"}

// Executor dispatches tool requests from the model. It owns the security
// boundary: arguments are scrubbed of identity keys, validated against
// the tool's schema, and the handler runs with the authenticated caller.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an Executor. logger may be nil.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute runs one tool call and always returns a Result; handler errors
// and panics become error results rather than propagating.
func (e *Executor) Execute(ctx context.Context, caller auth.Caller, name string, args map[string]any) Result {
	tool, ok := e.registry.Lookup(name)
	if !ok {
		e.logger.Warn("model requested unknown tool", "tool", name)
		return Failure(fmt.Sprintf("unknown tool: %s", name))
	}

	args = scrubOwnerKeys(args, e.logger, name)

	if err := validateArgs(tool, args); err != nil {
		e.logger.Debug("tool arguments rejected", "tool", name, "error", err)
		return Failure(fmt.Sprintf("invalid arguments: %v", err))
	}

	data, err := e.runSafely(ctx, tool, caller, args)
	if err != nil {
		e.logger.Debug("tool execution failed", "tool", name, "error", err)
		return Failure(err.Error())
	}
	return OK(data)
}

// runSafely invokes the handler with panic recovery. A panicking tool
// must not take the whole turn loop down.
func (e *Executor) runSafely(ctx context.Context, tool *Tool, caller auth.Caller, args map[string]any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked",
				"tool", tool.Name(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			data = nil
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.run(ctx, caller, args)
}

// scrubOwnerKeys returns a copy of args with identity keys removed. The
// original map is never mutated; the model's view of its own request
// stays intact in the transcript.
func scrubOwnerKeys(args map[string]any, logger *slog.Logger, toolName string) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	cleaned := make(map[string]any, len(args))
	for k, v := range args {
		cleaned[k] = v
	}
	for _, key := range ownerArgKeys {
		if _, present := cleaned[key]; present {
			delete(cleaned, key)
			logger.Warn("scrubbed identity argument from tool call",
				"tool", toolName, "key", key)
		}
	}
	return cleaned
}

// validateArgs checks args against the tool's resolved schema. The map
// is round-tripped through JSON so numeric types match what the schema
// validator expects.
func validateArgs(tool *Tool, args map[string]any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return tool.schema.Validate(normalized)
}
