package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/taskpilot/taskpilot/internal/auth"
)

// Handler executes a tool with already-validated arguments. The caller
// identity comes from the request, never from the model.
type Handler func(ctx context.Context, caller auth.Caller, args map[string]any) (any, error)

// Tool is a model-callable operation: a name, a description the model
// sees, a JSON schema its arguments are validated against, and a handler.
type Tool struct {
	name        string
	description string
	schema      *jsonschema.Resolved
	run         Handler
	attach      func(g *genkit.Genkit) ai.ToolRef
}

// Name returns the tool's unique name.
func (t *Tool) Name() string { return t.name }

// Description returns the description shown to the model.
func (t *Tool) Description() string { return t.description }

// Attach registers the tool's declaration with a Genkit instance so the
// model can request it. The returned handler never runs: requests are
// handed back to the orchestrator, which dispatches through the Executor.
func (t *Tool) Attach(g *genkit.Genkit) ai.ToolRef { return t.attach(g) }

// NewTool builds a Tool whose argument schema is derived from In. The
// typed fn receives decoded arguments; anything it returns is serialized
// into the tool result fed back to the model.
func NewTool[In any](name, description string, fn func(ctx context.Context, caller auth.Caller, in In) (any, error)) (*Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving schema for tool %q: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema for tool %q: %w", name, err)
	}

	run := func(ctx context.Context, caller auth.Caller, args map[string]any) (any, error) {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encoding arguments: %w", err)
		}
		var in In
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		return fn(ctx, caller, in)
	}

	attach := func(g *genkit.Genkit) ai.ToolRef {
		return genkit.DefineTool(g, name, description,
			func(_ *ai.ToolContext, _ In) (any, error) {
				return nil, fmt.Errorf("tool %q must be dispatched by the executor", name)
			})
	}

	return &Tool{
		name:        name,
		description: description,
		schema:      resolved,
		run:         run,
		attach:      attach,
	}, nil
}

// MustTool is NewTool that panics on schema errors. For use at startup
// with statically known input types.
func MustTool[In any](name, description string, fn func(ctx context.Context, caller auth.Caller, in In) (any, error)) *Tool {
	t, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}
