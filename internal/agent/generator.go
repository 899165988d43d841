package agent

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// Generator produces a single model turn. Implementations must not run
// tools themselves: any tool requests come back in the Turn for the
// orchestrator to dispatch.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*Turn, error)
}

// GenerateRequest is the input for one model call.
type GenerateRequest struct {
	// System is the system prompt, or empty.
	System string
	// Messages is the full transcript so far, oldest first.
	Messages []*ai.Message
	// Stream receives text chunks as the model produces them. nil
	// disables streaming. A non-nil error aborts generation.
	Stream func(text string) error
}

// Turn is the model's answer to one GenerateRequest.
type Turn struct {
	// Message is the raw model message, appended to the transcript
	// before any tool responses.
	Message *ai.Message
	// Text is the concatenated text content of the message.
	Text string
	// ToolRequests lists the tools the model wants run, in order.
	ToolRequests []*ai.ToolRequest
}
