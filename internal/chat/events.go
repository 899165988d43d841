package chat

import "github.com/taskpilot/taskpilot/internal/agent"

// Stream event types, in the order a client can expect them: any number
// of token and tool_call events, then exactly one done or error.
const (
	EventToken          = "token"
	EventToolCallStart  = "tool_call_start"
	EventToolCallResult = "tool_call_result"
	EventDone           = "done"
	EventError          = "error"
)

// StreamEvent is one server-sent event of a streaming exchange. The
// done event carries the same fields as the synchronous Response.
type StreamEvent struct {
	Type           string           `json:"type"`
	Token          string           `json:"token,omitempty"`
	Tool           string           `json:"tool,omitempty"`
	Args           map[string]any   `json:"args,omitempty"`
	Result         *agent.Result    `json:"result,omitempty"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Reply          string           `json:"reply,omitempty"`
	ToolCalls      []agent.ToolCall `json:"tool_calls,omitempty"`
	Turns          int              `json:"turns,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// EventSink receives stream events in order, from one goroutine.
type EventSink func(StreamEvent)

// sinkEmitter adapts an EventSink to the agent's Emitter.
type sinkEmitter struct {
	sink EventSink
}

func (e *sinkEmitter) Token(text string) {
	e.sink(StreamEvent{Type: EventToken, Token: text})
}

func (e *sinkEmitter) ToolCallStart(name string, args map[string]any) {
	e.sink(StreamEvent{Type: EventToolCallStart, Tool: name, Args: args})
}

func (e *sinkEmitter) ToolCallResult(name string, result agent.Result) {
	e.sink(StreamEvent{Type: EventToolCallResult, Tool: name, Result: &result})
}
