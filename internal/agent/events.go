package agent

// Emitter receives progress events while a turn loop runs. Implementations
// must tolerate being called from the request goroutine only; the
// orchestrator never calls an Emitter concurrently.
type Emitter interface {
	// Token delivers one chunk of streamed model text.
	Token(text string)
	// ToolCallStart fires before a tool executes, with the scrubbed args.
	ToolCallStart(name string, args map[string]any)
	// ToolCallResult fires after a tool finishes, success or failure.
	ToolCallResult(name string, result Result)
}

// NopEmitter discards all events. Used for non-streaming requests.
type NopEmitter struct{}

func (NopEmitter) Token(string)                         {}
func (NopEmitter) ToolCallStart(string, map[string]any) {}
func (NopEmitter) ToolCallResult(string, Result)        {}
