// Package chat coordinates one conversational exchange: resolve the
// conversation, load history, run the agent loop, and persist the
// outcome. The assistant's reply is only stored once the loop finishes
// successfully; a failed or abandoned request never leaves a half-written
// assistant message behind.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/conversation"
)

// systemPrompt steers the model toward the task tools. Deletion asks for
// confirmation in conversation; there is no confirmation machinery in
// the loop itself.
const systemPrompt = `You are a helpful task management assistant. You help users manage their todo lists through natural conversation.

You have access to these tools:
- add_task: create a new task with a title and optional description, priority, due date and category
- list_tasks: view tasks, optionally filtered by status (all, pending, completed)
- complete_task: mark a task as complete (or pending again) by its id
- delete_task: delete a task by its id
- update_task: change a task's title, description, priority, due date or category by its id
- extract_page_text: read the text content of a web page the user links to

Guidelines:
1. Be friendly and conversational, and confirm actions after completing them.
2. When listing tasks, format them clearly with bullet points.
3. If the user wants to complete, update or delete a task but you do not know its id, call list_tasks first.
4. Before calling delete_task, confirm with the user that they really want the task deleted.
5. Extract task details from natural language ("remind me to call mom" becomes title "Call mom").
6. Ask a clarifying question when the request is ambiguous.
7. Keep responses concise.`

// ErrEmptyMessage rejects requests whose message is blank.
var ErrEmptyMessage = errors.New("message must not be empty")

// MaxMessageLength bounds a single user message.
const MaxMessageLength = 8000

// ErrMessageTooLong rejects oversized user messages.
var ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLength)

// ConversationStore is the persistence the service needs.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, id *uuid.UUID, ownerID string) (*conversation.Conversation, error)
	Append(ctx context.Context, convID uuid.UUID, ownerID, role, content string) (*conversation.Message, error)
	History(ctx context.Context, convID uuid.UUID, limit int32) ([]*conversation.Message, error)
}

// Runner drives the agent loop for one request.
type Runner interface {
	Run(ctx context.Context, caller auth.Caller, messages []*ai.Message, emit agent.Emitter) (*agent.Outcome, error)
}

// Request is one user message aimed at a conversation. A nil
// ConversationID starts a new conversation.
type Request struct {
	ConversationID *uuid.UUID
	Message        string
}

// Response is the terminal result of an exchange.
type Response struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	Reply          string           `json:"reply"`
	ToolCalls      []agent.ToolCall `json:"tool_calls,omitempty"`
	Turns          int              `json:"turns"`
}

// Service runs chat exchanges. Safe for concurrent use.
type Service struct {
	conversations ConversationStore
	runner        Runner
	historyLimit  int32
	logger        *slog.Logger
}

// New creates a Service. historyLimit <= 0 means the store default;
// logger may be nil.
func New(conversations ConversationStore, runner Runner, historyLimit int32, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conversations: conversations,
		runner:        runner,
		historyLimit:  historyLimit,
		logger:        logger,
	}
}

// SystemPrompt returns the prompt the agent loop should run with.
func SystemPrompt() string { return systemPrompt }

// Send handles a non-streaming exchange.
func (s *Service) Send(ctx context.Context, caller auth.Caller, req Request) (*Response, error) {
	return s.exchange(ctx, caller, req, agent.NopEmitter{})
}

// SendStream handles a streaming exchange, delivering progress events to
// sink. The terminal done event fires only after the reply is persisted;
// a disconnected client therefore never finds a reply it was not told
// about, and a failed run stores no reply at all.
func (s *Service) SendStream(ctx context.Context, caller auth.Caller, req Request, sink EventSink) {
	resp, err := s.exchange(ctx, caller, req, &sinkEmitter{sink: sink})
	if err != nil {
		sink(StreamEvent{Type: EventError, Error: err.Error()})
		return
	}
	sink(StreamEvent{
		Type:           EventDone,
		ConversationID: resp.ConversationID.String(),
		Reply:          resp.Reply,
		ToolCalls:      resp.ToolCalls,
		Turns:          resp.Turns,
	})
}

func (s *Service) exchange(ctx context.Context, caller auth.Caller, req Request, emit agent.Emitter) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	conv, err := s.conversations.GetOrCreate(ctx, req.ConversationID, caller.UserID)
	if err != nil {
		return nil, err
	}

	// The user message is durable even when the model call fails: on
	// retry the context is intact.
	if _, err := s.conversations.Append(ctx, conv.ID, caller.UserID, conversation.RoleUser, message); err != nil {
		return nil, fmt.Errorf("storing user message: %w", err)
	}

	history, err := s.conversations.History(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	outcome, err := s.runner.Run(ctx, caller, toModelMessages(history), emit)
	if err != nil {
		s.logger.Warn("agent run failed",
			"conversation_id", conv.ID,
			"owner", caller.UserID,
			"error", err,
		)
		return nil, err
	}

	if _, err := s.conversations.Append(ctx, conv.ID, caller.UserID, conversation.RoleAssistant, outcome.Text); err != nil {
		return nil, fmt.Errorf("storing assistant message: %w", err)
	}

	return &Response{
		ConversationID: conv.ID,
		Reply:          outcome.Text,
		ToolCalls:      outcome.ToolCalls,
		Turns:          outcome.Turns,
	}, nil
}

// toModelMessages converts stored history into the model transcript.
// History is fetched after the user message is appended, so the newest
// entry is always the message being answered.
func toModelMessages(history []*conversation.Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case conversation.RoleAssistant:
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return out
}
