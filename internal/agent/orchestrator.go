// Package agent implements the turn loop that drives a conversation: the
// model proposes tool calls, the executor runs them with the caller's
// authenticated identity, and the results go back to the model until it
// produces a final text answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/taskpilot/taskpilot/internal/auth"
)

// DefaultMaxTurns bounds the model-tool loop for a single request.
const DefaultMaxTurns = 10

// ErrTurnLimit is returned when the model keeps requesting tools past
// the turn budget without producing a final answer.
var ErrTurnLimit = errors.New("turn limit exceeded without a final response")

// ErrModel marks model provider failures, terminal or after exhausted
// retries, so callers can map them to an upstream error status.
var ErrModel = errors.New("model call failed")

// ToolCall records one executed tool call for the caller.
type ToolCall struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result Result         `json:"result"`
}

// Outcome is the terminal result of a turn loop.
type Outcome struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Turns     int        `json:"turns"`
}

// Orchestrator runs the turn loop. One instance serves all requests.
type Orchestrator struct {
	generator Generator
	executor  *Executor
	system    string
	policy    Policy
	maxTurns  int
	limiter   *rate.Limiter
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxTurns overrides DefaultMaxTurns.
func WithMaxTurns(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTurns = n
		}
	}
}

// WithSystem sets the system prompt sent with every model call.
func WithSystem(prompt string) Option {
	return func(o *Orchestrator) { o.system = prompt }
}

// WithPolicy overrides the retry policy for model calls.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLimiter rate limits model calls. Each attempt waits for a token,
// retries included.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSleep replaces the backoff sleep, letting tests run retries
// without real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// NewOrchestrator wires a Generator and an Executor into a turn loop.
func NewOrchestrator(generator Generator, executor *Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator: generator,
		executor:  executor,
		policy:    DefaultPolicy(),
		maxTurns:  DefaultMaxTurns,
		logger:    slog.Default(),
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives the loop until the model answers with plain text, a
// terminal error occurs, or the turn budget runs out. messages is the
// transcript including the new user message; it is not mutated.
func (o *Orchestrator) Run(ctx context.Context, caller auth.Caller, messages []*ai.Message, emit Emitter) (*Outcome, error) {
	if emit == nil {
		emit = NopEmitter{}
	}

	transcript := make([]*ai.Message, len(messages))
	copy(transcript, messages)

	var calls []ToolCall
	start := time.Now()

	for turn := 0; turn < o.maxTurns; turn++ {
		resp, err := o.generateWithRetry(ctx, &GenerateRequest{
			System:   o.system,
			Messages: transcript,
			Stream: func(text string) error {
				emit.Token(text)
				return nil
			},
		})
		if err != nil {
			return nil, err
		}

		if len(resp.ToolRequests) == 0 {
			o.logger.Debug("turn loop finished",
				"turns", turn+1,
				"tool_calls", len(calls),
				"elapsed", time.Since(start),
			)
			return &Outcome{Text: resp.Text, ToolCalls: calls, Turns: turn + 1}, nil
		}

		transcript = append(transcript, resp.Message)

		responses := make([]*ai.Part, 0, len(resp.ToolRequests))
		for _, req := range resp.ToolRequests {
			args, err := requestArgs(req)
			if err != nil {
				return nil, fmt.Errorf("decoding tool request %q: %w", req.Name, err)
			}

			// Scrub here too so forged identity keys never reach the
			// event stream or the recorded tool calls. The executor
			// scrubs again before validation.
			args = scrubOwnerKeys(args, o.logger, req.Name)

			emit.ToolCallStart(req.Name, args)
			result := o.executor.Execute(ctx, caller, req.Name, args)
			emit.ToolCallResult(req.Name, result)

			calls = append(calls, ToolCall{Name: req.Name, Args: args, Result: result})
			responses = append(responses, &ai.Part{
				Kind: ai.PartToolResponse,
				ToolResponse: &ai.ToolResponse{
					Name:   req.Name,
					Ref:    req.Ref,
					Output: result,
				},
			})
		}

		transcript = append(transcript, &ai.Message{Role: ai.RoleTool, Content: responses})
	}

	o.logger.Warn("turn limit exceeded", "max_turns", o.maxTurns, "tool_calls", len(calls))
	return nil, fmt.Errorf("%w (max %d)", ErrTurnLimit, o.maxTurns)
}

// generateWithRetry calls the generator with rate limiting and
// exponential backoff. Terminal errors fail immediately.
func (o *Orchestrator) generateWithRetry(ctx context.Context, req *GenerateRequest) (*Turn, error) {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= o.policy.MaxRetries; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := o.generator.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, fmt.Errorf("%w: %w", ErrModel, err)
		}
		if attempt == o.policy.MaxRetries {
			break
		}

		delay := o.policy.Delay(attempt)
		o.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)
		if err := o.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d retries (elapsed: %v): %w",
		ErrModel, o.policy.MaxRetries, time.Since(start), lastErr)
}

// requestArgs extracts a tool request's input as a string-keyed map.
func requestArgs(req *ai.ToolRequest) (map[string]any, error) {
	switch in := req.Input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return in, nil
	default:
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled during retry: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
