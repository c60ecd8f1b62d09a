// Package orchestrator runs the completion/tool loop for one conversation
// turn.
//
// The loop is an explicit state machine. Awaiting-Model asks the completion
// client for a response; a terminal answer moves to Done, a tool request
// moves to Awaiting-Tool-Results. There the engine answers every tool
// request, sequentially and exactly once each, then returns to
// Awaiting-Model. The whole turn commits to the store in one atomic append
// at Done; on any surfaced error nothing is committed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// DefaultMaxTurns bounds model round-trips within one run.
const DefaultMaxTurns = 8

// fallbackText is returned when the model produces an empty terminal answer.
const fallbackText = "I couldn't generate a response. Please try rephrasing your question."

// Config contains all required parameters for the engine.
type Config struct {
	Completer Completer
	Tools     ToolSource
	Store     Recorder
	Logger    log.Logger

	// MaxTurns bounds completion round-trips per run. Zero means
	// DefaultMaxTurns.
	MaxTurns int
}

// validate checks that all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Completer == nil {
		return errors.New("completer is required")
	}
	if cfg.Tools == nil {
		return errors.New("tool source is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.MaxTurns < 0 {
		return errors.New("max turns must not be negative")
	}
	return nil
}

// Engine drives conversation turns. Stateless between runs; safe for
// concurrent use on distinct threads.
type Engine struct {
	completer Completer
	tools     ToolSource
	store     Recorder
	maxTurns  int
	logger    log.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = DefaultMaxTurns
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Engine{
		completer: cfg.Completer,
		tools:     cfg.Tools,
		store:     cfg.Store,
		maxTurns:  maxTurns,
		logger:    logger.With("component", "orchestrator"),
	}, nil
}

// Run executes one conversation turn on a thread. The thread is created
// implicitly on its first turn. Events callbacks are optional.
//
// On success the whole turn (user message, intermediate model and tool
// messages, terminal answer) is committed in one atomic append. On error
// nothing is committed and the thread is unchanged.
func (e *Engine) Run(ctx context.Context, threadID, userText string, events *Events) (*Result, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyInput
	}
	if threadID == "" {
		return nil, errors.New("thread id is required")
	}

	history, err := e.store.History(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	refs := e.tools.Refs(ctx)

	// pending accumulates this turn's messages; committed only at Done.
	pending := []*ai.Message{ai.NewUserMessage(ai.NewTextPart(userText))}
	working := append(cloneHistory(history), pending...)

	var trace []ToolCall
	var stream ai.ModelStreamCallback
	if events != nil && events.OnChunk != nil {
		stream = func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			events.chunk(chunk.Text())
			return nil
		}
	}

	st := stateAwaitingModel
	for turn := 0; st != stateDone; turn++ {
		if turn >= e.maxTurns {
			e.logger.Warn("run aborted", "thread_id", threadID, "turns", turn)
			return nil, fmt.Errorf("%w: %d", ErrMaxTurns, e.maxTurns)
		}

		resp, err := e.completer.Complete(ctx, working, refs, stream)
		if err != nil {
			return nil, fmt.Errorf("completion failed: %w", err)
		}

		modelMsg := resp.Message
		if modelMsg == nil {
			modelMsg = ai.NewModelMessage(ai.NewTextPart(resp.Text()))
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			// Terminal answer.
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				e.logger.Warn("model returned empty terminal answer", "thread_id", threadID)
				text = fallbackText
				modelMsg = ai.NewModelMessage(ai.NewTextPart(text))
			}
			pending = append(pending, modelMsg)
			st = stateDone

			if err := e.store.Append(ctx, threadID, pending); err != nil {
				return nil, fmt.Errorf("committing turn: %w", err)
			}

			e.logger.Debug("run complete",
				"thread_id", threadID,
				"turns", turn+1,
				"tool_calls", len(trace),
				"messages", len(pending),
			)
			return &Result{
				FinalText:   text,
				ToolCalls:   trace,
				NewMessages: pending,
			}, nil
		}

		// Tool requests: answer each one, then hand control back to the model.
		st = stateAwaitingTools
		pending = append(pending, modelMsg)
		working = append(working, modelMsg)

		toolMsg := &ai.Message{Role: ai.RoleTool}
		for _, req := range requests {
			call, part := e.invoke(ctx, req, events)
			trace = append(trace, call)
			toolMsg.Content = append(toolMsg.Content, part)
		}

		pending = append(pending, toolMsg)
		working = append(working, toolMsg)
		st = stateAwaitingModel
	}

	// Unreachable: the loop exits through the terminal-answer branch or an
	// error return.
	return nil, fmt.Errorf("%w: %d", ErrMaxTurns, e.maxTurns)
}

// invoke answers a single tool request. Unknown tools and invocation
// failures become error payloads in the tool response; the run continues
// and the model decides what to do with the error.
func (e *Engine) invoke(ctx context.Context, req *ai.ToolRequest, events *Events) (ToolCall, *ai.Part) {
	call := ToolCall{
		Name:  req.Name,
		Ref:   req.Ref,
		Input: req.Input,
	}
	events.toolCall(call)

	var output any
	tool, ok := e.tools.Lookup(ctx, req.Name)
	if !ok {
		e.logger.Warn("model requested unknown tool", "tool", req.Name)
		call.Err = fmt.Sprintf("unknown tool %q", req.Name)
		output = map[string]any{"error": call.Err}
	} else {
		out, err := tool.RunRaw(ctx, req.Input)
		if err != nil {
			e.logger.Warn("tool invocation failed", "tool", req.Name, "error", err)
			call.Err = err.Error()
			output = map[string]any{"error": err.Error()}
		} else {
			call.Output = out
			output = out
		}
	}

	events.toolResult(call)

	return call, ai.NewToolResponsePart(&ai.ToolResponse{
		Name:   req.Name,
		Ref:    req.Ref,
		Output: output,
	})
}

// cloneHistory copies the history slice header so appends never alias the
// store's backing array. Message pointers are shared; the completion client
// deep-copies before handing them to the model.
func cloneHistory(msgs []*ai.Message) []*ai.Message {
	out := make([]*ai.Message, len(msgs))
	copy(out, msgs)
	return out
}
