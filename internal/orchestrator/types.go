package orchestrator

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// Completer performs one completion exchange. Tool requests in the response
// are not executed by the implementation; the engine owns the loop.
type Completer interface {
	Complete(ctx context.Context, history []*ai.Message, tools []ai.ToolRef, stream ai.ModelStreamCallback) (*ai.ModelResponse, error)
}

// ToolSource resolves the tools advertised to the model.
type ToolSource interface {
	Refs(ctx context.Context) []ai.ToolRef
	Lookup(ctx context.Context, name string) (ai.Tool, bool)
}

// Recorder persists and replays thread history.
type Recorder interface {
	Append(ctx context.Context, threadID string, msgs []*ai.Message) error
	History(ctx context.Context, threadID string) ([]*ai.Message, error)
}

// ToolCall records one tool invocation for the UI trace.
type ToolCall struct {
	Name   string `json:"name"`
	Ref    string `json:"ref,omitempty"`
	Input  any    `json:"input,omitempty"`
	Output any    `json:"output,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Events carries optional per-run callbacks. Any field may be nil. Callbacks
// fire on the calling goroutine, in order.
type Events struct {
	// OnChunk receives streaming text as the model produces it.
	OnChunk func(text string)

	// OnToolCall fires when the model requests a tool, before invocation.
	OnToolCall func(call ToolCall)

	// OnToolResult fires after the invocation, with Output or Err filled in.
	OnToolResult func(call ToolCall)
}

func (e *Events) chunk(text string) {
	if e != nil && e.OnChunk != nil && text != "" {
		e.OnChunk(text)
	}
}

func (e *Events) toolCall(call ToolCall) {
	if e != nil && e.OnToolCall != nil {
		e.OnToolCall(call)
	}
}

func (e *Events) toolResult(call ToolCall) {
	if e != nil && e.OnToolResult != nil {
		e.OnToolResult(call)
	}
}

// Result is the outcome of one completed run.
type Result struct {
	// FinalText is the model's terminal answer.
	FinalText string

	// ToolCalls is the ordered tool invocation trace.
	ToolCalls []ToolCall

	// NewMessages holds every message this run appended to the thread,
	// in order: user, then alternating model/tool messages, ending with
	// the terminal model message.
	NewMessages []*ai.Message
}

// state is the engine's position in the turn state machine.
type state int

const (
	// stateAwaitingModel means the next step is a completion request.
	stateAwaitingModel state = iota

	// stateAwaitingTools means the model requested tools and every request
	// still needs exactly one response before the model runs again.
	stateAwaitingTools

	// stateDone means a terminal answer was produced.
	stateDone
)
