package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/go-cmp/cmp"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// completionStep is one scripted exchange: chunks streamed first, then the
// response or error.
type completionStep struct {
	resp   *ai.ModelResponse
	err    error
	chunks []string
}

// scriptedCompleter replays a fixed sequence of completion steps. When the
// script runs out the last step repeats, which lets a test simulate a model
// stuck requesting tools forever.
type scriptedCompleter struct {
	steps []completionStep
	calls []completionCall
}

type completionCall struct {
	historyLen int
	toolCount  int
	streaming  bool
}

func (s *scriptedCompleter) Complete(ctx context.Context, history []*ai.Message, tools []ai.ToolRef, stream ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	idx := len(s.calls)
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	step := s.steps[idx]

	s.calls = append(s.calls, completionCall{
		historyLen: len(history),
		toolCount:  len(tools),
		streaming:  stream != nil,
	})

	if stream != nil {
		for _, chunk := range step.chunks {
			if err := stream(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(chunk)},
			}); err != nil {
				return nil, err
			}
		}
	}

	return step.resp, step.err
}

// memRecorder keeps thread history in memory.
type memRecorder struct {
	threads    map[string][]*ai.Message
	appends    int
	appendErr  error
	historyErr error
}

func newMemRecorder() *memRecorder {
	return &memRecorder{threads: make(map[string][]*ai.Message)}
}

func (m *memRecorder) Append(_ context.Context, threadID string, msgs []*ai.Message) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appends++
	m.threads[threadID] = append(m.threads[threadID], msgs...)
	return nil
}

func (m *memRecorder) History(_ context.Context, threadID string) ([]*ai.Message, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.threads[threadID], nil
}

// fakeToolSource serves genkit-defined tools from a name map.
type fakeToolSource struct {
	tools map[string]ai.Tool
	order []string
}

func (f *fakeToolSource) Refs(_ context.Context) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(f.order))
	for _, name := range f.order {
		refs = append(refs, f.tools[name])
	}
	return refs
}

func (f *fakeToolSource) Lookup(_ context.Context, name string) (ai.Tool, bool) {
	t, ok := f.tools[name]
	return t, ok
}

// newTestToolSource defines an echoing tool and an always-failing tool.
func newTestToolSource() *fakeToolSource {
	g := genkit.Init(context.Background())
	echo := genkit.DefineTool(g, "echo", "echoes its input",
		func(_ *ai.ToolContext, in map[string]any) (map[string]any, error) {
			return in, nil
		})
	boom := genkit.DefineTool(g, "boom", "always fails",
		func(_ *ai.ToolContext, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("tool exploded")
		})
	return &fakeToolSource{
		tools: map[string]ai.Tool{"echo": echo, "boom": boom},
		order: []string{"echo", "boom"},
	}
}

func textResponse(text string) *ai.ModelResponse {
	return &ai.ModelResponse{
		Message: ai.NewModelMessage(ai.NewTextPart(text)),
	}
}

func toolRequestResponse(reqs ...*ai.ToolRequest) *ai.ModelResponse {
	msg := &ai.Message{Role: ai.RoleModel}
	for _, req := range reqs {
		msg.Content = append(msg.Content, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: req,
		})
	}
	return &ai.ModelResponse{Message: msg}
}

func newTestEngine(t *testing.T, completer Completer, recorder Recorder, maxTurns int) *Engine {
	t.Helper()
	e, err := New(Config{
		Completer: completer,
		Tools:     newTestToolSource(),
		Store:     recorder,
		Logger:    log.NewNop(),
		MaxTurns:  maxTurns,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{{resp: textResponse("ok")}}}
	tools := newTestToolSource()
	recorder := newMemRecorder()

	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{
			name:        "missing completer",
			cfg:         Config{Tools: tools, Store: recorder},
			errContains: "completer is required",
		},
		{
			name:        "missing tool source",
			cfg:         Config{Completer: completer, Store: recorder},
			errContains: "tool source is required",
		},
		{
			name:        "missing store",
			cfg:         Config{Completer: completer, Tools: tools},
			errContains: "store is required",
		},
		{
			name:        "negative max turns",
			cfg:         Config{Completer: completer, Tools: tools, Store: recorder, MaxTurns: -1},
			errContains: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("New() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("New() error = %q, want to contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestNew_DefaultMaxTurns(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scriptedCompleter{steps: []completionStep{{resp: textResponse("ok")}}}, newMemRecorder(), 0)
	if e.maxTurns != DefaultMaxTurns {
		t.Errorf("maxTurns = %d, want %d", e.maxTurns, DefaultMaxTurns)
	}
}

func TestEngine_Run_TextAnswer(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{{resp: textResponse("hello there")}}}
	recorder := newMemRecorder()
	e := newTestEngine(t, completer, recorder, 0)

	result, err := e.Run(context.Background(), "thread_1", "hi", nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.FinalText != "hello there" {
		t.Errorf("FinalText = %q, want %q", result.FinalText, "hello there")
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %v, want empty", result.ToolCalls)
	}

	wantRoles := []ai.Role{ai.RoleUser, ai.RoleModel}
	if len(result.NewMessages) != len(wantRoles) {
		t.Fatalf("NewMessages len = %d, want %d", len(result.NewMessages), len(wantRoles))
	}
	for i, msg := range result.NewMessages {
		if msg.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, wantRoles[i])
		}
	}

	if recorder.appends != 1 {
		t.Errorf("recorder appends = %d, want 1", recorder.appends)
	}
	stored := recorder.threads["thread_1"]
	if len(stored) != 2 {
		t.Errorf("stored messages = %d, want 2", len(stored))
	}

	// Without an OnChunk callback the completer must not receive a stream.
	if len(completer.calls) != 1 || completer.calls[0].streaming {
		t.Errorf("completer calls = %+v, want one non-streaming call", completer.calls)
	}
	if completer.calls[0].historyLen != 1 {
		t.Errorf("history len at first call = %d, want 1 (the user message)", completer.calls[0].historyLen)
	}
}

func TestEngine_Run_EmptyInput(t *testing.T) {
	t.Parallel()

	recorder := newMemRecorder()
	e := newTestEngine(t, &scriptedCompleter{steps: []completionStep{{resp: textResponse("ok")}}}, recorder, 0)

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := e.Run(context.Background(), "thread_1", input, nil); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Run(%q) error = %v, want %v", input, err, ErrEmptyInput)
		}
	}
	if recorder.appends != 0 {
		t.Errorf("recorder appends = %d, want 0", recorder.appends)
	}
}

func TestEngine_Run_RequiresThreadID(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scriptedCompleter{steps: []completionStep{{resp: textResponse("ok")}}}, newMemRecorder(), 0)

	if _, err := e.Run(context.Background(), "", "hi", nil); err == nil {
		t.Error("Run() with empty thread id succeeded, want error")
	}
}

func TestEngine_Run_ToolRoundTrip(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{
		{resp: toolRequestResponse(&ai.ToolRequest{
			Name:  "echo",
			Ref:   "call_1",
			Input: map[string]any{"msg": "hi"},
		})},
		{resp: textResponse("the echo said hi")},
	}}
	recorder := newMemRecorder()
	e := newTestEngine(t, completer, recorder, 0)

	var eventOrder []string
	events := &Events{
		OnToolCall:   func(call ToolCall) { eventOrder = append(eventOrder, "call:"+call.Name) },
		OnToolResult: func(call ToolCall) { eventOrder = append(eventOrder, "result:"+call.Name) },
	}

	result, err := e.Run(context.Background(), "thread_1", "say hi to the echo", events)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.FinalText != "the echo said hi" {
		t.Errorf("FinalText = %q", result.FinalText)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls len = %d, want 1", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.Name != "echo" || call.Ref != "call_1" || call.Err != "" {
		t.Errorf("ToolCall = %+v, want successful echo with ref call_1", call)
	}

	wantRoles := []ai.Role{ai.RoleUser, ai.RoleModel, ai.RoleTool, ai.RoleModel}
	if len(result.NewMessages) != len(wantRoles) {
		t.Fatalf("NewMessages len = %d, want %d", len(result.NewMessages), len(wantRoles))
	}
	for i, msg := range result.NewMessages {
		if msg.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, wantRoles[i])
		}
	}

	// The tool response must answer the request by ref.
	toolPart := result.NewMessages[2].Content[0]
	if toolPart.ToolResponse == nil {
		t.Fatal("tool message has no tool response part")
	}
	if toolPart.ToolResponse.Ref != "call_1" || toolPart.ToolResponse.Name != "echo" {
		t.Errorf("tool response = %+v, want name echo ref call_1", toolPart.ToolResponse)
	}

	if diff := cmp.Diff([]string{"call:echo", "result:echo"}, eventOrder); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}

	// Whole turn committed atomically, once.
	if recorder.appends != 1 {
		t.Errorf("recorder appends = %d, want 1", recorder.appends)
	}

	// The second completion sees the user message, the tool request, and
	// the tool response.
	if len(completer.calls) != 2 {
		t.Fatalf("completer calls = %d, want 2", len(completer.calls))
	}
	if completer.calls[1].historyLen != 3 {
		t.Errorf("history len at second call = %d, want 3", completer.calls[1].historyLen)
	}
}

func TestEngine_Run_UnknownToolBecomesErrorPayload(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{
		{resp: toolRequestResponse(&ai.ToolRequest{Name: "vanished", Ref: "call_1"})},
		{resp: textResponse("that tool is gone")},
	}}
	recorder := newMemRecorder()
	e := newTestEngine(t, completer, recorder, 0)

	result, err := e.Run(context.Background(), "thread_1", "use the vanished tool", nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls len = %d, want 1", len(result.ToolCalls))
	}
	if !strings.Contains(result.ToolCalls[0].Err, "unknown tool") {
		t.Errorf("ToolCall.Err = %q, want unknown tool message", result.ToolCalls[0].Err)
	}

	toolPart := result.NewMessages[2].Content[0]
	out, ok := toolPart.ToolResponse.Output.(map[string]any)
	if !ok {
		t.Fatalf("tool response output type = %T, want map", toolPart.ToolResponse.Output)
	}
	if _, ok := out["error"]; !ok {
		t.Errorf("tool response output = %v, want error key", out)
	}

	// The loop survived the unknown tool and still committed the turn.
	if recorder.appends != 1 {
		t.Errorf("recorder appends = %d, want 1", recorder.appends)
	}
}

func TestEngine_Run_ToolFailureBecomesErrorPayload(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{
		{resp: toolRequestResponse(&ai.ToolRequest{Name: "boom", Ref: "call_1", Input: map[string]any{}})},
		{resp: textResponse("the tool failed")},
	}}
	e := newTestEngine(t, completer, newMemRecorder(), 0)

	result, err := e.Run(context.Background(), "thread_1", "trigger the boom", nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls len = %d, want 1", len(result.ToolCalls))
	}
	if !strings.Contains(result.ToolCalls[0].Err, "tool exploded") {
		t.Errorf("ToolCall.Err = %q, want the tool's error text", result.ToolCalls[0].Err)
	}
	if result.FinalText != "the tool failed" {
		t.Errorf("FinalText = %q", result.FinalText)
	}
}

func TestEngine_Run_MaxTurnsCommitsNothing(t *testing.T) {
	t.Parallel()

	// The script's last step repeats: the model never stops requesting tools.
	completer := &scriptedCompleter{steps: []completionStep{
		{resp: toolRequestResponse(&ai.ToolRequest{Name: "echo", Ref: "loop", Input: map[string]any{}})},
	}}
	recorder := newMemRecorder()
	e := newTestEngine(t, completer, recorder, 3)

	_, err := e.Run(context.Background(), "thread_1", "loop forever", nil)
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("Run() error = %v, want %v", err, ErrMaxTurns)
	}

	if recorder.appends != 0 {
		t.Errorf("recorder appends = %d, want 0 (aborted turn must not commit)", recorder.appends)
	}
	if len(recorder.threads["thread_1"]) != 0 {
		t.Errorf("thread gained %d messages on aborted run", len(recorder.threads["thread_1"]))
	}
	if len(completer.calls) != 3 {
		t.Errorf("completer calls = %d, want 3", len(completer.calls))
	}
}

func TestEngine_Run_CompletionErrorCommitsNothing(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{
		{err: errors.New("model unavailable")},
	}}
	recorder := newMemRecorder()
	e := newTestEngine(t, completer, recorder, 0)

	_, err := e.Run(context.Background(), "thread_1", "hi", nil)
	if err == nil {
		t.Fatal("Run() succeeded, want completion error")
	}
	if recorder.appends != 0 {
		t.Errorf("recorder appends = %d, want 0", recorder.appends)
	}
}

func TestEngine_Run_HistoryErrorPropagates(t *testing.T) {
	t.Parallel()

	recorder := newMemRecorder()
	recorder.historyErr = errors.New("database gone")
	e := newTestEngine(t, &scriptedCompleter{steps: []completionStep{{resp: textResponse("ok")}}}, recorder, 0)

	if _, err := e.Run(context.Background(), "thread_1", "hi", nil); err == nil {
		t.Error("Run() succeeded, want history error")
	}
}

func TestEngine_Run_EmptyAnswerFallback(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{{resp: textResponse("")}}}
	recorder := newMemRecorder()
	e := newTestEngine(t, completer, recorder, 0)

	result, err := e.Run(context.Background(), "thread_1", "hi", nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.FinalText == "" {
		t.Error("FinalText is empty, want fallback text")
	}
	// The committed terminal message carries the fallback, not the empty
	// answer.
	stored := recorder.threads["thread_1"]
	if len(stored) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(stored))
	}
	if got := stored[1].Text(); got != result.FinalText {
		t.Errorf("stored terminal text = %q, want %q", got, result.FinalText)
	}
}

func TestEngine_Run_StreamsChunks(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{steps: []completionStep{
		{resp: textResponse("hello world"), chunks: []string{"hello ", "world"}},
	}}
	e := newTestEngine(t, completer, newMemRecorder(), 0)

	var streamed strings.Builder
	events := &Events{OnChunk: func(text string) { streamed.WriteString(text) }}

	result, err := e.Run(context.Background(), "thread_1", "hi", events)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if streamed.String() != "hello world" {
		t.Errorf("streamed text = %q, want %q", streamed.String(), "hello world")
	}
	if result.FinalText != "hello world" {
		t.Errorf("FinalText = %q", result.FinalText)
	}
	if !completer.calls[0].streaming {
		t.Error("completer did not receive a stream callback")
	}
}

func TestEngine_Run_PriorHistoryIncluded(t *testing.T) {
	t.Parallel()

	recorder := newMemRecorder()
	recorder.threads["thread_1"] = []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("earlier question")),
		ai.NewModelMessage(ai.NewTextPart("earlier answer")),
	}

	completer := &scriptedCompleter{steps: []completionStep{{resp: textResponse("ok")}}}
	e := newTestEngine(t, completer, recorder, 0)

	if _, err := e.Run(context.Background(), "thread_1", "follow-up", nil); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if completer.calls[0].historyLen != 3 {
		t.Errorf("history len = %d, want 3 (two prior + new user message)", completer.calls[0].historyLen)
	}

	// Only this turn's messages were appended.
	if len(recorder.threads["thread_1"]) != 4 {
		t.Errorf("thread has %d messages, want 4", len(recorder.threads["thread_1"]))
	}
}
