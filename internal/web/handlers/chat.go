package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/orchestrator"
	"github.com/clickchat-ai/clickchat/internal/store"
	"github.com/clickchat-ai/clickchat/internal/web/sse"
)

// Runner executes one conversation turn. Satisfied by *orchestrator.Engine.
type Runner interface {
	Run(ctx context.Context, threadID, userText string, events *orchestrator.Events) (*orchestrator.Result, error)
}

// ChatConfig contains dependencies for the chat handler.
type ChatConfig struct {
	Logger log.Logger
	Runner Runner
}

// Chat handles message submission and streaming.
type Chat struct {
	logger log.Logger
	runner Runner
}

// NewChat creates the chat handler.
func NewChat(cfg ChatConfig) *Chat {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Chat{
		logger: logger.With("handler", "chat"),
		runner: cfg.Runner,
	}
}

type sendRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type sendResponse struct {
	ThreadID  string                  `json:"thread_id"`
	FinalText string                  `json:"final_text"`
	ToolCalls []orchestrator.ToolCall `json:"tool_calls"`
}

// Send runs one turn without streaming and returns the final answer as JSON.
// POST /chat/send
func (h *Chat) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = store.NewThreadID()
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, h.logger, http.StatusBadRequest, "message is empty")
		return
	}

	result, err := h.runner.Run(r.Context(), threadID, req.Message, nil)
	if err != nil {
		h.logger.Error("chat run failed", "thread_id", threadID, "error", err)
		writeJSONError(w, h.logger, runStatus(err), "chat failed: "+err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, sendResponse{
		ThreadID:  threadID,
		FinalText: result.FinalText,
		ToolCalls: result.ToolCalls,
	})
}

// Stream runs one turn and streams progress over SSE.
// GET /chat/stream?thread_id=...&q=...
//
// Events: "chunk" {text}, "tool_call" {name,input}, "tool_result"
// {name,output,error}, "done" {thread_id,final_text,tool_calls},
// "error" {code,message}.
func (h *Chat) Stream(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.URL.Query().Get("thread_id"))
	if threadID == "" {
		threadID = store.NewThreadID()
	}
	message := r.URL.Query().Get("q")
	if strings.TrimSpace(message) == "" {
		writeJSONError(w, h.logger, http.StatusBadRequest, "q is empty")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("sse not supported", "error", err)
		writeJSONError(w, h.logger, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	events := &orchestrator.Events{
		OnChunk: func(text string) {
			if err := writer.WriteChunk(ctx, text); err != nil {
				h.logger.Debug("writing chunk", "error", err)
			}
		},
		OnToolCall: func(call orchestrator.ToolCall) {
			if err := writer.WriteEvent(ctx, "tool_call", call); err != nil {
				h.logger.Debug("writing tool_call", "error", err)
			}
		},
		OnToolResult: func(call orchestrator.ToolCall) {
			if err := writer.WriteEvent(ctx, "tool_result", call); err != nil {
				h.logger.Debug("writing tool_result", "error", err)
			}
		},
	}

	result, err := h.runner.Run(ctx, threadID, message, events)
	if err != nil {
		h.logger.Error("chat stream failed", "thread_id", threadID, "error", err)
		if werr := writer.WriteError("chat_failed", err.Error()); werr != nil {
			h.logger.Debug("writing error event", "error", werr)
		}
		return
	}

	done := sendResponse{
		ThreadID:  threadID,
		FinalText: result.FinalText,
		ToolCalls: result.ToolCalls,
	}
	if err := writer.WriteEvent(ctx, "done", done); err != nil {
		h.logger.Debug("writing done event", "error", err)
	}
}

// runStatus maps engine errors to HTTP status codes.
func runStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrMaxTurns):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
