package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/store"
)

// Threads serves the sidebar: thread listing, thread history, and new-thread
// creation.
type Threads struct {
	store  *store.Store
	logger log.Logger
}

// NewThreads creates the threads handler.
func NewThreads(s *store.Store, logger log.Logger) *Threads {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Threads{
		store:  s,
		logger: logger.With("handler", "threads"),
	}
}

type threadView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

type messageView struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Seq       int            `json:"seq"`
	Text      string         `json:"text,omitempty"`
	ToolCalls []toolCallView `json:"tool_calls,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type toolCallView struct {
	Kind   string `json:"kind"` // "request" | "response"
	Name   string `json:"name"`
	Input  any    `json:"input,omitempty"`
	Output any    `json:"output,omitempty"`
}

// List returns all threads, newest first.
// GET /threads
func (h *Threads) List(w http.ResponseWriter, r *http.Request) {
	threads, err := h.store.ListThreads(r.Context())
	if err != nil {
		h.logger.Error("listing threads", "error", err)
		writeJSONError(w, h.logger, http.StatusInternalServerError, "failed to list threads")
		return
	}

	views := make([]threadView, 0, len(threads))
	for _, t := range threads {
		views = append(views, threadView{
			ID:           t.ID,
			Title:        t.Title,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: t.MessageCount,
		})
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"threads": views})
}

// Messages returns one thread's messages in order.
// GET /threads/{id}/messages
func (h *Threads) Messages(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.PathValue("id"))
	if threadID == "" {
		writeJSONError(w, h.logger, http.StatusBadRequest, "thread id is required")
		return
	}

	if _, err := h.store.GetThread(r.Context(), threadID); err != nil {
		if errors.Is(err, store.ErrThreadNotFound) {
			writeJSONError(w, h.logger, http.StatusNotFound, "thread not found")
			return
		}
		h.logger.Error("getting thread", "thread_id", threadID, "error", err)
		writeJSONError(w, h.logger, http.StatusInternalServerError, "failed to load thread")
		return
	}

	messages, err := h.store.Messages(r.Context(), threadID)
	if err != nil {
		h.logger.Error("loading messages", "thread_id", threadID, "error", err)
		writeJSONError(w, h.logger, http.StatusInternalServerError, "failed to load messages")
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageToView(m))
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"thread_id": threadID,
		"messages":  views,
	})
}

// New allocates a fresh thread id. The thread itself is created lazily on
// the first message.
// POST /threads/new
func (h *Threads) New(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"thread_id": store.NewThreadID(),
	})
}

// messageToView flattens message parts into display text plus a tool trace.
func messageToView(m *store.Message) messageView {
	v := messageView{
		ID:        m.ID,
		Role:      m.Role,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
	}

	var text strings.Builder
	for _, part := range m.Content {
		switch {
		case part.IsText():
			text.WriteString(part.Text)
		case part.Kind == ai.PartToolRequest && part.ToolRequest != nil:
			v.ToolCalls = append(v.ToolCalls, toolCallView{
				Kind:  "request",
				Name:  part.ToolRequest.Name,
				Input: part.ToolRequest.Input,
			})
		case part.Kind == ai.PartToolResponse && part.ToolResponse != nil:
			v.ToolCalls = append(v.ToolCalls, toolCallView{
				Kind:   "response",
				Name:   part.ToolResponse.Name,
				Output: part.ToolResponse.Output,
			})
		}
	}
	v.Text = text.String()
	return v
}
