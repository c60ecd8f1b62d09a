package handlers

import (
	"context"
	"net/http"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// ToolSource reports tool availability. Satisfied by *registry.Registry.
type ToolSource interface {
	Names(ctx context.Context) []string
	Count(ctx context.Context) int
}

// Tools reports the available tool set for the sidebar status display.
type Tools struct {
	source ToolSource
	logger log.Logger
}

// NewTools creates the tools status handler.
func NewTools(source ToolSource, logger log.Logger) *Tools {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Tools{
		source: source,
		logger: logger.With("handler", "tools"),
	}
}

// Status returns the tool count and names.
// GET /tools/status
func (h *Tools) Status(w http.ResponseWriter, r *http.Request) {
	names := h.source.Names(r.Context())
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"count": len(names),
		"names": names,
	})
}
