package handlers

import (
	"net/http"

	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/web/static"
)

// Pages serves the chat widget page.
type Pages struct {
	logger log.Logger
}

// NewPages creates the pages handler.
func NewPages(logger log.Logger) *Pages {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pages{logger: logger.With("handler", "pages")}
}

// Chat serves the single-page chat widget.
// GET /
func (h *Pages) Chat(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := static.Index()
	if err != nil {
		h.logger.Error("loading chat page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		h.logger.Debug("writing chat page", "error", err)
	}
}
