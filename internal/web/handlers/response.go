// Package handlers contains the HTTP handlers for the chat widget API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// writeJSON marshals v into a buffer before touching the ResponseWriter, so
// a marshal failure can still produce a clean 500 instead of a truncated
// body.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("marshaling response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug("writing response", "error", err)
	}
}

// writeJSONError sends a structured error body.
func writeJSONError(w http.ResponseWriter, logger log.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}
