// Package web provides the browser chat widget server and HTTP handlers.
package web

import (
	"errors"
	"net/http"

	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/store"
	"github.com/clickchat-ai/clickchat/internal/web/handlers"
	"github.com/clickchat-ai/clickchat/internal/web/static"
)

// ServerConfig contains configuration for creating the widget server.
type ServerConfig struct {
	Logger log.Logger
	Runner handlers.Runner     // Required: the orchestration engine
	Store  *store.Store        // Required: thread store for the sidebar
	Tools  handlers.ToolSource // Required: tool status for the sidebar
}

// Server is the chat widget HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tool source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	pages := handlers.NewPages(logger)
	chat := handlers.NewChat(handlers.ChatConfig{
		Logger: logger,
		Runner: cfg.Runner,
	})
	threads := handlers.NewThreads(cfg.Store, logger)
	tools := handlers.NewTools(cfg.Tools, logger)
	health := handlers.NewHealth()

	mux.HandleFunc("GET /", pages.Chat)
	mux.Handle("GET /static/", http.StripPrefix("/static/", static.Handler()))

	mux.HandleFunc("POST /chat/send", chat.Send)
	mux.HandleFunc("GET /chat/stream", chat.Stream)

	mux.HandleFunc("GET /threads", threads.List)
	mux.HandleFunc("GET /threads/{id}/messages", threads.Messages)
	mux.HandleFunc("POST /threads/new", threads.New)

	mux.HandleFunc("GET /tools/status", tools.Status)
	mux.HandleFunc("GET /healthz", health.Check)

	return &Server{mux: mux, logger: logger}, nil
}

// ServeHTTP implements http.Handler with the middleware stack:
// Recovery → Logging → Routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.setSecurityHeaders(w)

	handler := RecoveryMiddleware(s.logger)(LoggingMiddleware(s.logger)(s.mux))
	handler.ServeHTTP(w, r)
}

// setSecurityHeaders applies security headers for the widget.
func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	// The widget script and styles are served from /static; EventSource
	// connects back to the same origin.
	w.Header().Set("Content-Security-Policy",
		"default-src 'self'; script-src 'self'; style-src 'self'; connect-src 'self'")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// Handler returns the server as an http.Handler for mounting.
func (s *Server) Handler() http.Handler {
	return s
}
