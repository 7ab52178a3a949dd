package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Session
	mux.HandleFunc("/api/session", s.app.SessionHandler.GetSessionHandler)                     // GET
	mux.HandleFunc("/api/session/inputs", s.app.SessionHandler.UpdateInputsHandler)            // POST - raw input values
	mux.HandleFunc("/api/session/analyze", s.app.SessionHandler.AnalyzeHandler)                // POST
	mux.HandleFunc("/api/session/reanalyze", s.app.SessionHandler.ReanalyzeHandler)            // POST - analyze at the drifted price
	mux.HandleFunc("/api/session/language/toggle", s.app.SessionHandler.ToggleLanguageHandler) // POST
	mux.HandleFunc("/api/session/backtest", s.app.SessionHandler.BacktestHandler)              // POST
	mux.HandleFunc("/api/session/reset", s.app.SessionHandler.ResetHandler)                    // POST
	mux.HandleFunc("/api/session/stale/dismiss", s.app.SessionHandler.DismissStaleHandler)     // POST
	mux.HandleFunc("/api/session/markdown", s.app.SessionHandler.MarkdownHandler)              // GET

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
