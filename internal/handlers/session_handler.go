package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/models"
)

// SessionHandler exposes the session operations over HTTP
type SessionHandler struct {
	session  SessionController
	renderer MarkdownRenderer
	timeout  time.Duration
	logger   arbor.ILogger
}

// operationResponse is the body of every session endpoint
type operationResponse struct {
	Status   string             `json:"status"`
	Error    string             `json:"error,omitempty"`
	Rejected []string           `json:"rejected,omitempty"`
	Session  models.SessionView `json:"session"`
}

// NewSessionHandler creates a session handler. Operations run for at most timeout.
func NewSessionHandler(session SessionController, renderer MarkdownRenderer, timeout time.Duration, logger arbor.ILogger) *SessionHandler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &SessionHandler{
		session:  session,
		renderer: renderer,
		timeout:  timeout,
		logger:   logger,
	}
}

// GetSessionHandler returns the current session view
func (h *SessionHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, operationResponse{Status: "success", Session: h.session.View()})
}

// UpdateInputsHandler applies raw input values. Values that do not parse are
// ignored and reported in "rejected"; the request still succeeds.
func (h *SessionHandler) UpdateInputsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var update models.InputUpdate
	if err := DecodeJSON(r, &update); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rejected := h.session.ApplyInputs(update)
	if len(rejected) > 0 {
		h.logger.Debug().Strs("fields", rejected).Msg("Ignored invalid input values")
	}

	WriteJSON(w, http.StatusOK, operationResponse{
		Status:   "success",
		Rejected: rejected,
		Session:  h.session.View(),
	})
}

// AnalyzeHandler runs a fresh analysis
func (h *SessionHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "analyze", h.session.Analyze)
}

// ReanalyzeHandler dismisses the stale notice and analyzes at the drifted price
func (h *SessionHandler) ReanalyzeHandler(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "reanalyze", h.session.Reanalyze)
}

// ToggleLanguageHandler switches the analysis language
func (h *SessionHandler) ToggleLanguageHandler(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "toggle_language", h.session.ToggleLanguage)
}

// BacktestHandler backtests the active strategy
func (h *SessionHandler) BacktestHandler(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "backtest", h.session.RunBacktest)
}

// ResetHandler returns the session to its defaults
func (h *SessionHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "reset", h.session.Reset)
}

// DismissStaleHandler clears the price stale notice
func (h *SessionHandler) DismissStaleHandler(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "dismiss_stale", func(ctx context.Context) error {
		h.session.DismissStaleNotification(ctx)
		return nil
	})
}

// MarkdownHandler renders the active analysis and backtest as markdown
func (h *SessionHandler) MarkdownHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	view := h.session.View()
	if len(view.Sections) == 0 {
		WriteError(w, http.StatusNotFound, "No analysis available for the active language")
		return
	}

	body, err := h.renderer.SectionsToMarkdown(view.Inputs.Ticker, view.Sections, view.Language)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to render analysis markdown")
		WriteError(w, http.StatusInternalServerError, "Failed to render analysis")
		return
	}

	if view.BacktestResult != nil {
		backtest, err := h.renderer.BacktestToMarkdown(view.BacktestResult, view.Language)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to render backtest markdown")
			WriteError(w, http.StatusInternalServerError, "Failed to render backtest")
			return
		}
		body = strings.TrimRight(body, "\n") + "\n\n" + backtest
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// runOperation runs op detached from the client connection so a disconnect
// does not abandon an in-flight provider call.
func (h *SessionHandler) runOperation(w http.ResponseWriter, r *http.Request, name string, op func(ctx context.Context) error) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	start := time.Now()
	err := op(ctx)
	view := h.session.View()

	if err != nil {
		status := StatusForError(err)
		h.logger.Debug().
			Str("operation", name).
			Int("status", status).
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Session operation failed")

		WriteJSON(w, status, operationResponse{Status: "error", Error: err.Error(), Session: view})
		return
	}

	WriteJSON(w, http.StatusOK, operationResponse{Status: "success", Session: view})
}
