package handlers

import (
	"context"

	"github.com/ternarybob/stocklens/internal/models"
)

// SessionController is the session surface driven by the HTTP API
type SessionController interface {
	View() models.SessionView
	ApplyInputs(update models.InputUpdate) []string
	Analyze(ctx context.Context) error
	Reanalyze(ctx context.Context) error
	ToggleLanguage(ctx context.Context) error
	RunBacktest(ctx context.Context) error
	Reset(ctx context.Context) error
	DismissStaleNotification(ctx context.Context)
}

// MarkdownRenderer renders session content as markdown
type MarkdownRenderer interface {
	SectionsToMarkdown(title string, sections []models.AnalysisSection, lang models.Language) (string, error)
	BacktestToMarkdown(result *models.BacktestResult, lang models.Language) (string, error)
}
