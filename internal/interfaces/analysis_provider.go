package interfaces

import (
	"context"

	"github.com/ternarybob/stocklens/internal/models"
)

// AnalysisProvider produces AI analyses and backtests. Any returned error is
// treated as opaque by the session and surfaced by message.
type AnalysisProvider interface {
	// GetAnalysis returns the ordered analysis sections for inputs in language.
	GetAnalysis(ctx context.Context, inputs models.SessionInputs, language models.Language) ([]models.AnalysisSection, error)

	// GetBacktest simulates strategy on ticker's recent history.
	GetBacktest(ctx context.Context, ticker string, strategy models.TradingStrategy, language models.Language) (*models.BacktestResult, error)
}
