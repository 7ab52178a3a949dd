package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/handlers"
	"github.com/ternarybob/stocklens/internal/models"
)

func formatPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

// formatInputs formats the session inputs as a markdown list
func formatInputs(in models.SessionInputs, rejected []string) string {
	var sb strings.Builder
	sb.WriteString("## Inputs\n\n")
	sb.WriteString(fmt.Sprintf("- **Ticker:** %s\n", in.Ticker))
	sb.WriteString(fmt.Sprintf("- **Current price:** %.2f\n", in.CurrentPrice))
	sb.WriteString(fmt.Sprintf("- **Investment amount:** %s\n", formatPrice(in.InvestmentAmount)))
	sb.WriteString(fmt.Sprintf("- **Position price:** %s\n", formatPrice(in.PositionPrice)))
	sb.WriteString(fmt.Sprintf("- **Horizon:** %s\n", in.InvestmentHorizon))
	sb.WriteString(fmt.Sprintf("- **Volatility:** %s\n", in.VolatilityPreference))
	sb.WriteString(fmt.Sprintf("- **Risk tolerance:** %s\n", in.RiskTolerance))

	if len(rejected) > 0 {
		sb.WriteString(fmt.Sprintf("\nIgnored invalid values for: %s\n", strings.Join(rejected, ", ")))
	}
	return sb.String()
}

func formatOperation(name string, state models.OperationState) string {
	if state.Error != "" {
		return fmt.Sprintf("- **%s:** %s (%s)\n", name, state.Status, state.Error)
	}
	return fmt.Sprintf("- **%s:** %s\n", name, state.Status)
}

// formatSession formats the full session view: inputs, status, analysis and backtest
func formatSession(view models.SessionView, renderer handlers.MarkdownRenderer, logger arbor.ILogger) string {
	var sb strings.Builder
	sb.WriteString(formatInputs(view.Inputs, nil))

	languages := make([]string, 0, len(view.CachedLanguages))
	for _, l := range view.CachedLanguages {
		languages = append(languages, string(l))
	}

	sb.WriteString("\n## Status\n\n")
	sb.WriteString(fmt.Sprintf("- **Language:** %s (cached: %s)\n", view.Language.DisplayName(), strings.Join(languages, ", ")))
	sb.WriteString(formatOperation("Analysis", view.Analysis))
	sb.WriteString(formatOperation("Language toggle", view.LanguageToggle))
	sb.WriteString(formatOperation("Backtest", view.Backtest))
	sb.WriteString(fmt.Sprintf("- **Last analyzed price:** %s\n", formatPrice(view.LastAnalyzedPrice)))
	if view.PriceStale {
		sb.WriteString("- **Price stale:** the price moved since the last analysis; run analyze again\n")
	}
	if view.FromCache {
		sb.WriteString("- Restored from the saved session\n")
	}

	if len(view.Sections) == 0 {
		sb.WriteString("\nNo analysis yet. Use the analyze tool.\n")
		return sb.String()
	}

	analysis, err := renderer.SectionsToMarkdown(view.Inputs.Ticker, view.Sections, view.Language)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to render analysis")
		sb.WriteString("\nFailed to render analysis.\n")
		return sb.String()
	}
	sb.WriteString("\n")
	sb.WriteString(analysis)

	if view.BacktestResult != nil {
		backtest, err := renderer.BacktestToMarkdown(view.BacktestResult, view.Language)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to render backtest")
			return sb.String()
		}
		sb.WriteString("\n")
		sb.WriteString(backtest)
	}

	return sb.String()
}
