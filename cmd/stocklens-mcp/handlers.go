package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/handlers"
	"github.com/ternarybob/stocklens/internal/models"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

// handleGetSession implements the get_session tool
func handleGetSession(session handlers.SessionController, renderer handlers.MarkdownRenderer, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(formatSession(session.View(), renderer, logger)), nil
	}
}

// handleSetInputs implements the set_inputs tool
func handleSetInputs(session handlers.SessionController, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		update := inputUpdateFromArguments(request.GetArguments())

		rejected := session.ApplyInputs(update)
		if len(rejected) > 0 {
			logger.Debug().Strs("fields", rejected).Msg("Ignored invalid input values")
		}

		return textResult(formatInputs(session.View().Inputs, rejected)), nil
	}
}

// handleOperation runs one session operation and reports the resulting state
func handleOperation(name string, op func(ctx context.Context) error, session handlers.SessionController, renderer handlers.MarkdownRenderer, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := op(ctx); err != nil {
			logger.Warn().Err(err).Str("tool", name).Msg("Session operation failed")
			return errorResult(fmt.Sprintf("%s failed: %s", name, operationErrorMessage(name, err, session.View()))), nil
		}
		return textResult(formatSession(session.View(), renderer, logger)), nil
	}
}

// operationErrorMessage prefers the localized message the session stored in
// the operation's error slot
func operationErrorMessage(name string, err error, view models.SessionView) string {
	var state models.OperationState
	switch name {
	case "analyze":
		state = view.Analysis
	case "toggle_language":
		state = view.LanguageToggle
	case "run_backtest":
		state = view.Backtest
	}
	if state.Status == models.OperationError && state.Error != "" {
		return state.Error
	}
	var perr *models.ProviderError
	if errors.As(err, &perr) {
		return perr.Message()
	}
	return err.Error()
}

var inputArguments = []string{
	"ticker",
	"current_price",
	"investment_amount",
	"position_price",
	"investment_horizon",
	"volatility_preference",
	"risk_tolerance",
}

// inputUpdateFromArguments keeps the raw string form of every supplied argument
// so the session applies its own parsing rules
func inputUpdateFromArguments(args map[string]any) models.InputUpdate {
	raw := make(map[string]*string, len(inputArguments))
	for _, name := range inputArguments {
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		s := argumentString(v)
		raw[name] = &s
	}

	return models.InputUpdate{
		Ticker:               raw["ticker"],
		CurrentPrice:         raw["current_price"],
		InvestmentAmount:     raw["investment_amount"],
		PositionPrice:        raw["position_price"],
		InvestmentHorizon:    raw["investment_horizon"],
		VolatilityPreference: raw["volatility_preference"],
		RiskTolerance:        raw["risk_tolerance"],
	}
}

func argumentString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
