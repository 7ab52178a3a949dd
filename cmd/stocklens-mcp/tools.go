package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetSessionTool returns the get_session tool definition
func createGetSessionTool() mcp.Tool {
	return mcp.NewTool("get_session",
		mcp.WithDescription("Show the current stock analysis session: inputs, operation status, active analysis and backtest"),
	)
}

// createSetInputsTool returns the set_inputs tool definition
func createSetInputsTool() mcp.Tool {
	return mcp.NewTool("set_inputs",
		mcp.WithDescription("Update any subset of the session inputs. Values that do not parse are ignored and reported."),
		mcp.WithString("ticker",
			mcp.Description("Ticker symbol, e.g. NVDA (upper-cased)"),
		),
		mcp.WithNumber("current_price",
			mcp.Description("Current market price, must be positive to analyze"),
		),
		mcp.WithNumber("investment_amount",
			mcp.Description("Planned total investment; 0 or empty clears it"),
		),
		mcp.WithNumber("position_price",
			mcp.Description("Cost basis of an existing position; 0 or empty clears it"),
		),
		mcp.WithString("investment_horizon",
			mcp.Description("Holding period"),
			mcp.Enum("short", "medium", "long"),
		),
		mcp.WithString("volatility_preference",
			mcp.Description("Acceptable price movement"),
			mcp.Enum("low", "medium", "high"),
		),
		mcp.WithString("risk_tolerance",
			mcp.Description("Risk appetite"),
			mcp.Enum("conservative", "balanced", "aggressive"),
		),
	)
}

// createAnalyzeTool returns the analyze tool definition
func createAnalyzeTool() mcp.Tool {
	return mcp.NewTool("analyze",
		mcp.WithDescription("Run a fresh AI analysis of the current inputs in the active language. Clears cached analyses in other languages."),
	)
}

// createToggleLanguageTool returns the toggle_language tool definition
func createToggleLanguageTool() mcp.Tool {
	return mcp.NewTool("toggle_language",
		mcp.WithDescription("Switch the analysis between Chinese and English, translating through the AI when the other language is not cached"),
	)
}

// createRunBacktestTool returns the run_backtest tool definition
func createRunBacktestTool() mcp.Tool {
	return mcp.NewTool("run_backtest",
		mcp.WithDescription("Backtest the trading strategy of the active analysis over recent history"),
	)
}

// createResetSessionTool returns the reset_session tool definition
func createResetSessionTool() mcp.Tool {
	return mcp.NewTool("reset_session",
		mcp.WithDescription("Restore default inputs, clear all analyses and delete the saved session"),
	)
}
