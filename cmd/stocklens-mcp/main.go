package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/stocklens/internal/app"
	"github.com/ternarybob/stocklens/internal/common"
)

func main() {
	configPath := os.Getenv("STOCKLENS_CONFIG")
	if configPath == "" {
		configPath = "stocklens.toml"
	}
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}

	// Phase 1: Load config without KV replacement (storage not initialized yet)
	config, err := common.LoadFromFile(nil, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs go to file only
	logger := common.InitLogger(config, false)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	session := application.Session
	renderer := application.TransformService

	mcpServer := server.NewMCPServer(
		"stocklens",
		common.GetVersionInfo().Version,
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createGetSessionTool(), handleGetSession(session, renderer, logger))
	mcpServer.AddTool(createSetInputsTool(), handleSetInputs(session, logger))
	mcpServer.AddTool(createAnalyzeTool(), handleOperation("analyze", session.Analyze, session, renderer, logger))
	mcpServer.AddTool(createToggleLanguageTool(), handleOperation("toggle_language", session.ToggleLanguage, session, renderer, logger))
	mcpServer.AddTool(createRunBacktestTool(), handleOperation("run_backtest", session.RunBacktest, session, renderer, logger))
	mcpServer.AddTool(createResetSessionTool(), handleOperation("reset_session", session.Reset, session, renderer, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
		application.Close()
		os.Exit(1)
	}
}
