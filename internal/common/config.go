package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/stocklens/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Session     SessionConfig   `toml:"session"`
	Monitor     MonitorConfig   `toml:"monitor"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port           int    `toml:"port"`
	Host           string `toml:"host"`
	RequestTimeout string `toml:"request_timeout"` // Upper bound for one analyze/backtest request (default: "5m")
}

type StorageConfig struct {
	Badger        BadgerConfig `toml:"badger"`
	VariablesFile string       `toml:"variables_file"` // TOML file of [key] value = "..." entries seeded into the KV store (API keys)
	EnvFile       string       `toml:"env_file"`       // KEY=value file seeded into the KV store after the variables file; keys are lower-cased
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// SessionConfig holds the persisted snapshot key and the inputs a new or reset session starts with
type SessionConfig struct {
	StorageKey           string  `toml:"storage_key"`
	DefaultTicker        string  `toml:"default_ticker"`
	DefaultPrice         float64 `toml:"default_price"`
	DefaultLanguage      string  `toml:"default_language"` // "zh" or "en"
	InvestmentHorizon    string  `toml:"investment_horizon"`
	VolatilityPreference string  `toml:"volatility_preference"`
	RiskTolerance        string  `toml:"risk_tolerance"`
}

// MonitorConfig controls the price drift monitor and its simulated feed
type MonitorConfig struct {
	Enabled        bool    `toml:"enabled"`
	Interval       string  `toml:"interval"`        // Sampling interval (default: "15s")
	DriftThreshold float64 `toml:"drift_threshold"` // Relative drift that marks the analysis stale (default: 0.01)
	Volatility     float64 `toml:"volatility"`      // Max relative move of the simulated sampler per tick (default: 0.015)
}

// WebSocketConfig contains configuration for the session event stream
type WebSocketConfig struct {
	// Whitelist of event types to broadcast via WebSocket. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"session_updated": "250ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey              string  `toml:"api_key"`              // Google Gemini API key
	Model               string  `toml:"model"`                // Model for analysis and backtest (default: "gemini-2.5-flash")
	Timeout             string  `toml:"timeout"`              // Operation timeout as duration string (default: "5m")
	RateLimit           string  `toml:"rate_limit"`           // Rate limit duration string (default: "4s" for 15 RPM)
	AnalysisTemperature float32 `toml:"analysis_temperature"` // Temperature for analysis requests (default: 0.5)
	BacktestTemperature float32 `toml:"backtest_temperature"` // Temperature for backtest requests (default: 0.3)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey              string  `toml:"api_key"`    // Anthropic API key
	Model               string  `toml:"model"`      // Model for analysis and backtest
	MaxTokens           int     `toml:"max_tokens"` // Maximum tokens in response (default: 8192)
	Timeout             string  `toml:"timeout"`
	RateLimit           string  `toml:"rate_limit"`
	AnalysisTemperature float32 `toml:"analysis_temperature"`
	BacktestTemperature float32 `toml:"backtest_temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used for analyses
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
	MaxRetries      int         `toml:"max_retries"`      // Retries on rate limit errors (default: 3)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:           8090,
			Host:           "localhost",
			RequestTimeout: "5m",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			VariablesFile: "./variables.toml",
			EnvFile:       ".env",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Session: SessionConfig{
			StorageKey:           "aiStockAnalyzerCache",
			DefaultTicker:        "NVDA",
			DefaultPrice:         178.88,
			DefaultLanguage:      "zh",
			InvestmentHorizon:    "medium",
			VolatilityPreference: "medium",
			RiskTolerance:        "balanced",
		},
		Monitor: MonitorConfig{
			Enabled:        true,
			Interval:       "15s",
			DriftThreshold: 0.01,
			Volatility:     0.015,
		},
		WebSocket: WebSocketConfig{
			AllowedEvents: []string{},
			ThrottleIntervals: map[string]string{
				"session_updated": "250ms",
			},
		},
		Gemini: GeminiConfig{
			Model:               "gemini-2.5-flash",
			Timeout:             "5m",
			RateLimit:           "4s",
			AnalysisTemperature: 0.5,
			BacktestTemperature: 0.3,
		},
		Claude: ClaudeConfig{
			Model:               "claude-sonnet-4-5",
			MaxTokens:           8192,
			Timeout:             "5m",
			RateLimit:           "1s",
			AnalysisTemperature: 0.5,
			BacktestTemperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxRetries:      3,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// kvStorage can be nil (replacement will be skipped)
func LoadFromFile(kvStorage interfaces.KeyValueStore, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
func LoadFromFiles(kvStorage interfaces.KeyValueStore, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		logger := GetLogger()
		pairs, err := kvStorage.List(context.Background())
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch KV pairs for config replacement, skipping replacement")
		} else {
			kvMap := make(map[string]string, len(pairs))
			for _, p := range pairs {
				kvMap[p.Key] = p.Value
			}
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			}
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKLENS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("STOCKLENS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STOCKLENS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if timeout := os.Getenv("STOCKLENS_SERVER_REQUEST_TIMEOUT"); timeout != "" {
		config.Server.RequestTimeout = timeout
	}

	// Storage configuration
	if badgerPath := os.Getenv("STOCKLENS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("STOCKLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("STOCKLENS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("STOCKLENS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Session configuration
	if key := os.Getenv("STOCKLENS_SESSION_STORAGE_KEY"); key != "" {
		config.Session.StorageKey = key
	}
	if ticker := os.Getenv("STOCKLENS_SESSION_DEFAULT_TICKER"); ticker != "" {
		config.Session.DefaultTicker = ticker
	}
	if price := os.Getenv("STOCKLENS_SESSION_DEFAULT_PRICE"); price != "" {
		if p, err := strconv.ParseFloat(price, 64); err == nil {
			config.Session.DefaultPrice = p
		}
	}
	if lang := os.Getenv("STOCKLENS_SESSION_DEFAULT_LANGUAGE"); lang != "" {
		config.Session.DefaultLanguage = lang
	}

	// Monitor configuration
	if enabled := os.Getenv("STOCKLENS_MONITOR_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Monitor.Enabled = e
		}
	}
	if interval := os.Getenv("STOCKLENS_MONITOR_INTERVAL"); interval != "" {
		config.Monitor.Interval = interval
	}
	if threshold := os.Getenv("STOCKLENS_MONITOR_DRIFT_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Monitor.DriftThreshold = t
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("STOCKLENS_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("STOCKLENS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if rateLimit := os.Getenv("STOCKLENS_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}

	// Claude configuration
	if apiKey := os.Getenv("STOCKLENS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("STOCKLENS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// LLM configuration
	if provider := os.Getenv("STOCKLENS_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStore, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"STOCKLENS_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"STOCKLENS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Validate checks the values the session and monitor cannot run without
func (c *Config) Validate() error {
	if c.Session.StorageKey == "" {
		return fmt.Errorf("session.storage_key must not be empty")
	}
	if c.Session.DefaultLanguage != "zh" && c.Session.DefaultLanguage != "en" {
		return fmt.Errorf("session.default_language must be \"zh\" or \"en\", got %q", c.Session.DefaultLanguage)
	}
	if c.Monitor.DriftThreshold <= 0 {
		return fmt.Errorf("monitor.drift_threshold must be positive, got %v", c.Monitor.DriftThreshold)
	}
	if c.Monitor.Volatility < 0 {
		return fmt.Errorf("monitor.volatility must not be negative, got %v", c.Monitor.Volatility)
	}
	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("llm.default_provider must be \"gemini\" or \"claude\", got %q", c.LLM.DefaultProvider)
	}
	return nil
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.WebSocket.AllowedEvents) > 0 {
		clone.WebSocket.AllowedEvents = make([]string, len(c.WebSocket.AllowedEvents))
		copy(clone.WebSocket.AllowedEvents, c.WebSocket.AllowedEvents)
	}

	if len(c.WebSocket.ThrottleIntervals) > 0 {
		clone.WebSocket.ThrottleIntervals = make(map[string]string, len(c.WebSocket.ThrottleIntervals))
		for k, v := range c.WebSocket.ThrottleIntervals {
			clone.WebSocket.ThrottleIntervals[k] = v
		}
	}

	return &clone
}
