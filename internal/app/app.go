package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/common"
	"github.com/ternarybob/stocklens/internal/handlers"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
	"github.com/ternarybob/stocklens/internal/services/events"
	"github.com/ternarybob/stocklens/internal/services/llm"
	"github.com/ternarybob/stocklens/internal/services/monitor"
	"github.com/ternarybob/stocklens/internal/services/session"
	"github.com/ternarybob/stocklens/internal/services/transform"
	"github.com/ternarybob/stocklens/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager *badger.Manager

	EventService     interfaces.EventService
	TransformService *transform.Service
	ProviderFactory  *llm.ProviderFactory
	AnalysisService  *llm.AnalysisService
	Monitor          *monitor.DriftMonitor
	Session          *session.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	SessionHandler *handlers.SessionHandler
	WSHandler      *handlers.WebSocketHandler
}

// New wires storage, services and handlers, then restores the persisted session.
// cfg is copied so {key} replacement does not leak secrets into the caller's config.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	cfg = common.DeepCloneConfig(cfg)
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	restored := app.Session.Restore(context.Background())

	logger.Info().
		Bool("restored", restored).
		Bool("monitor_enabled", cfg.Monitor.Enabled).
		Str("model", app.ProviderFactory.DefaultModel()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens Badger, seeds API keys from the variables and .env files
// and resolves {key} references in the config
func (a *App) initDatabase() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	ctx := context.Background()

	// Log warning but don't fail startup
	if a.Config.Storage.VariablesFile != "" {
		if _, err := manager.LoadVariablesFromFile(ctx, a.Config.Storage.VariablesFile); err != nil {
			a.Logger.Warn().Err(err).Str("file", a.Config.Storage.VariablesFile).Msg("Failed to load variables file")
		}
	}

	// .env values take precedence over the variables file
	if _, err := manager.LoadEnvFile(ctx, a.Config.Storage.EnvFile); err != nil {
		a.Logger.Warn().Err(err).Str("file", a.Config.Storage.EnvFile).Msg("Failed to load .env file")
	}

	pairs, err := manager.KeyValueStore().List(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV pairs for config replacement, skipping replacement")
		return nil
	}
	if len(pairs) == 0 {
		return nil
	}

	kvMap := make(map[string]string, len(pairs))
	for _, p := range pairs {
		kvMap[p.Key] = p.Value
	}
	if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
	} else {
		a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
	}

	return nil
}

// initServices creates the services in dependency order
func (a *App) initServices() error {
	kv := a.StorageManager.KeyValueStore()

	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	a.TransformService = transform.NewService(a.Logger)

	a.ProviderFactory = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, kv, a.Logger)
	a.AnalysisService = llm.NewAnalysisService(
		a.ProviderFactory,
		a.TransformService,
		analysisOptions(a.Config, a.ProviderFactory),
		a.Logger,
	)

	defaults, err := sessionDefaults(&a.Config.Session)
	if err != nil {
		return err
	}
	language, err := models.ParseLanguage(a.Config.Session.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("invalid session.default_language: %w", err)
	}

	opts := session.Options{
		Provider:        a.AnalysisService,
		Persistence:     session.NewPersistence(kv, a.Config.Session.StorageKey, a.Logger),
		Events:          a.EventService,
		Defaults:        defaults,
		DefaultLanguage: language,
	}

	if a.Config.Monitor.Enabled {
		a.Monitor = monitor.NewDriftMonitor(
			common.ParseDurationOr(a.Config.Monitor.Interval, monitor.DefaultInterval),
			a.Config.Monitor.DriftThreshold,
			a.Logger,
		)
		opts.Monitor = a.Monitor
		opts.SamplerFactory = monitor.SimulatedSamplerFactory(a.Config.Monitor.Volatility)
	}

	a.Session = session.NewService(opts, a.Logger)
	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(
		a.Session,
		a.TransformService,
		a.RequestTimeout(),
		a.Logger,
	)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Session, a.Logger, &a.Config.WebSocket)
}

// RequestTimeout bounds a single analyze, toggle or backtest request
func (a *App) RequestTimeout() time.Duration {
	return common.ParseDurationOr(a.Config.Server.RequestTimeout, 5*time.Minute)
}

// analysisOptions picks the temperatures of the provider serving the default model
func analysisOptions(cfg *common.Config, factory *llm.ProviderFactory) llm.AnalysisOptions {
	model := factory.DefaultModel()
	if factory.DetectProvider(model) == llm.ProviderClaude {
		return llm.AnalysisOptions{
			Model:               model,
			AnalysisTemperature: cfg.Claude.AnalysisTemperature,
			BacktestTemperature: cfg.Claude.BacktestTemperature,
		}
	}
	return llm.AnalysisOptions{
		Model:               model,
		AnalysisTemperature: cfg.Gemini.AnalysisTemperature,
		BacktestTemperature: cfg.Gemini.BacktestTemperature,
	}
}

// sessionDefaults converts the configured defaults into session inputs
func sessionDefaults(cfg *common.SessionConfig) (models.SessionInputs, error) {
	defaults := models.SessionInputs{
		Ticker:               models.NormalizeTicker(cfg.DefaultTicker),
		CurrentPrice:         cfg.DefaultPrice,
		InvestmentHorizon:    models.InvestmentHorizon(cfg.InvestmentHorizon),
		VolatilityPreference: models.VolatilityPreference(cfg.VolatilityPreference),
		RiskTolerance:        models.RiskTolerance(cfg.RiskTolerance),
	}

	if !defaults.InvestmentHorizon.IsValid() {
		return defaults, fmt.Errorf("invalid session.investment_horizon %q", cfg.InvestmentHorizon)
	}
	if !defaults.VolatilityPreference.IsValid() {
		return defaults, fmt.Errorf("invalid session.volatility_preference %q", cfg.VolatilityPreference)
	}
	if !defaults.RiskTolerance.IsValid() {
		return defaults, fmt.Errorf("invalid session.risk_tolerance %q", cfg.RiskTolerance)
	}
	if defaults.CurrentPrice < 0 {
		return defaults, fmt.Errorf("session.default_price must not be negative, got %v", cfg.DefaultPrice)
	}

	return defaults, nil
}

// Close stops background work and releases storage, in reverse start order
func (a *App) Close() error {
	if a.WSHandler != nil {
		if err := a.WSHandler.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close WebSocket handler")
		}
	}

	if a.Session != nil {
		if err := a.Session.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close session")
		}
	}

	if a.Monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Monitor.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop price monitor")
		}
		cancel()
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		} else {
			a.Logger.Info().Msg("LLM providers closed")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
