package session

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/common"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
)

// Options configures a Service. Monitor, SamplerFactory and Events are optional.
type Options struct {
	Provider        interfaces.AnalysisProvider
	Persistence     *Persistence
	Monitor         interfaces.PriceMonitor
	SamplerFactory  interfaces.SamplerFactory
	Events          interfaces.EventService
	Defaults        models.SessionInputs
	DefaultLanguage models.Language
}

// Service is the session state machine. It owns the inputs, the bilingual
// cache, each operation's loading flag and error slot, and the backtest result.
//
// Analyze and ToggleLanguage share one in-flight slot because both write the
// cache; RunBacktest has its own. A second call into a busy slot is rejected
// with models.ErrOperationInFlight. Provider calls run without the lock held.
//
// Events are delivered one at a time. Handlers may read the view but must not
// change the session.
type Service struct {
	mu sync.Mutex

	logger         arbor.ILogger
	provider       interfaces.AnalysisProvider
	persistence    *Persistence
	monitor        interfaces.PriceMonitor
	samplerFactory interfaces.SamplerFactory
	events         interfaces.EventService

	defaults        models.SessionInputs
	defaultLanguage models.Language

	inputs         models.SessionInputs
	analyzedInputs models.SessionInputs // inputs of the last successful analysis, persisted with the cache
	language       models.Language
	cache          *Cache

	analysis       models.OperationState
	toggle         models.OperationState
	backtest       models.OperationState
	backtestResult *models.BacktestResult

	lastAnalyzedPrice *float64
	priceStale        bool
	fromCache         bool
	monitorToken      interfaces.MonitorToken

	// Owner tokens of the in-flight calls; zero when the slot is free.
	// Reset releases both slots so late completions find a foreign token.
	cacheOwner    uint64
	backtestOwner uint64
	nextToken     uint64

	// backtestGen invalidates in-flight backtests when the analysis or language changes
	backtestGen uint64

	revision uint64

	// publishMu orders event delivery. A view older than one already
	// published is dropped so subscribers never step back to an old state.
	publishMu         sync.Mutex
	publishedRevision uint64
}

// NewService creates a session holding the default inputs
func NewService(opts Options, logger arbor.ILogger) *Service {
	lang := opts.DefaultLanguage
	if !lang.IsValid() {
		lang = models.LanguageChinese
	}

	defaults := opts.Defaults.Clone()
	defaults.Ticker = models.NormalizeTicker(defaults.Ticker)

	return &Service{
		logger:          logger,
		provider:        opts.Provider,
		persistence:     opts.Persistence,
		monitor:         opts.Monitor,
		samplerFactory:  opts.SamplerFactory,
		events:          opts.Events,
		defaults:        defaults,
		defaultLanguage: lang,
		inputs:          defaults.Clone(),
		language:        lang,
		cache:           NewCache(),
		analysis:        idle(),
		toggle:          idle(),
		backtest:        idle(),
	}
}

func idle() models.OperationState {
	return models.OperationState{Status: models.OperationIdle}
}

func inFlight() models.OperationState {
	return models.OperationState{Status: models.OperationInFlight}
}

func failed(msg string) models.OperationState {
	return models.OperationState{Status: models.OperationError, Error: msg}
}

func (s *Service) takeTokenLocked() uint64 {
	s.nextToken++
	return s.nextToken
}

// Analyze requests a fresh analysis of the current inputs in the active language.
// Both cached languages and the backtest are discarded first.
func (s *Service) Analyze(ctx context.Context) error {
	logger := s.logger.WithCorrelationId(common.NewCorrelationID())

	s.mu.Lock()
	if s.cacheOwner != 0 {
		s.mu.Unlock()
		logger.Debug().Msg("Analysis rejected, cache operation in flight")
		return models.ErrOperationInFlight
	}

	if err := s.inputs.Validate(); err != nil {
		s.analysis = failed(validationMessage(s.language))
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Warn().Err(err).Msg("Analysis inputs rejected")
		s.emit(ctx, interfaces.EventAnalysisFailed, map[string]interface{}{"error": view.Analysis.Error})
		s.emitView(ctx, view)
		return err
	}

	s.disarmLocked()
	s.cache.Clear()
	s.clearBacktestLocked()
	s.toggle = idle()
	s.priceStale = false
	s.fromCache = false

	token := s.takeTokenLocked()
	s.cacheOwner = token
	s.analysis = inFlight()

	inputs := s.inputs.Clone()
	lang := s.language
	view := s.viewLocked()
	s.mu.Unlock()

	s.emitView(ctx, view)

	logger.Info().
		Str("ticker", inputs.Ticker).
		Float64("price", inputs.CurrentPrice).
		Str("language", string(lang)).
		Msg("Requesting analysis")

	sections, err := s.provider.GetAnalysis(ctx, inputs, lang)

	s.mu.Lock()
	if s.cacheOwner != token {
		s.mu.Unlock()
		logger.Info().Msg("Analysis result discarded, session was reset")
		return models.ErrSuperseded
	}
	s.cacheOwner = 0

	if err != nil {
		s.analysis = failed(providerMessage(err))
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Error().Err(err).Str("ticker", inputs.Ticker).Msg("Analysis failed")
		s.emit(ctx, interfaces.EventAnalysisFailed, map[string]interface{}{"error": view.Analysis.Error})
		s.emitView(ctx, view)
		return &models.ProviderError{Op: "analysis", Err: err}
	}

	s.cache.Put(lang, sections)
	s.analyzedInputs = inputs
	price := inputs.CurrentPrice
	s.lastAnalyzedPrice = &price
	s.analysis = idle()
	s.persistLocked(ctx, logger)
	s.armLocked(price)
	view = s.viewLocked()
	s.mu.Unlock()

	logger.Info().
		Str("ticker", inputs.Ticker).
		Int("sections", len(sections)).
		Bool("strategy", view.Strategy != nil).
		Msg("Analysis completed")

	s.emit(ctx, interfaces.EventAnalysisCompleted, view)
	s.emitView(ctx, view)
	return nil
}

// Reanalyze dismisses the stale notification and analyzes with the drifted price
func (s *Service) Reanalyze(ctx context.Context) error {
	s.mu.Lock()
	s.priceStale = false
	s.mu.Unlock()

	return s.Analyze(ctx)
}

// ToggleLanguage switches the active language. A cached target, or a session
// with nothing analyzed yet, switches without a request. Otherwise the target
// language is fetched and the switch is reverted if the fetch fails.
func (s *Service) ToggleLanguage(ctx context.Context) error {
	logger := s.logger.WithCorrelationId(common.NewCorrelationID())

	s.mu.Lock()
	if s.cacheOwner != 0 {
		s.mu.Unlock()
		logger.Debug().Msg("Language toggle rejected, cache operation in flight")
		return models.ErrOperationInFlight
	}

	previous := s.language
	target := previous.Other()
	s.language = target
	s.toggle = idle()
	s.clearBacktestLocked()

	if s.cache.Has(target) || s.cache.IsEmpty() {
		if !s.cache.IsEmpty() {
			s.persistLocked(ctx, logger)
		}
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Debug().Str("language", string(target)).Msg("Language switched without request")
		s.emit(ctx, interfaces.EventLanguageChanged, view)
		s.emitView(ctx, view)
		return nil
	}

	token := s.takeTokenLocked()
	s.cacheOwner = token
	s.toggle = inFlight()
	inputs := s.inputs.Clone()
	view := s.viewLocked()
	s.mu.Unlock()

	s.emitView(ctx, view)

	logger.Info().
		Str("ticker", inputs.Ticker).
		Str("language", string(target)).
		Msg("Fetching analysis for new language")

	sections, err := s.provider.GetAnalysis(ctx, inputs, target)

	s.mu.Lock()
	if s.cacheOwner != token {
		s.mu.Unlock()
		logger.Info().Msg("Language toggle result discarded, session was reset")
		return models.ErrSuperseded
	}
	s.cacheOwner = 0

	if err != nil {
		s.language = previous
		s.toggle = failed(toggleFailedMessage(previous, target, err))
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Error().Err(err).Str("language", string(target)).Msg("Language toggle failed, reverted")
		s.emit(ctx, interfaces.EventAnalysisFailed, map[string]interface{}{"error": view.LanguageToggle.Error})
		s.emitView(ctx, view)
		return &models.ProviderError{Op: "language toggle", Err: err}
	}

	s.cache.Put(target, sections)
	s.toggle = idle()
	s.persistLocked(ctx, logger)
	view = s.viewLocked()
	s.mu.Unlock()

	logger.Info().Str("language", string(target)).Int("sections", len(sections)).Msg("Language toggle completed")

	s.emit(ctx, interfaces.EventLanguageChanged, view)
	s.emitView(ctx, view)
	return nil
}

// RunBacktest simulates the active language's strategy. Without a strategy it
// fails with *models.NoStrategyError and makes no request.
func (s *Service) RunBacktest(ctx context.Context) error {
	logger := s.logger.WithCorrelationId(common.NewCorrelationID())

	s.mu.Lock()
	if s.backtestOwner != 0 {
		s.mu.Unlock()
		logger.Debug().Msg("Backtest rejected, backtest in flight")
		return models.ErrOperationInFlight
	}

	lang := s.language
	sections, _ := s.cache.Get(lang)
	strategy := ExtractStrategy(sections)
	if strategy == nil {
		s.backtest = failed(noStrategyMessage(lang))
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Warn().Str("language", string(lang)).Msg("Backtest requested without a strategy")
		s.emit(ctx, interfaces.EventBacktestFailed, map[string]interface{}{"error": view.Backtest.Error})
		s.emitView(ctx, view)
		return &models.NoStrategyError{Language: lang}
	}

	token := s.takeTokenLocked()
	s.backtestOwner = token
	gen := s.backtestGen
	s.backtest = inFlight()
	s.backtestResult = nil
	ticker := s.inputs.Ticker
	view := s.viewLocked()
	s.mu.Unlock()

	s.emitView(ctx, view)

	logger.Info().Str("ticker", ticker).Str("language", string(lang)).Msg("Requesting backtest")

	result, err := s.provider.GetBacktest(ctx, ticker, *strategy, lang)

	s.mu.Lock()
	if s.backtestOwner != token {
		s.mu.Unlock()
		logger.Info().Msg("Backtest result discarded, session was reset")
		return models.ErrSuperseded
	}
	s.backtestOwner = 0

	if gen != s.backtestGen {
		s.backtest = idle()
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Info().Msg("Backtest result discarded, analysis or language changed")
		s.emitView(ctx, view)
		return models.ErrSuperseded
	}

	if err != nil {
		s.backtest = failed(backtestFailedMessage(lang, err))
		view := s.viewLocked()
		s.mu.Unlock()

		logger.Error().Err(err).Str("ticker", ticker).Msg("Backtest failed")
		s.emit(ctx, interfaces.EventBacktestFailed, map[string]interface{}{"error": view.Backtest.Error})
		s.emitView(ctx, view)
		return &models.ProviderError{Op: "backtest", Err: err}
	}

	s.backtestResult = result
	s.backtest = idle()
	view = s.viewLocked()
	s.mu.Unlock()

	logger.Info().Str("ticker", ticker).Int("chart_points", len(chartData(result))).Msg("Backtest completed")

	s.emit(ctx, interfaces.EventBacktestCompleted, view)
	s.emitView(ctx, view)
	return nil
}

func chartData(r *models.BacktestResult) []models.ChartPoint {
	if r == nil {
		return nil
	}
	return r.ChartData
}

// Reset returns the session to its defaults, deletes the snapshot and disarms the monitor.
// Calls still in flight complete with models.ErrSuperseded and change nothing.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.disarmLocked()
	s.cache.Clear()
	s.inputs = s.defaults.Clone()
	s.analyzedInputs = models.SessionInputs{}
	s.language = s.defaultLanguage
	s.analysis = idle()
	s.toggle = idle()
	s.backtest = idle()
	s.backtestResult = nil
	s.backtestGen++
	s.cacheOwner = 0
	s.backtestOwner = 0
	s.lastAnalyzedPrice = nil
	s.priceStale = false
	s.fromCache = false

	var err error
	if s.persistence != nil {
		err = s.persistence.Delete(ctx)
	}
	view := s.viewLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete session snapshot on reset")
	}
	s.logger.Info().Msg("Session reset")

	s.emit(ctx, interfaces.EventSessionReset, view)
	s.emitView(ctx, view)
	return err
}

// DismissStaleNotification clears the stale flag without analyzing
func (s *Service) DismissStaleNotification(ctx context.Context) {
	s.mu.Lock()
	if !s.priceStale {
		s.mu.Unlock()
		return
	}
	s.priceStale = false
	view := s.viewLocked()
	s.mu.Unlock()

	s.emitView(ctx, view)
}

// Restore hydrates the session from the persisted snapshot. It should run
// once at startup, before any operation. Returns whether a snapshot was used.
// Unusable snapshots are discarded and the session starts fresh.
func (s *Service) Restore(ctx context.Context) bool {
	if s.persistence == nil {
		return false
	}

	snapshot, err := s.persistence.Load(ctx)
	if err != nil {
		var schemaErr *models.IncompatibleSchemaError
		if errors.As(err, &schemaErr) {
			s.logger.Warn().Str("reason", schemaErr.Reason).Err(schemaErr.Err).Msg("Discarded incompatible session snapshot")
		} else {
			s.logger.Warn().Err(err).Msg("Failed to load session snapshot")
		}
		return false
	}
	if snapshot == nil {
		return false
	}

	s.mu.Lock()
	inputs := snapshot.SessionInputs.Clone()
	inputs.Ticker = models.NormalizeTicker(inputs.Ticker)
	s.inputs = inputs
	s.analyzedInputs = inputs.Clone()
	s.cache = NewCacheFrom(snapshot.CachedAnalyses)
	s.language = snapshot.AnalysisLanguage
	if !s.cache.Has(s.language) {
		s.language = models.LanguageChinese
	}
	s.fromCache = true
	price := inputs.CurrentPrice
	s.lastAnalyzedPrice = &price
	if !s.cache.IsEmpty() {
		s.armLocked(price)
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("ticker", inputs.Ticker).
		Str("language", string(view.Language)).
		Strs("cached", languageStrings(view.CachedLanguages)).
		Msg("Session restored from snapshot")

	s.emitView(ctx, view)
	return true
}

func languageStrings(langs []models.Language) []string {
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}

// Close disarms the monitor
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
	return nil
}

// clearBacktestLocked drops the result and error and invalidates any in-flight backtest.
// The in-flight flag stays with its call until it returns.
func (s *Service) clearBacktestLocked() {
	s.backtestResult = nil
	s.backtestGen++
	if !s.backtest.InFlight() {
		s.backtest = idle()
	}
}

func (s *Service) snapshotLocked() models.SessionSnapshot {
	return models.SessionSnapshot{
		SchemaVersion:    models.SnapshotSchemaVersion,
		SessionInputs:    s.analyzedInputs.Clone(),
		AnalysisLanguage: s.language,
		CachedAnalyses:   s.cache.ToMap(),
	}
}

func (s *Service) persistLocked(ctx context.Context, logger arbor.ILogger) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.Save(ctx, s.snapshotLocked()); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist session snapshot")
	}
}

func (s *Service) armLocked(price float64) {
	if s.monitor == nil || s.samplerFactory == nil || price <= 0 {
		return
	}
	s.monitorToken = s.monitor.Arm(price, s.samplerFactory(price), s.onPriceStale)
}

func (s *Service) disarmLocked() {
	s.monitorToken = 0
	if s.monitor != nil {
		s.monitor.Disarm()
	}
}

// onPriceStale is the monitor callback. Ticks from an arming that was since
// replaced or disarmed are dropped here, under the session lock.
func (s *Service) onPriceStale(token interfaces.MonitorToken, price float64) {
	s.mu.Lock()
	if token == 0 || token != s.monitorToken || s.lastAnalyzedPrice == nil {
		s.mu.Unlock()
		return
	}
	s.monitorToken = 0

	last := *s.lastAnalyzedPrice
	s.inputs.CurrentPrice = price
	s.priceStale = true
	notice := models.PriceStaleNotice{
		Ticker:            s.inputs.Ticker,
		Price:             price,
		LastAnalyzedPrice: last,
		Drift:             math.Abs(price-last) / last,
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("ticker", notice.Ticker).
		Float64("price", price).
		Float64("last_analyzed_price", last).
		Float64("drift", notice.Drift).
		Msg("Price drifted since last analysis")

	ctx := context.Background()
	s.emit(ctx, interfaces.EventPriceStale, notice)
	s.emitView(ctx, view)
}

// Input setters. Numeric setters take raw user text and silently keep the
// prior value when it is not a non-negative number; they report whether the
// value was accepted.

// SetTicker sets the ticker, normalized to upper case
func (s *Service) SetTicker(ticker string) {
	s.updateInputs(func(in *models.SessionInputs) bool {
		in.Ticker = models.NormalizeTicker(ticker)
		return true
	})
}

// SetCurrentPrice sets the current price from raw text
func (s *Service) SetCurrentPrice(raw string) bool {
	return s.updateInputs(func(in *models.SessionInputs) bool {
		v, ok := parseNonNegative(raw)
		if !ok {
			return false
		}
		in.CurrentPrice = v
		return true
	})
}

// SetInvestmentAmount sets the planned investment. Empty text clears it.
func (s *Service) SetInvestmentAmount(raw string) bool {
	return s.updateInputs(func(in *models.SessionInputs) bool {
		return setOptional(&in.InvestmentAmount, raw)
	})
}

// SetPositionPrice sets the price of an existing position. Empty text clears it.
func (s *Service) SetPositionPrice(raw string) bool {
	return s.updateInputs(func(in *models.SessionInputs) bool {
		return setOptional(&in.PositionPrice, raw)
	})
}

// SetInvestmentHorizon sets the holding period, ignoring unknown values
func (s *Service) SetInvestmentHorizon(h models.InvestmentHorizon) bool {
	return s.updateInputs(func(in *models.SessionInputs) bool {
		if !h.IsValid() {
			return false
		}
		in.InvestmentHorizon = h
		return true
	})
}

// SetVolatilityPreference sets the volatility preference, ignoring unknown values
func (s *Service) SetVolatilityPreference(v models.VolatilityPreference) bool {
	return s.updateInputs(func(in *models.SessionInputs) bool {
		if !v.IsValid() {
			return false
		}
		in.VolatilityPreference = v
		return true
	})
}

// SetRiskTolerance sets the risk tolerance, ignoring unknown values
func (s *Service) SetRiskTolerance(r models.RiskTolerance) bool {
	return s.updateInputs(func(in *models.SessionInputs) bool {
		if !r.IsValid() {
			return false
		}
		in.RiskTolerance = r
		return true
	})
}

// ApplyInputs applies every non-nil field of u and returns the json names of
// the fields that were rejected.
func (s *Service) ApplyInputs(u models.InputUpdate) []string {
	var rejected []string
	check := func(field string, ok bool) {
		if !ok {
			rejected = append(rejected, field)
		}
	}

	if u.Ticker != nil {
		s.SetTicker(*u.Ticker)
	}
	if u.CurrentPrice != nil {
		check("currentPrice", s.SetCurrentPrice(*u.CurrentPrice))
	}
	if u.InvestmentAmount != nil {
		check("investmentAmount", s.SetInvestmentAmount(*u.InvestmentAmount))
	}
	if u.PositionPrice != nil {
		check("positionPrice", s.SetPositionPrice(*u.PositionPrice))
	}
	if u.InvestmentHorizon != nil {
		check("investmentHorizon", s.SetInvestmentHorizon(models.InvestmentHorizon(*u.InvestmentHorizon)))
	}
	if u.VolatilityPreference != nil {
		check("volatilityPreference", s.SetVolatilityPreference(models.VolatilityPreference(*u.VolatilityPreference)))
	}
	if u.RiskTolerance != nil {
		check("riskTolerance", s.SetRiskTolerance(models.RiskTolerance(*u.RiskTolerance)))
	}

	return rejected
}

func (s *Service) updateInputs(apply func(in *models.SessionInputs) bool) bool {
	s.mu.Lock()
	if !apply(&s.inputs) {
		s.mu.Unlock()
		return false
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.emitView(context.Background(), view)
	return true
}

func parseNonNegative(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func setOptional(field **float64, raw string) bool {
	if strings.TrimSpace(raw) == "" {
		*field = nil
		return true
	}
	v, ok := parseNonNegative(raw)
	if !ok {
		return false
	}
	*field = &v
	return true
}

// View returns a copy of everything a UI renders
func (s *Service) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Service) viewLocked() models.SessionView {
	sections, _ := s.cache.Get(s.language)

	var last *float64
	if s.lastAnalyzedPrice != nil {
		v := *s.lastAnalyzedPrice
		last = &v
	}

	s.revision++
	return models.SessionView{
		Revision:          s.revision,
		Inputs:            s.inputs.Clone(),
		Language:          s.language,
		Sections:          sections,
		CachedLanguages:   s.cache.Languages(),
		Strategy:          ExtractStrategy(sections),
		Analysis:          s.analysis,
		LanguageToggle:    s.toggle,
		Backtest:          s.backtest,
		BacktestResult:    s.backtestResult,
		LastAnalyzedPrice: last,
		PriceStale:        s.priceStale,
		FromCache:         s.fromCache,
		MonitorArmed:      s.monitorToken != 0,
	}
}

// Inputs returns a copy of the current inputs
func (s *Service) Inputs() models.SessionInputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs.Clone()
}

// Language returns the active analysis language
func (s *Service) Language() models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Strategy returns the strategy derived from the active language, or nil
func (s *Service) Strategy() *models.TradingStrategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	sections, _ := s.cache.Get(s.language)
	return ExtractStrategy(sections)
}

// IsPriceStale reports whether the stale notification is showing
func (s *Service) IsPriceStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priceStale
}

func (s *Service) emit(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.publishLocked(ctx, eventType, payload)
}

// emitView publishes a session_updated event unless a newer view has already
// gone out. Views are taken under s.mu but published after it is released.
func (s *Service) emitView(ctx context.Context, view models.SessionView) {
	if s.events == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if view.Revision < s.publishedRevision {
		s.logger.Debug().
			Int64("revision", int64(view.Revision)).
			Int64("published_revision", int64(s.publishedRevision)).
			Msg("Dropped superseded session view")
		return
	}
	s.publishedRevision = view.Revision
	s.publishLocked(ctx, interfaces.EventSessionUpdated, view)
}

func (s *Service) publishLocked(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if err := s.events.PublishSync(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Event delivery failed")
	}
}
