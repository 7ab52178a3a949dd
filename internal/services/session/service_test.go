package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
	"github.com/ternarybob/stocklens/internal/services/events"
)

func TestAnalyze_Success(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.Analyze(ctx))

	view := h.service.View()
	assert.Equal(t, models.LanguageChinese, view.Language)
	assert.Equal(t, sixSections(models.LanguageChinese), view.Sections)
	assert.Equal(t, []models.Language{models.LanguageChinese}, view.CachedLanguages)
	assert.Equal(t, models.OperationIdle, view.Analysis.Status)
	require.NotNil(t, view.LastAnalyzedPrice)
	assert.Equal(t, 178.88, *view.LastAnalyzedPrice)
	assert.True(t, view.MonitorArmed)
	assert.Equal(t, sampleStrategy(models.LanguageChinese), view.Strategy)

	assert.True(t, h.monitor.IsArmed())
	assert.Equal(t, 178.88, h.monitor.lastPrice)
	assert.True(t, h.store.has(testStorageKey), "snapshot persisted")
	assert.Equal(t, []models.Language{models.LanguageChinese}, h.provider.analysisCalls)
}

func TestAnalyze_ValidationErrorMakesNoRequest(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Service)
	}{
		{"empty ticker", func(s *Service) { s.SetTicker("  ") }},
		{"zero price", func(s *Service) { s.SetCurrentPrice("0") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h.service)

			err := h.service.Analyze(context.Background())

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 0, h.provider.analysisCount())

			view := h.service.View()
			assert.Equal(t, models.OperationError, view.Analysis.Status)
			assert.Equal(t, "请输入有效的股票代码和正数的实时价格。", view.Analysis.Error)
			assert.False(t, view.MonitorArmed)
		})
	}
}

func TestAnalyze_ProviderFailureIsRecoverable(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.provider.analysisErr[models.LanguageChinese] = errors.New("quota exceeded")

	err := h.service.Analyze(ctx)

	var perr *models.ProviderError
	require.True(t, errors.As(err, &perr))

	view := h.service.View()
	assert.Equal(t, models.OperationError, view.Analysis.Status)
	assert.Equal(t, "quota exceeded", view.Analysis.Error)
	assert.Empty(t, view.Sections)
	assert.False(t, view.MonitorArmed)
	assert.False(t, h.store.has(testStorageKey))

	// The error does not block the next attempt
	delete(h.provider.analysisErr, models.LanguageChinese)
	require.NoError(t, h.service.Analyze(ctx))

	view = h.service.View()
	assert.Equal(t, models.OperationIdle, view.Analysis.Status)
	assert.Empty(t, view.Analysis.Error)
	assert.Len(t, view.Sections, 6)
}

func TestAnalyze_ClearsBothLanguagesAndBacktest(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx))
	require.NoError(t, h.service.RunBacktest(ctx))
	require.Len(t, h.service.View().CachedLanguages, 2)

	require.NoError(t, h.service.Analyze(ctx))

	view := h.service.View()
	assert.Equal(t, models.LanguageEnglish, view.Language)
	assert.Equal(t, []models.Language{models.LanguageEnglish}, view.CachedLanguages)
	assert.Nil(t, view.BacktestResult)
}

func TestAnalyze_RejectsWhileInFlight(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.provider.block()

	done := make(chan error, 1)
	go func() { done <- h.service.Analyze(ctx) }()
	<-h.provider.started

	view := h.service.View()
	assert.True(t, view.Analysis.InFlight())
	assert.False(t, view.MonitorArmed)

	assert.ErrorIs(t, h.service.Analyze(ctx), models.ErrOperationInFlight)
	assert.ErrorIs(t, h.service.ToggleLanguage(ctx), models.ErrOperationInFlight)
	assert.Equal(t, models.LanguageChinese, h.service.Language())

	h.provider.release()
	require.NoError(t, <-done)

	view = h.service.View()
	assert.Equal(t, models.OperationIdle, view.Analysis.Status)
	assert.Equal(t, 1, h.provider.analysisCount())
}

func TestToggleLanguage_CachedTargetMakesNoRequest(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx))
	require.Equal(t, 2, h.provider.analysisCount())

	require.NoError(t, h.service.ToggleLanguage(ctx))
	assert.Equal(t, models.LanguageChinese, h.service.Language())
	require.NoError(t, h.service.ToggleLanguage(ctx))
	assert.Equal(t, models.LanguageEnglish, h.service.Language())

	assert.Equal(t, 2, h.provider.analysisCount())
	assert.Equal(t, sixSections(models.LanguageEnglish), h.service.View().Sections)
}

func TestToggleLanguage_PristineSessionDoesNotAnalyze(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.service.ToggleLanguage(context.Background()))

	assert.Equal(t, models.LanguageEnglish, h.service.Language())
	assert.Equal(t, 0, h.provider.analysisCount())
	assert.False(t, h.store.has(testStorageKey))
}

func TestToggleLanguage_FailureRevertsLanguage(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.RunBacktest(ctx))
	h.provider.analysisErr[models.LanguageEnglish] = errors.New("network unreachable")

	err := h.service.ToggleLanguage(ctx)

	var perr *models.ProviderError
	require.True(t, errors.As(err, &perr))

	view := h.service.View()
	assert.Equal(t, models.LanguageChinese, view.Language)
	assert.Equal(t, models.OperationError, view.LanguageToggle.Status)
	assert.Equal(t, "获取英文分析失败：network unreachable", view.LanguageToggle.Error)
	assert.Len(t, view.Sections, 6, "reverted language still has content")
	assert.Nil(t, view.BacktestResult, "backtest cleared by the toggle")
	assert.Equal(t, models.OperationIdle, view.Analysis.Status, "analysis slot untouched")
}

func TestToggleLanguage_FailureMessageInEnglish(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.ToggleLanguage(ctx)) // pristine switch to en
	require.NoError(t, h.service.Analyze(ctx))
	h.provider.analysisErr[models.LanguageChinese] = errors.New("bad gateway")

	require.Error(t, h.service.ToggleLanguage(ctx))

	view := h.service.View()
	assert.Equal(t, models.LanguageEnglish, view.Language)
	assert.Equal(t, "Failed to fetch Chinese analysis: bad gateway", view.LanguageToggle.Error)
}

func TestRunBacktest_NoStrategyFailsFast(t *testing.T) {
	h := newHarness()

	err := h.service.RunBacktest(context.Background())

	var nerr *models.NoStrategyError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, models.LanguageChinese, nerr.Language)
	assert.Equal(t, 0, h.provider.backtestCount())

	view := h.service.View()
	assert.Equal(t, models.OperationError, view.Backtest.Status)
	assert.Equal(t, "没有可用于回测的策略数据。", view.Backtest.Error)
}

func TestRunBacktest_ProviderFailure(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.ToggleLanguage(ctx))
	require.NoError(t, h.service.Analyze(ctx))
	h.provider.backtestErr = errors.New("timeout")

	err := h.service.RunBacktest(ctx)

	var perr *models.ProviderError
	require.True(t, errors.As(err, &perr))

	view := h.service.View()
	assert.Equal(t, "Backtest failed: timeout", view.Backtest.Error)
	assert.Nil(t, view.BacktestResult)
	assert.Equal(t, models.OperationIdle, view.Analysis.Status, "errors stay in their own slot")
}

func TestRunBacktest_RejectsWhileInFlight(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.service.Analyze(ctx))

	h.provider.block()
	done := make(chan error, 1)
	go func() { done <- h.service.RunBacktest(ctx) }()
	<-h.provider.started

	assert.ErrorIs(t, h.service.RunBacktest(ctx), models.ErrOperationInFlight)

	h.provider.release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.provider.backtestCount())
}

func TestRunBacktest_SupersededByToggle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx)) // back to zh, both cached

	h.provider.block()
	done := make(chan error, 1)
	go func() { done <- h.service.RunBacktest(ctx) }()
	<-h.provider.started

	// Backtest runs outside the cache domain, so the toggle is allowed
	require.NoError(t, h.service.ToggleLanguage(ctx))

	h.provider.release()
	assert.ErrorIs(t, <-done, models.ErrSuperseded)

	view := h.service.View()
	assert.Nil(t, view.BacktestResult)
	assert.Equal(t, models.OperationIdle, view.Backtest.Status)
}

func TestEndToEnd(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.service.SetTicker("nvda")
	require.True(t, h.service.SetCurrentPrice("178.88"))

	require.NoError(t, h.service.Analyze(ctx))
	view := h.service.View()
	assert.Equal(t, sixSections(models.LanguageChinese), view.Sections)
	assert.Equal(t, 178.88, *view.LastAnalyzedPrice)
	assert.True(t, view.MonitorArmed)

	require.NoError(t, h.service.ToggleLanguage(ctx))
	view = h.service.View()
	assert.Equal(t, models.LanguageEnglish, view.Language)
	assert.Equal(t, sixSections(models.LanguageEnglish), view.Sections)
	assert.Nil(t, view.BacktestResult)

	require.NoError(t, h.service.RunBacktest(ctx))
	view = h.service.View()
	assert.Same(t, h.provider.backtest, view.BacktestResult)
	assert.Equal(t, *sampleStrategy(models.LanguageEnglish), h.provider.backtestCalls[0])
}

func TestReset(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.service.SetTicker("AAPL")
	require.True(t, h.service.SetCurrentPrice("200"))
	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx))
	require.NoError(t, h.service.RunBacktest(ctx))

	require.NoError(t, h.service.Reset(ctx))

	view := h.service.View()
	assert.Equal(t, defaultInputs(), view.Inputs)
	assert.Equal(t, models.LanguageChinese, view.Language)
	assert.Empty(t, view.Sections)
	assert.Empty(t, view.CachedLanguages)
	assert.Nil(t, view.BacktestResult)
	assert.Nil(t, view.LastAnalyzedPrice)
	assert.False(t, view.MonitorArmed)
	assert.False(t, h.monitor.IsArmed())
	assert.Equal(t, models.OperationIdle, view.Analysis.Status)
	assert.Equal(t, models.OperationIdle, view.Backtest.Status)
	assert.False(t, h.store.has(testStorageKey))
}

func TestReset_DiscardsInFlightAnalysis(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.provider.block()

	done := make(chan error, 1)
	go func() { done <- h.service.Analyze(ctx) }()
	<-h.provider.started

	require.NoError(t, h.service.Reset(ctx))
	assert.Equal(t, models.OperationIdle, h.service.View().Analysis.Status)

	h.provider.release()
	assert.ErrorIs(t, <-done, models.ErrSuperseded)

	view := h.service.View()
	assert.Empty(t, view.Sections)
	assert.False(t, view.MonitorArmed)
	assert.False(t, h.store.has(testStorageKey))
}

func TestPriceStale_LatchesAndReanalyzeRearms(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.service.Analyze(ctx))

	token := h.monitor.currentToken()
	h.monitor.fire(token, 182.50)

	view := h.service.View()
	assert.True(t, view.PriceStale)
	assert.Equal(t, 182.50, view.Inputs.CurrentPrice)
	assert.Equal(t, 178.88, *view.LastAnalyzedPrice)
	assert.False(t, view.MonitorArmed)

	// A second delivery for the same arming is ignored
	h.monitor.fire(token, 190)
	assert.Equal(t, 182.50, h.service.Inputs().CurrentPrice)

	require.NoError(t, h.service.Reanalyze(ctx))

	view = h.service.View()
	assert.False(t, view.PriceStale)
	assert.Equal(t, 182.50, *view.LastAnalyzedPrice)
	assert.True(t, view.MonitorArmed)
	assert.Equal(t, 2, h.monitor.armCount)
}

func TestPriceStale_IgnoresReplacedArming(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.service.Analyze(ctx))
	oldToken := h.monitor.currentToken()

	require.NoError(t, h.service.Analyze(ctx))
	h.monitor.fire(oldToken, 150)

	assert.False(t, h.service.IsPriceStale())
	assert.Equal(t, 178.88, h.service.Inputs().CurrentPrice)

	require.NoError(t, h.service.Reset(ctx))
	h.monitor.fire(h.monitor.currentToken(), 150)
	assert.False(t, h.service.IsPriceStale())
}

func TestDismissStaleNotification(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.service.Analyze(ctx))
	h.monitor.fire(h.monitor.currentToken(), 170)
	require.True(t, h.service.IsPriceStale())

	h.service.DismissStaleNotification(ctx)

	assert.False(t, h.service.IsPriceStale())
	assert.Equal(t, 170.0, h.service.Inputs().CurrentPrice)
	assert.Equal(t, 1, h.provider.analysisCount())
}

func TestSetters_RejectInvalidInputSilently(t *testing.T) {
	h := newHarness()
	s := h.service

	assert.False(t, s.SetCurrentPrice("abc"))
	assert.False(t, s.SetCurrentPrice("-5"))
	assert.False(t, s.SetCurrentPrice("NaN"))
	assert.Equal(t, 178.88, s.Inputs().CurrentPrice)

	assert.True(t, s.SetCurrentPrice(" 181.25 "))
	assert.Equal(t, 181.25, s.Inputs().CurrentPrice)

	assert.True(t, s.SetInvestmentAmount("10000"))
	assert.False(t, s.SetInvestmentAmount("-1"))
	require.NotNil(t, s.Inputs().InvestmentAmount)
	assert.Equal(t, 10000.0, *s.Inputs().InvestmentAmount)
	assert.True(t, s.SetInvestmentAmount(""))
	assert.Nil(t, s.Inputs().InvestmentAmount)

	assert.True(t, s.SetPositionPrice("150"))
	assert.Equal(t, 150.0, *s.Inputs().PositionPrice)

	assert.False(t, s.SetInvestmentHorizon("forever"))
	assert.True(t, s.SetInvestmentHorizon(models.HorizonLong))
	assert.False(t, s.SetVolatilityPreference("extreme"))
	assert.True(t, s.SetVolatilityPreference(models.VolatilityLow))
	assert.False(t, s.SetRiskTolerance("reckless"))
	assert.True(t, s.SetRiskTolerance(models.RiskAggressive))

	s.SetTicker(" tsla ")
	in := s.Inputs()
	assert.Equal(t, "TSLA", in.Ticker)
	assert.Equal(t, models.HorizonLong, in.InvestmentHorizon)
	assert.Equal(t, models.VolatilityLow, in.VolatilityPreference)
	assert.Equal(t, models.RiskAggressive, in.RiskTolerance)
}

func TestApplyInputs(t *testing.T) {
	h := newHarness()
	str := func(s string) *string { return &s }

	rejected := h.service.ApplyInputs(models.InputUpdate{
		Ticker:            str("msft"),
		CurrentPrice:      str("oops"),
		InvestmentAmount:  str("2500"),
		InvestmentHorizon: str("short"),
		RiskTolerance:     str("unknown"),
	})

	assert.Equal(t, []string{"currentPrice", "riskTolerance"}, rejected)

	in := h.service.Inputs()
	assert.Equal(t, "MSFT", in.Ticker)
	assert.Equal(t, 178.88, in.CurrentPrice)
	assert.Equal(t, 2500.0, *in.InvestmentAmount)
	assert.Equal(t, models.HorizonShort, in.InvestmentHorizon)
	assert.Equal(t, models.RiskBalanced, in.RiskTolerance)
}

func TestRestore(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.service.SetTicker("AMD")
	require.True(t, h.service.SetCurrentPrice("150"))
	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx))
	// Edits after the analysis are not persisted with it
	h.service.SetTicker("INTC")

	// A fresh process over the same store
	monitor := &fakeMonitor{}
	logger := arbor.NewNoOpLogger()
	restored := NewService(Options{
		Provider:    h.provider,
		Persistence: NewPersistence(h.store, testStorageKey, logger),
		Monitor:     monitor,
		SamplerFactory: func(base float64) interfaces.PriceSampler {
			return interfaces.PriceSamplerFunc(func(ctx context.Context) (float64, error) { return base, nil })
		},
		Defaults:        defaultInputs(),
		DefaultLanguage: models.LanguageChinese,
	}, logger)

	require.True(t, restored.Restore(ctx))

	view := restored.View()
	assert.True(t, view.FromCache)
	assert.Equal(t, "AMD", view.Inputs.Ticker)
	assert.Equal(t, 150.0, *view.LastAnalyzedPrice)
	assert.Equal(t, models.LanguageEnglish, view.Language)
	assert.Len(t, view.CachedLanguages, 2)
	assert.True(t, view.MonitorArmed)
	assert.True(t, monitor.IsArmed())
	assert.Equal(t, 150.0, monitor.lastPrice)

	// Cached toggles after restore make no requests
	calls := h.provider.analysisCount()
	require.NoError(t, restored.ToggleLanguage(ctx))
	assert.Equal(t, calls, h.provider.analysisCount())

	// The next analysis clears the from-cache flag
	require.NoError(t, restored.Analyze(ctx))
	assert.False(t, restored.View().FromCache)
}

func TestRestore_IncompatibleSnapshotStartsFresh(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.Set(context.Background(), testStorageKey, `{"ticker":"NVDA","cachedAnalyses":{}}`))

	assert.False(t, h.service.Restore(context.Background()))
	assert.False(t, h.store.has(testStorageKey))
	assert.False(t, h.service.View().FromCache)
	assert.Equal(t, defaultInputs(), h.service.Inputs())
}

func TestRestore_NoSnapshot(t *testing.T) {
	h := newHarness()
	assert.False(t, h.service.Restore(context.Background()))
}

func TestEventsPublished(t *testing.T) {
	bus := events.NewService(arbor.NewNoOpLogger())
	h := newHarness()
	h.service.events = bus

	var received []interfaces.EventType
	record := func(ctx context.Context, e interfaces.Event) error {
		received = append(received, e.Type)
		return nil
	}
	for _, et := range []interfaces.EventType{
		interfaces.EventAnalysisCompleted,
		interfaces.EventLanguageChanged,
		interfaces.EventBacktestCompleted,
		interfaces.EventPriceStale,
		interfaces.EventSessionReset,
	} {
		require.NoError(t, bus.Subscribe(et, record))
	}

	ctx := context.Background()
	require.NoError(t, h.service.Analyze(ctx))
	require.NoError(t, h.service.ToggleLanguage(ctx))
	require.NoError(t, h.service.RunBacktest(ctx))
	h.monitor.fire(h.monitor.currentToken(), 250)
	require.NoError(t, h.service.Reset(ctx))

	assert.Equal(t, []interfaces.EventType{
		interfaces.EventAnalysisCompleted,
		interfaces.EventLanguageChanged,
		interfaces.EventBacktestCompleted,
		interfaces.EventPriceStale,
		interfaces.EventSessionReset,
	}, received)
}

func TestAnalyze_ClearsPreviousToggleError(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.Analyze(ctx))
	h.provider.analysisErr[models.LanguageEnglish] = errors.New("boom")
	require.Error(t, h.service.ToggleLanguage(ctx))
	require.Equal(t, models.OperationError, h.service.View().LanguageToggle.Status)

	delete(h.provider.analysisErr, models.LanguageEnglish)
	require.NoError(t, h.service.Analyze(ctx))

	view := h.service.View()
	assert.Equal(t, models.OperationIdle, view.LanguageToggle.Status)
	assert.Empty(t, view.LanguageToggle.Error)
	assert.Equal(t, models.OperationIdle, view.Analysis.Status)
}

func TestSessionUpdated_NeverStepsBackToOlderState(t *testing.T) {
	bus := events.NewService(arbor.NewNoOpLogger())
	h := newHarness()
	h.service.events = bus

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var first sync.Once
	var mu sync.Mutex
	var delivered []models.SessionView

	require.NoError(t, bus.Subscribe(interfaces.EventSessionUpdated, func(ctx context.Context, e interfaces.Event) error {
		stall := false
		first.Do(func() { stall = true })
		if stall {
			close(entered)
			<-unblock
		}
		mu.Lock()
		delivered = append(delivered, e.Payload.(models.SessionView))
		mu.Unlock()
		return nil
	}))

	revision := func() uint64 {
		h.service.mu.Lock()
		defer h.service.mu.Unlock()
		return h.service.revision
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		h.service.SetTicker("ZZZ")
	}()
	<-entered
	base := revision()

	// Both views are taken while the first delivery is still stalled
	go func() {
		defer wg.Done()
		h.service.SetTicker("AAA")
	}()
	require.Eventually(t, func() bool { return revision() >= base+1 }, time.Second, time.Millisecond)
	go func() {
		defer wg.Done()
		h.service.SetTicker("BBB")
	}()
	require.Eventually(t, func() bool { return revision() >= base+2 }, time.Second, time.Millisecond)

	close(unblock)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, delivered)
	assert.Equal(t, "BBB", delivered[len(delivered)-1].Inputs.Ticker)
	for i := 1; i < len(delivered); i++ {
		assert.Greater(t, delivered[i].Revision, delivered[i-1].Revision)
	}
	assert.Equal(t, "BBB", h.service.View().Inputs.Ticker)
}

func TestView_RevisionIncreases(t *testing.T) {
	h := newHarness()

	first := h.service.View()
	h.service.SetTicker("AMD")
	second := h.service.View()

	assert.Greater(t, second.Revision, first.Revision)
}
