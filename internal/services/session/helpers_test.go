package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
)

const testStorageKey = "aiStockAnalyzerCache"

// memoryStore is an in-memory KeyValueStore
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryStore) List(_ context.Context) ([]interfaces.KeyValuePair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairs := make([]interfaces.KeyValuePair, 0, len(m.values))
	for k, v := range m.values {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// fakeProvider returns canned results. When gate is set, calls block until it
// is closed or receives a value.
type fakeProvider struct {
	mu            sync.Mutex
	analysisCalls []models.Language
	backtestCalls []models.TradingStrategy
	analysisErr   map[models.Language]error
	backtestErr   error
	backtest      *models.BacktestResult
	gate          chan struct{}
	started       chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		analysisErr: make(map[models.Language]error),
		backtest:    sampleBacktest(),
	}
}

// block makes the next calls wait until release is called. started receives
// one value per blocked call.
func (p *fakeProvider) block() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = make(chan struct{})
	p.started = make(chan struct{}, 8)
}

func (p *fakeProvider) release() {
	p.mu.Lock()
	gate := p.gate
	p.gate = nil
	p.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (p *fakeProvider) wait() {
	p.mu.Lock()
	gate, started := p.gate, p.started
	p.mu.Unlock()
	if gate == nil {
		return
	}
	started <- struct{}{}
	<-gate
}

func (p *fakeProvider) GetAnalysis(ctx context.Context, inputs models.SessionInputs, lang models.Language) ([]models.AnalysisSection, error) {
	p.mu.Lock()
	p.analysisCalls = append(p.analysisCalls, lang)
	err := p.analysisErr[lang]
	p.mu.Unlock()

	p.wait()

	if err != nil {
		return nil, err
	}
	return sixSections(lang), nil
}

func (p *fakeProvider) GetBacktest(ctx context.Context, ticker string, strategy models.TradingStrategy, lang models.Language) (*models.BacktestResult, error) {
	p.mu.Lock()
	p.backtestCalls = append(p.backtestCalls, strategy)
	err := p.backtestErr
	result := p.backtest
	p.mu.Unlock()

	p.wait()

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *fakeProvider) analysisCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.analysisCalls)
}

func (p *fakeProvider) backtestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backtestCalls)
}

// fakeMonitor records arming and lets tests fire the stale callback by hand
type fakeMonitor struct {
	mu        sync.Mutex
	token     interfaces.MonitorToken
	armed     bool
	lastPrice float64
	onStale   interfaces.StaleHandler
	armCount  int
}

func (m *fakeMonitor) Arm(lastPrice float64, sampler interfaces.PriceSampler, onStale interfaces.StaleHandler) interfaces.MonitorToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token++
	m.armed = true
	m.lastPrice = lastPrice
	m.onStale = onStale
	m.armCount++
	return m.token
}

func (m *fakeMonitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

func (m *fakeMonitor) IsArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// fire delivers a stale price for the given arming
func (m *fakeMonitor) fire(token interfaces.MonitorToken, price float64) {
	m.mu.Lock()
	handler := m.onStale
	m.armed = false
	m.mu.Unlock()
	handler(token, price)
}

func (m *fakeMonitor) currentToken() interfaces.MonitorToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func defaultInputs() models.SessionInputs {
	return models.SessionInputs{
		Ticker:               "NVDA",
		CurrentPrice:         178.88,
		InvestmentHorizon:    models.HorizonMedium,
		VolatilityPreference: models.VolatilityMedium,
		RiskTolerance:        models.RiskBalanced,
	}
}

type testHarness struct {
	service  *Service
	provider *fakeProvider
	monitor  *fakeMonitor
	store    *memoryStore
}

func newHarness() *testHarness {
	provider := newFakeProvider()
	monitor := &fakeMonitor{}
	store := newMemoryStore()
	logger := arbor.NewNoOpLogger()

	service := NewService(Options{
		Provider:    provider,
		Persistence: NewPersistence(store, testStorageKey, logger),
		Monitor:     monitor,
		SamplerFactory: func(base float64) interfaces.PriceSampler {
			return interfaces.PriceSamplerFunc(func(ctx context.Context) (float64, error) { return base, nil })
		},
		Defaults:        defaultInputs(),
		DefaultLanguage: models.LanguageChinese,
	}, logger)

	return &testHarness{service: service, provider: provider, monitor: monitor, store: store}
}

func sampleStrategy(lang models.Language) *models.TradingStrategy {
	return &models.TradingStrategy{
		EntryRange:          "$170.00 - $175.00",
		AveragingDownRange1: "$160.00 - $165.00",
		AveragingDownRange2: "$150.00 - $155.00",
		ScalingInRange1:     "$185.00 - $190.00",
		ScalingInRange2:     "$195.00 - $200.00",
		StopLoss:            "$145.00",
		ProfitTarget1:       "$210.00",
		ProfitTarget2:       "$230.00 (" + string(lang) + ")",
	}
}

// sixSections returns an analysis in the fixed section order with the
// strategy on the sixth section
func sixSections(lang models.Language) []models.AnalysisSection {
	icons := []models.Icon{
		models.IconPriceTag,
		models.IconBeaker,
		models.IconChartBar,
		models.IconNewspaper,
		models.IconChartPie,
		models.IconTrendingUp,
	}

	sections := make([]models.AnalysisSection, len(icons))
	for i, icon := range icons {
		sections[i] = models.AnalysisSection{
			Title:   fmt.Sprintf("%s section %d", lang, i+1),
			Icon:    icon,
			Content: fmt.Sprintf("<p>%s content %d</p>", lang, i+1),
		}
	}
	sections[5].Strategy = sampleStrategy(lang)
	return sections
}

func sampleBacktest() *models.BacktestResult {
	summary := models.NewBacktestSummary()
	summary.Set("Simulation Period", "2024-01-02 to 2024-06-28")
	summary.Set("Total Trades", "4")
	summary.Set("Net P/L (%)", "12.5")

	return &models.BacktestResult{
		Summary:   summary,
		Narrative: "<p>Entered twice.</p>",
		Verdict:   "<p>Profitable.</p>",
		ChartData: []models.ChartPoint{
			{Date: "2024-01-02", Value: 10000},
			{Date: "2024-01-03", Value: 10120.5},
		},
	}
}
