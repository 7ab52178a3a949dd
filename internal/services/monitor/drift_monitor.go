package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/common"
	"github.com/ternarybob/stocklens/internal/interfaces"
)

const (
	// DefaultInterval is the sampling period used when none is configured
	DefaultInterval = 15 * time.Second
	// DefaultDriftThreshold is the relative move that marks an analysis stale
	DefaultDriftThreshold = 0.01
)

// DriftMonitor samples a price on a cron schedule and raises a one-shot stale
// notification once it drifts past the threshold from the armed base price.
// After notifying it disarms itself until armed again.
type DriftMonitor struct {
	mu        sync.Mutex
	cron      *cron.Cron
	interval  time.Duration
	threshold float64
	logger    arbor.ILogger

	token     interfaces.MonitorToken
	nextToken interfaces.MonitorToken
	entry     cron.EntryID
	basePrice float64
	sampler   interfaces.PriceSampler
	onStale   interfaces.StaleHandler
}

// NewDriftMonitor creates a running monitor with nothing armed.
// Non-positive interval or threshold fall back to the defaults.
func NewDriftMonitor(interval time.Duration, threshold float64, logger arbor.ILogger) *DriftMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold <= 0 {
		threshold = DefaultDriftThreshold
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Start()

	return &DriftMonitor{
		cron:      c,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Drift returns the relative distance of sample from base. A non-positive base yields 0.
func Drift(sample, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Abs(sample-base) / base
}

// Arm starts sampling against lastAnalyzedPrice, replacing any previous arming
func (m *DriftMonitor) Arm(lastAnalyzedPrice float64, sampler interfaces.PriceSampler, onStale interfaces.StaleHandler) interfaces.MonitorToken {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked()

	m.nextToken++
	tok := m.nextToken
	m.token = tok
	m.basePrice = lastAnalyzedPrice
	m.sampler = sampler
	m.onStale = onStale
	m.entry = m.cron.Schedule(cron.Every(m.interval), cron.FuncJob(func() { m.tick(tok) }))

	m.logger.Debug().
		Float64("base_price", lastAnalyzedPrice).
		Dur("interval", m.interval).
		Msg("Price drift monitor armed")

	return tok
}

// Disarm stops sampling. Safe to call when never armed.
// A tick already sampling when Disarm returns will not deliver.
func (m *DriftMonitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != 0 {
		m.logger.Debug().Msg("Price drift monitor disarmed")
	}
	m.removeLocked()
}

// IsArmed reports whether sampling is active
func (m *DriftMonitor) IsArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != 0
}

// Close disarms and stops the scheduler, waiting for running ticks to finish
// or ctx to expire.
func (m *DriftMonitor) Close(ctx context.Context) error {
	m.Disarm()

	done := m.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *DriftMonitor) removeLocked() {
	if m.entry != 0 {
		m.cron.Remove(m.entry)
		m.entry = 0
	}
	m.token = 0
	m.sampler = nil
	m.onStale = nil
}

// tick samples once for the arming identified by tok
func (m *DriftMonitor) tick(tok interfaces.MonitorToken) {
	defer common.RecoverPanic(m.logger, "price-drift-tick")

	m.mu.Lock()
	if m.token != tok {
		m.mu.Unlock()
		return
	}
	sampler := m.sampler
	base := m.basePrice
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	price, err := sampler.Sample(ctx)
	cancel()
	if err != nil {
		m.logger.Warn().Err(err).Msg("Price sample failed")
		return
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		m.logger.Warn().Float64("price", price).Msg("Ignoring invalid price sample")
		return
	}

	drift := Drift(price, base)
	if drift <= m.threshold {
		return
	}

	m.mu.Lock()
	if m.token != tok {
		m.mu.Unlock()
		return
	}
	onStale := m.onStale
	m.removeLocked()
	m.mu.Unlock()

	m.logger.Info().
		Float64("price", price).
		Float64("base_price", base).
		Float64("drift", drift).
		Msg("Price drift threshold exceeded, monitor disarmed")

	if onStale != nil {
		onStale(tok, price)
	}
}
