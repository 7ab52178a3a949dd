package interfaces

import "context"

// PriceSampler returns a fresh market price for the monitored ticker.
type PriceSampler interface {
	Sample(ctx context.Context) (float64, error)
}

// PriceSamplerFunc adapts a function to PriceSampler.
type PriceSamplerFunc func(ctx context.Context) (float64, error)

func (f PriceSamplerFunc) Sample(ctx context.Context) (float64, error) {
	return f(ctx)
}

// SamplerFactory builds a sampler anchored on the last analyzed price.
type SamplerFactory func(basePrice float64) PriceSampler

// MonitorToken identifies one arming of a PriceMonitor. Zero means disarmed.
type MonitorToken uint64

// StaleHandler receives the drifted price. token is the arming that raised it.
type StaleHandler func(token MonitorToken, price float64)

// PriceMonitor watches for drift away from the last analyzed price and
// raises a one-shot stale notification.
type PriceMonitor interface {
	// Arm starts periodic sampling, replacing any previous arming.
	Arm(lastAnalyzedPrice float64, sampler PriceSampler, onStale StaleHandler) MonitorToken

	// Disarm stops sampling. Safe to call when never armed.
	Disarm()

	// IsArmed reports whether sampling is active.
	IsArmed() bool
}
