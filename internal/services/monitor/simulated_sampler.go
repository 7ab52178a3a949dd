package monitor

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/ternarybob/stocklens/internal/interfaces"
)

// DefaultVolatility is the largest relative move of one simulated tick (±1.5%)
const DefaultVolatility = 0.015

// SimulatedSampler perturbs a base price by a uniform random move of up to
// ±volatility per sample. It stands in for a market data feed.
type SimulatedSampler struct {
	mu         sync.Mutex
	basePrice  float64
	volatility float64
	rng        *rand.Rand
}

// NewSimulatedSampler creates a sampler around basePrice. A nil rng uses a
// randomly seeded source.
func NewSimulatedSampler(basePrice, volatility float64, rng *rand.Rand) *SimulatedSampler {
	if volatility < 0 {
		volatility = DefaultVolatility
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedSampler{basePrice: basePrice, volatility: volatility, rng: rng}
}

// Sample returns basePrice moved by up to ±volatility, rounded to cents
func (s *SimulatedSampler) Sample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	move := (s.rng.Float64() - 0.5) * 2
	s.mu.Unlock()

	price := s.basePrice + s.basePrice*s.volatility*move
	return math.Round(price*100) / 100, nil
}

// SimulatedSamplerFactory returns a SamplerFactory producing SimulatedSamplers
func SimulatedSamplerFactory(volatility float64) interfaces.SamplerFactory {
	return func(basePrice float64) interfaces.PriceSampler {
		return NewSimulatedSampler(basePrice, volatility, nil)
	}
}
