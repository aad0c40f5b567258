package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"regime-trading-bot/internal/market"
)

// Mock generates deterministic simulated history for development and
// tests. The same symbol always yields the same series.
type Mock struct {
	basePrice float64
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{basePrice: 1000}
}

func (m *Mock) Name() string {
	return "mock"
}

// FetchSeries returns a synthetic daily series with a mild upward
// drift, a cyclical swing and symbol-seeded noise.
func (m *Mock) FetchSeries(_ context.Context, symbol string, days int) (market.Series, error) {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	base := m.basePrice * (0.5 + rng.Float64())
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -days+1)

	series := make(market.Series, days)
	price := base
	for i := 0; i < days; i++ {
		drift := 0.0005
		cycle := 0.01 * math.Sin(float64(i)/9)
		noise := (rng.Float64() - 0.5) * 0.02
		price *= 1 + drift + cycle + noise
		series[i] = market.Point{
			Time:   start.AddDate(0, 0, i),
			Price:  price,
			Volume: base * 1000 * (0.8 + 0.4*rng.Float64()),
		}
	}
	return series, nil
}
