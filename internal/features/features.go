// Package features assembles the per-timestep derived signals consumed
// by the predictor and the strategy selector.
package features

import (
	"regime-trading-bot/internal/indicators"
	"regime-trading-bot/internal/market"
)

// Periods used to derive a snapshot. WarmUp is the minimum history for
// every value to be computed from real data rather than a neutral
// default.
const (
	MomentumPeriod      = 10
	ShortMomentumPeriod = 3
	TrendSlopePeriod    = 10
	ATRPeriod           = 14
	ATRAveragePeriod    = 30
	ShortEMAPeriod      = 9
	LongEMAPeriod       = 21
	SMAPeriod           = 20
	VolumeAvgPeriod     = 20
	RSIPeriod           = 14

	WarmUp = ATRAveragePeriod + ATRPeriod + 1
)

// Snapshot holds the derived values at one timestep. Snapshots are pure
// functions of a series prefix and never mutated after creation.
type Snapshot struct {
	Momentum           float64 `json:"momentum"`            // % change over MomentumPeriod days
	ShortMomentum      float64 `json:"short_momentum"`      // % change over 3 days
	TrendSlope         float64 `json:"trend_slope"`         // linear change rate per day
	ATR                float64 `json:"atr"`                 // average true range
	MomentumDivergence float64 `json:"momentum_divergence"` // short minus long momentum
	VolAdjMomentum     float64 `json:"vol_adj_momentum"`    // momentum / atr
	TrendStrength      float64 `json:"trend_strength"`      // trendSlope x volAdjMomentum
	ATRBreakout        float64 `json:"atr_breakout"`        // atr / rolling atr average

	ShortEMA       float64 `json:"short_ema"`
	LongEMA        float64 `json:"long_ema"`
	SMA            float64 `json:"sma"`
	PriceDeviation float64 `json:"price_deviation"` // (price - sma) / sma
	RSI            float64 `json:"rsi"`

	AvgVolume     float64 `json:"avg_volume"`
	CurrentVolume float64 `json:"current_volume"`
	Price         float64 `json:"price"`
}

// Compute derives a snapshot from the trailing window of s.
func Compute(s market.Series) Snapshot {
	if len(s) == 0 {
		return Snapshot{RSI: 50}
	}

	snap := Snapshot{
		Momentum:      indicators.Momentum(s, MomentumPeriod),
		ShortMomentum: indicators.Momentum(s, ShortMomentumPeriod),
		TrendSlope:    indicators.TrendSlope(s, TrendSlopePeriod),
		ATR:           indicators.ATR(s, ATRPeriod),
		ShortEMA:      indicators.EMA(s, ShortEMAPeriod),
		LongEMA:       indicators.EMA(s, LongEMAPeriod),
		SMA:           indicators.SMA(s, SMAPeriod),
		RSI:           indicators.RSI(s, RSIPeriod),
		AvgVolume:     indicators.AverageVolume(s, VolumeAvgPeriod),
		CurrentVolume: s.Last().Volume,
		Price:         s.Last().Price,
	}

	longMomentum := indicators.Momentum(s, MomentumPeriod*2)
	snap.MomentumDivergence = snap.ShortMomentum - longMomentum

	if snap.ATR > 0 {
		snap.VolAdjMomentum = snap.Momentum / snap.ATR
	}

	snap.TrendStrength = snap.TrendSlope * snap.VolAdjMomentum

	snap.ATRBreakout = atrBreakoutRatio(s)

	if snap.SMA > 0 {
		snap.PriceDeviation = (snap.Price - snap.SMA) / snap.SMA
	}

	return snap
}

// atrBreakoutRatio divides the current ATR by its rolling average over
// ATRAveragePeriod preceding windows. A ratio above 1 means volatility
// is expanding. The raw range is used here, without the ATR floor, so a
// perfectly flat series yields 0 rather than a spurious ratio of 1.
func atrBreakoutRatio(s market.Series) float64 {
	if len(s) < ATRAveragePeriod+ATRPeriod+1 {
		return 0
	}

	current := rawRange(s, ATRPeriod)

	sum := 0.0
	for back := 1; back <= ATRAveragePeriod; back++ {
		sum += rawRange(s[:len(s)-back], ATRPeriod)
	}
	avg := sum / float64(ATRAveragePeriod)

	if avg == 0 {
		return 0
	}
	return current / avg
}

// rawRange is the mean absolute day-over-day move without the floor
// applied by indicators.ATR.
func rawRange(s market.Series, period int) float64 {
	if len(s) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(s) - period; i < len(s); i++ {
		d := s[i].Price - s[i-1].Price
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(period)
}
