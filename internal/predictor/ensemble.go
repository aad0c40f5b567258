package predictor

import (
	"context"
	"math"

	"regime-trading-bot/internal/features"
	"regime-trading-bot/internal/indicators"
	"regime-trading-bot/internal/market"
)

// EnsembleConfig weights the individual signal families.
type EnsembleConfig struct {
	MomentumWeight      float64 `json:"momentum_weight"`
	MeanReversionWeight float64 `json:"mean_reversion_weight"`
	VolumeWeight        float64 `json:"volume_weight"`
	TrendWeight         float64 `json:"trend_weight"`
	ReferenceWeight     float64 `json:"reference_weight"`
}

// DefaultEnsembleConfig returns the default weights.
func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		MomentumWeight:      0.25,
		MeanReversionWeight: 0.15,
		VolumeWeight:        0.15,
		TrendWeight:         0.25,
		ReferenceWeight:     0.20,
	}
}

// Ensemble is the default deterministic predictor: a weighted
// combination of momentum, mean-reversion, volume, trend, and
// reference-asset signals mapped to buy/sell probabilities. The
// mean-reversion family also reads completed chart patterns as
// reversal evidence. Identical inputs always yield identical output.
type Ensemble struct {
	config EnsembleConfig
}

// NewEnsemble creates the default predictor.
func NewEnsemble(config EnsembleConfig) *Ensemble {
	return &Ensemble{config: config}
}

// Predict implements Predictor.
func (e *Ensemble) Predict(_ context.Context, primary, reference market.Series) (*Prediction, error) {
	if err := validate(primary, reference); err != nil {
		return nil, err
	}

	snap := features.Compute(primary)

	score := e.momentumSignal(primary, snap)*e.config.MomentumWeight +
		e.meanReversionSignal(primary, snap)*e.config.MeanReversionWeight +
		e.volumeSignal(primary, snap)*e.config.VolumeWeight +
		e.trendSignal(snap)*e.config.TrendWeight +
		e.referenceSignal(reference)*e.config.ReferenceWeight

	score = clamp(score, -1, 1)

	buyProb := 0.5 + score/2
	sellProb := 1 - buyProb

	return &Prediction{
		BuyProb:    buyProb,
		SellProb:   sellProb,
		Confidence: math.Max(buyProb, sellProb),
		Features:   snap,
	}, nil
}

// momentumSignal combines short and volatility-adjusted momentum with
// MACD histogram confirmation.
func (e *Ensemble) momentumSignal(s market.Series, snap features.Snapshot) float64 {
	signal := clamp(snap.ShortMomentum/2.0, -1, 1)*0.4 +
		clamp(snap.VolAdjMomentum/1.5, -1, 1)*0.4

	if snap.Price > 0 {
		macd := indicators.MACD(s, 12, 26, 9)
		signal += clamp(macd.Histogram/(snap.Price*0.005), -1, 1) * 0.2
	}

	return clamp(signal, -1, 1)
}

// meanReversionSignal leans against stretched prices: RSI and
// stochastic RSI extremes, Bollinger band position, position inside
// the recent retracement range, and completed reversal patterns.
func (e *Ensemble) meanReversionSignal(s market.Series, snap features.Snapshot) float64 {
	signal := 0.0

	if snap.RSI > 70 {
		signal -= (snap.RSI - 70) / 30
	} else if snap.RSI < 30 {
		signal += (30 - snap.RSI) / 30
	}

	signal -= clamp(snap.PriceDeviation/0.05, -1, 1) * 0.5

	bands := indicators.Bollinger(s, features.SMAPeriod, 2)
	if bands.Upper > bands.Middle {
		signal -= clamp((snap.Price-bands.Middle)/(bands.Upper-bands.Middle), -1, 1) * 0.3
	}

	stoch := indicators.StochRSI(s, features.RSIPeriod)
	if stoch > 0.8 {
		signal -= (stoch - 0.8) / 0.2 * 0.3
	} else if stoch < 0.2 {
		signal += (0.2 - stoch) / 0.2 * 0.3
	}

	fib := indicators.Fibonacci(s, features.SMAPeriod)
	if r := fib.Level0 - fib.Level100; r > 0 {
		signal -= ((snap.Price-fib.Level100)/r - 0.5) * 0.4
	}

	signal += patternContext(s)

	return clamp(signal, -1, 1)
}

// patternContext scores completed chart patterns: tops and a broken
// head-and-shoulders are bearish, a confirmed triple bottom is bullish.
func patternContext(s market.Series) float64 {
	signal := 0.0
	for _, p := range indicators.DetectChartPatterns(s) {
		if p == indicators.PatternTripleBottom {
			signal += 0.6
		} else {
			signal -= 0.6
		}
	}
	return clamp(signal, -1, 1)
}

// volumeSignal rewards volume expansion in the direction of price,
// accumulation on balance and price holding above VWAP.
func (e *Ensemble) volumeSignal(s market.Series, snap features.Snapshot) float64 {
	if snap.AvgVolume == 0 {
		return 0
	}

	ratio := snap.CurrentVolume / snap.AvgVolume
	osc := indicators.VolumeOscillator(s, 5, features.VolumeAvgPeriod)

	direction := 1.0
	if snap.ShortMomentum < 0 {
		direction = -1.0
	}

	signal := clamp((ratio-1)*0.5, -0.5, 0.5)*direction + clamp(osc/50, -0.5, 0.5)*direction

	obv := indicators.OBV(s, features.VolumeAvgPeriod)
	if total := snap.AvgVolume * features.VolumeAvgPeriod; total > 0 {
		signal += clamp(obv/total, -0.3, 0.3)
	}
	if vwap := indicators.VWAP(s, features.VolumeAvgPeriod); vwap > 0 {
		signal += clamp((snap.Price-vwap)/vwap*10, -0.3, 0.3)
	}

	return clamp(signal, -1, 1)
}

// trendSignal follows EMA alignment and trend strength.
func (e *Ensemble) trendSignal(snap features.Snapshot) float64 {
	signal := 0.0

	if snap.LongEMA > 0 {
		signal += clamp((snap.ShortEMA-snap.LongEMA)/snap.LongEMA*50, -0.6, 0.6)
	}
	signal += clamp(snap.TrendStrength/0.003, -0.4, 0.4)

	return clamp(signal, -1, 1)
}

// referenceSignal reads the correlated asset as a macro tailwind or
// headwind.
func (e *Ensemble) referenceSignal(reference market.Series) float64 {
	refMomentum := indicators.Momentum(reference, features.MomentumPeriod)
	return clamp(refMomentum/3.0, -1, 1)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
