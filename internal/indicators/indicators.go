package indicators

import (
	"math"

	"regime-trading-bot/internal/market"
)

// Indicator functions operate on the trailing window of a daily series.
// Every function returns a documented neutral default when the window is
// shorter than its period, so callers never see NaN.

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average of closing prices.
func SMA(s market.Series, period int) float64 {
	if len(s) < period || period <= 0 {
		return 0
	}

	sum := 0.0
	for i := len(s) - period; i < len(s); i++ {
		sum += s[i].Price
	}

	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average of closing prices,
// seeded with the SMA of the first period.
func EMA(s market.Series, period int) float64 {
	if len(s) < period || period <= 0 {
		return 0
	}

	multiplier := 2.0 / float64(period+1)

	ema := SMA(s[:period], period)
	for i := period; i < len(s); i++ {
		ema = (s[i].Price * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI calculates the Relative Strength Index. Returns the neutral value
// 50 when there is not enough history.
func RSI(s market.Series, period int) float64 {
	if len(s) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0

	for i := len(s) - period; i < len(s); i++ {
		change := s[i].Price - s[i-1].Price
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgGain == 0 && avgLoss == 0 {
		return 50.0 // flat window
	}
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// STOCHASTIC RSI
// ============================================================================

// StochRSI normalizes the current RSI against its own recent range and
// returns a value in [0, 1]. Neutral default is 0.5.
func StochRSI(s market.Series, period int) float64 {
	if len(s) < 2*period+1 {
		return 0.5
	}

	current := RSI(s, period)
	lowest := current
	highest := current

	for back := 1; back <= period; back++ {
		r := RSI(s[:len(s)-back], period)
		if r < lowest {
			lowest = r
		}
		if r > highest {
			highest = r
		}
	}

	if highest == lowest {
		return 0.5
	}

	return (current - lowest) / (highest - lowest)
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACDResult holds MACD indicator values.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the MACD line, its signal line, and the histogram.
// The signal line is a true EMA over the trailing MACD values.
func MACD(s market.Series, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(s) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	macdAt := func(end int) float64 {
		return EMA(s[:end], fastPeriod) - EMA(s[:end], slowPeriod)
	}

	macdLine := macdAt(len(s))

	// EMA of the trailing signalPeriod MACD values.
	multiplier := 2.0 / float64(signalPeriod+1)
	signal := macdAt(len(s) - signalPeriod + 1)
	for back := signalPeriod - 2; back >= 0; back-- {
		signal = (macdAt(len(s)-back) * multiplier) + (signal * (1 - multiplier))
	}

	return MACDResult{
		MACD:      macdLine,
		Signal:    signal,
		Histogram: macdLine - signal,
	}
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerResult holds Bollinger band values.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger calculates Bollinger bands around the period SMA.
func Bollinger(s market.Series, period int, stdDevMultiplier float64) BollingerResult {
	if len(s) < period {
		return BollingerResult{}
	}

	middle := SMA(s, period)

	variance := 0.0
	for i := len(s) - period; i < len(s); i++ {
		diff := s[i].Price - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return BollingerResult{
		Upper:  middle + (stdDev * stdDevMultiplier),
		Middle: middle,
		Lower:  middle - (stdDev * stdDevMultiplier),
	}
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// ATRFloorRatio is the fraction of the last price returned as the ATR
// default when history is too short. Keeps volatility-scaled divisors
// away from zero.
const ATRFloorRatio = 0.005

// ATR calculates the Average True Range as the mean absolute
// day-over-day price movement over the period. For a daily close series
// the true range reduces to |close - prevClose|.
func ATR(s market.Series, period int) float64 {
	if len(s) == 0 {
		return ATRFloorRatio
	}
	if len(s) < period+1 {
		return s.Last().Price * ATRFloorRatio
	}

	trSum := 0.0
	for i := len(s) - period; i < len(s); i++ {
		trSum += math.Abs(s[i].Price - s[i-1].Price)
	}

	atr := trSum / float64(period)
	floor := s.Last().Price * ATRFloorRatio
	if atr < floor {
		return floor
	}
	return atr
}

// ============================================================================
// VWAP (Volume-Weighted Average Price)
// ============================================================================

// VWAP calculates the volume-weighted average price over the trailing
// period. Falls back to the last price when volume sums to zero.
func VWAP(s market.Series, period int) float64 {
	if len(s) == 0 {
		return 0
	}
	if len(s) < period {
		period = len(s)
	}

	pvSum := 0.0
	volSum := 0.0
	for i := len(s) - period; i < len(s); i++ {
		pvSum += s[i].Price * s[i].Volume
		volSum += s[i].Volume
	}

	if volSum == 0 {
		return s.Last().Price
	}
	return pvSum / volSum
}

// ============================================================================
// VOLUME ANALYSIS
// ============================================================================

// AverageVolume calculates average volume over a period.
func AverageVolume(s market.Series, period int) float64 {
	if len(s) == 0 {
		return 0
	}
	if len(s) < period {
		period = len(s)
	}

	sum := 0.0
	for i := len(s) - period; i < len(s); i++ {
		sum += s[i].Volume
	}

	return sum / float64(period)
}

// OBV calculates On-Balance Volume over the trailing period: volume is
// added on up days and subtracted on down days.
func OBV(s market.Series, period int) float64 {
	if len(s) < 2 {
		return 0
	}

	start := len(s) - period
	if start < 1 {
		start = 1
	}

	obv := 0.0
	for i := start; i < len(s); i++ {
		switch {
		case s[i].Price > s[i-1].Price:
			obv += s[i].Volume
		case s[i].Price < s[i-1].Price:
			obv -= s[i].Volume
		}
	}

	return obv
}

// VolumeOscillator returns the percentage difference between a short and
// a long volume SMA. Positive values mean rising volume.
func VolumeOscillator(s market.Series, shortPeriod, longPeriod int) float64 {
	if len(s) < longPeriod {
		return 0
	}

	shortAvg := AverageVolume(s, shortPeriod)
	longAvg := AverageVolume(s, longPeriod)
	if longAvg == 0 {
		return 0
	}

	return (shortAvg - longAvg) / longAvg * 100
}

// IsVolumeSpike checks if current volume is significantly higher than
// the trailing average.
func IsVolumeSpike(s market.Series, period int, multiplier float64) bool {
	if len(s) < period+1 {
		return false
	}

	avgVolume := AverageVolume(s[:len(s)-1], period)
	return s.Last().Volume >= avgVolume*multiplier
}

// ============================================================================
// MOMENTUM
// ============================================================================

// Momentum calculates the percentage price change over the period.
func Momentum(s market.Series, period int) float64 {
	if len(s) < period+1 {
		return 0
	}

	current := s.Last().Price
	past := s[len(s)-period-1].Price
	if past == 0 {
		return 0
	}

	return (current - past) / past * 100
}

// TrendSlope calculates the per-day linear change rate over the period
// as a fraction of the starting price.
func TrendSlope(s market.Series, period int) float64 {
	if len(s) < period+1 || period == 0 {
		return 0
	}

	current := s.Last().Price
	past := s[len(s)-period-1].Price
	if past == 0 {
		return 0
	}

	return (current - past) / past / float64(period)
}

// ============================================================================
// FIBONACCI RETRACEMENT LEVELS
// ============================================================================

// FibonacciLevels holds Fibonacci retracement levels.
type FibonacciLevels struct {
	Level0   float64 // 0% (high)
	Level236 float64 // 23.6%
	Level382 float64 // 38.2%
	Level50  float64 // 50%
	Level618 float64 // 61.8%
	Level100 float64 // 100% (low)
}

// Fibonacci calculates retracement levels from the period's high/low range.
func Fibonacci(s market.Series, period int) FibonacciLevels {
	if len(s) < period || period == 0 {
		return FibonacciLevels{}
	}

	high := s[len(s)-period].Price
	low := high
	for i := len(s) - period; i < len(s); i++ {
		if s[i].Price > high {
			high = s[i].Price
		}
		if s[i].Price < low {
			low = s[i].Price
		}
	}

	diff := high - low

	return FibonacciLevels{
		Level0:   high,
		Level236: high - (diff * 0.236),
		Level382: high - (diff * 0.382),
		Level50:  high - (diff * 0.50),
		Level618: high - (diff * 0.618),
		Level100: low,
	}
}
