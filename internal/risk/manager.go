// Package risk computes dynamic stop, trailing, profit-take, and
// position-size values scaled by volatility and prediction confidence.
package risk

import (
	"math"

	"regime-trading-bot/internal/features"
	"regime-trading-bot/internal/strategy"
)

const (
	// Confidence above which stops tighten; below, they loosen.
	highConfidence    = 0.75
	stopTightenFactor = 0.8
	stopLoosenFactor  = 1.1

	// Momentum (%) considered strong enough to tighten the trail and
	// boost the profit target.
	strongMomentum     = 3.0
	trailTightenFactor = 0.8
	profitBoostFactor  = 1.25
	profitTakeCap      = 5.0

	// Position-size bounds.
	atrRatioFloor  = 0.005
	trendBoostCap  = 0.30
	trendBoostGain = 50.0
	streakBoostCap = 3
	probBoostCap   = 1.3

	// AbsoluteMaxPosition is the hard ceiling on the capital fraction
	// committed to a single entry, applied after every boost.
	AbsoluteMaxPosition = 0.5
)

// Levels bundles the protective price levels for an open long position.
// TrailingStop is 0 while inactive (it can never trigger below zero).
type Levels struct {
	StopLoss     float64 `json:"stop_loss"`
	TrailingStop float64 `json:"trailing_stop"`
	ProfitTake   float64 `json:"profit_take"`
}

// StopLossLevel returns the stop price below the entry. The ATR
// multiplier tightens when confidence is high and loosens otherwise.
func StopLossLevel(p strategy.Params, lastBuyPrice, atr, confidence float64) float64 {
	mult := p.StopLossMultiplier
	if confidence >= highConfidence {
		mult *= stopTightenFactor
	} else {
		mult *= stopLoosenFactor
	}
	return lastBuyPrice - atr*mult
}

// TrailingStopLevel returns the trailing stop under the peak price, or 0
// while the unrealized gain has not reached the activation threshold.
// The fraction tightens when momentum is strongly positive.
func TrailingStopLevel(p strategy.Params, lastBuyPrice, peakPrice, currentPrice, momentum float64) float64 {
	if lastBuyPrice <= 0 {
		return 0
	}
	gain := (currentPrice - lastBuyPrice) / lastBuyPrice
	if gain < p.TrailingActivation {
		return 0
	}

	fraction := p.TrailingStopFraction
	if momentum > strongMomentum {
		fraction *= trailTightenFactor
	}
	return peakPrice * (1 - fraction)
}

// ProfitTakeLevel returns the target price above the entry. The
// multiplier is boosted, up to a cap, when momentum is strong.
func ProfitTakeLevel(p strategy.Params, lastBuyPrice, atr, momentum float64) float64 {
	mult := p.ProfitTakeMultiplier
	if momentum > strongMomentum {
		mult = math.Min(mult*profitBoostFactor, profitTakeCap)
	}
	return lastBuyPrice + atr*mult
}

// ComputeLevels derives all three protective levels for an open long.
func ComputeLevels(p strategy.Params, snap features.Snapshot, lastBuyPrice, peakPrice, confidence float64) Levels {
	return Levels{
		StopLoss:     StopLossLevel(p, lastBuyPrice, snap.ATR, confidence),
		TrailingStop: TrailingStopLevel(p, lastBuyPrice, peakPrice, snap.Price, snap.Momentum),
		ProfitTake:   ProfitTakeLevel(p, lastBuyPrice, snap.ATR, snap.Momentum),
	}
}

// PositionSize returns the capital fraction for a new entry: an
// inverse-volatility base capped at the regime maximum, scaled by trend,
// confidence, win-streak (momentum regime only), and buy-probability
// boosts, with the regime cap and AbsoluteMaxPosition re-applied after
// boosting.
func PositionSize(regime strategy.Regime, p strategy.Params, snap features.Snapshot, confidence, buyProb float64, winStreak int) float64 {
	if snap.Price <= 0 {
		return 0
	}

	atrRatio := snap.ATR / snap.Price
	if atrRatio < atrRatioFloor {
		atrRatio = atrRatioFloor
	}

	size := math.Min(p.BasePositionSize/atrRatio, p.MaxPositionSize)

	// Trend-slope boost.
	trendBoost := snap.TrendSlope * trendBoostGain
	if trendBoost < 0 {
		trendBoost = 0
	}
	if trendBoost > trendBoostCap {
		trendBoost = trendBoostCap
	}
	size *= 1 + trendBoost

	// Confidence boost above the regime gate.
	if confidence > p.MinConfidence {
		size *= 1 + (confidence - p.MinConfidence)
	}

	// Consecutive-win boost, momentum regime only.
	if regime == strategy.Momentum && winStreak > 0 {
		streak := winStreak
		if streak > streakBoostCap {
			streak = streakBoostCap
		}
		size *= 1 + 0.1*float64(streak)
	}

	// Buy-probability boost, capped.
	if p.BuyProbThreshold > 0 {
		size *= math.Min(buyProb/p.BuyProbThreshold, probBoostCap)
	}

	// The regime cap binds again after boosting, then the hard ceiling.
	size = math.Min(size, p.MaxPositionSize)
	return math.Min(size, AbsoluteMaxPosition)
}

// MinHoldDays returns the ATR-adjusted minimum holding period for the
// active regime: higher volatility extends the floor, capped at 12 days.
func MinHoldDays(p strategy.Params, atr, price float64) int {
	days := p.BaseHoldDays
	if price > 0 {
		days += int(atr / price * 100)
	}
	if days > 12 {
		days = 12
	}
	if days < p.BaseHoldDays {
		days = p.BaseHoldDays
	}
	return days
}
