// Package engine combines the strategy selector and risk manager with
// the current position into a single buy/sell/hold decision per
// timestep.
package engine

import (
	"fmt"
	"math"
	"time"

	"regime-trading-bot/internal/features"
	"regime-trading-bot/internal/predictor"
	"regime-trading-bot/internal/risk"
	"regime-trading-bot/internal/strategy"
)

// Config holds the global decision gates and execution frictions.
type Config struct {
	MinConfidence float64 `json:"min_confidence"` // global confidence gate
	MaxATRRatio   float64 `json:"max_atr_ratio"`  // atr/price above which the market is too volatile to act
	Slippage      float64 `json:"slippage"`       // fraction applied against every fill
	Commission    float64 `json:"commission"`     // flat fee per trade, quote currency
	MaxHoldDays   int     `json:"max_hold_days"`  // hard cap on the minimum-hold adjustment
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.55,
		MaxATRRatio:   0.08,
		Slippage:      0.001,
		Commission:    1.0,
		MaxHoldDays:   12,
	}
}

// Decision is the outcome of one timestep. Trade is nil on hold.
type Decision struct {
	Trade      *Trade          `json:"trade,omitempty"`
	Confidence float64         `json:"confidence"`
	BuyProb    float64         `json:"buy_prob"`
	SellProb   float64         `json:"sell_prob"`
	Regime     strategy.Regime `json:"regime"`
	Reason     string          `json:"reason"`
}

// Decide maps (prediction, position, strategy state, capital) to a
// decision. It never mutates the position; executing the returned trade
// is the caller's job. WinStreak feeds the momentum sizing boost.
func Decide(cfg Config, pred *predictor.Prediction, pos *PositionState, st *strategy.State, capital float64, winStreak int, now time.Time) Decision {
	snap := pred.Features

	d := Decision{
		Confidence: pred.Confidence,
		BuyProb:    pred.BuyProb,
		SellProb:   pred.SellProb,
		Regime:     st.Current,
	}

	// Global pre-filter: too uncertain or too volatile to act.
	if pred.Confidence < cfg.MinConfidence {
		d.Reason = "confidence below global gate"
		return d
	}
	if snap.Price > 0 && snap.ATR/snap.Price > cfg.MaxATRRatio {
		d.Reason = "volatility above global gate"
		return d
	}

	if pos.Holding() {
		return decideSell(cfg, pred, pos, st, d, now)
	}
	return decideBuy(cfg, pred, st, capital, winStreak, d, now)
}

func decideSell(cfg Config, pred *predictor.Prediction, pos *PositionState, st *strategy.State, d Decision, now time.Time) Decision {
	snap := pred.Features
	p := st.Params

	minHold := risk.MinHoldDays(p, snap.ATR, snap.Price)
	if minHold > cfg.MaxHoldDays {
		minHold = cfg.MaxHoldDays
	}
	if pos.DaysHeld(now) < minHold {
		d.Reason = fmt.Sprintf("holding %d/%d min days", pos.DaysHeld(now), minHold)
		return d
	}

	levels := risk.ComputeLevels(p, snap, pos.LastBuyPrice, pos.PeakPrice, pred.Confidence)

	reason := ""
	switch {
	case pred.SellProb >= p.SellProbThreshold:
		reason = "sell probability threshold"
	case snap.Momentum < -p.MomentumExit:
		reason = "momentum reversal"
	case snap.ShortMomentum < -p.ShortMomentumExit:
		reason = "short momentum reversal"
	case snap.TrendStrength < -p.TrendStrengthExit:
		reason = "trend strength reversal"
	case snap.Price <= levels.StopLoss:
		reason = "stop loss"
	case levels.TrailingStop > 0 && snap.Price <= levels.TrailingStop:
		reason = "trailing stop"
	case snap.Price >= levels.ProfitTake:
		reason = "profit take"
	default:
		d.Reason = "no exit condition met"
		return d
	}

	effective := snap.Price * (1 - cfg.Slippage)
	usd := pos.Holdings*effective - cfg.Commission

	d.Trade = &Trade{
		Type:        TradeSell,
		Price:       effective,
		Time:        now,
		AssetAmount: pos.Holdings,
		USDValue:    usd,
		BuyPrice:    pos.LastBuyPrice,
		Reason:      reason,
	}
	d.Reason = reason
	return d
}

func decideBuy(cfg Config, pred *predictor.Prediction, st *strategy.State, capital float64, winStreak int, d Decision, now time.Time) Decision {
	snap := pred.Features
	p := st.Params

	if pred.BuyProb < p.BuyProbThreshold || pred.Confidence < p.MinConfidence {
		d.Reason = "entry probability gate"
		return d
	}

	if !regimeEntryMet(st.Current, p, snap) {
		d.Reason = "regime entry conditions not met"
		return d
	}

	// Minimum profit-potential filter: the projected profit-take
	// distance must be worth the frictions.
	target := risk.ProfitTakeLevel(p, snap.Price, snap.ATR, snap.Momentum)
	if snap.Price <= 0 || (target-snap.Price)/snap.Price < p.MinProfitPotential {
		d.Reason = "profit potential below minimum"
		return d
	}

	if capital <= 0 {
		d.Reason = "no capital"
		return d
	}

	size := risk.PositionSize(st.Current, p, snap, pred.Confidence, pred.BuyProb, winStreak)
	if size <= 0 {
		d.Reason = "zero position size"
		return d
	}

	effective := snap.Price * (1 + cfg.Slippage)
	assetAmount := (capital*size - cfg.Commission) / effective
	if assetAmount <= 0 {
		d.Reason = "position too small after frictions"
		return d
	}

	d.Trade = &Trade{
		Type:        TradeBuy,
		Price:       effective,
		Time:        now,
		AssetAmount: assetAmount,
		USDValue:    capital * size,
		Reason:      fmt.Sprintf("%s entry", st.Current),
	}
	d.Reason = d.Trade.Reason
	return d
}

// regimeEntryMet evaluates the strategy-specific buy conjunction. An
// unrecognized regime is a programming error and fails loudly.
func regimeEntryMet(r strategy.Regime, p strategy.Params, snap features.Snapshot) bool {
	switch r {
	case strategy.TrendFollowing:
		return snap.TrendSlope > p.TrendSlopeEntry &&
			snap.ShortEMA > snap.LongEMA &&
			snap.TrendStrength > p.TrendStrengthEntry
	case strategy.Momentum:
		return snap.ShortMomentum > p.ShortMomentumEntry &&
			snap.VolAdjMomentum > p.VolAdjMomentumEntry &&
			snap.TrendStrength > 0
	case strategy.Breakout:
		return snap.ATRBreakout > p.ATRBreakoutEntry &&
			snap.CurrentVolume > snap.AvgVolume*p.VolumeMultiplier &&
			snap.ShortMomentum > 0
	case strategy.MeanReversion:
		return snap.PriceDeviation < -p.DeviationEntry &&
			math.Abs(snap.Momentum) < p.MomentumQuiet &&
			snap.MomentumDivergence != 0
	default:
		panic("engine: unrecognized regime " + r.String())
	}
}
