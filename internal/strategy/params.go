package strategy

// Params is the threshold/multiplier bundle that makes the four regimes
// operationally different. A bundle is loaded by the selector on every
// regime transition and consumed by the risk manager and decision
// engine.
type Params struct {
	// Probability gates
	BuyProbThreshold  float64 `json:"buy_prob_threshold"`
	SellProbThreshold float64 `json:"sell_prob_threshold"`
	MinConfidence     float64 `json:"min_confidence"`

	// Entry conditions
	TrendSlopeEntry     float64 `json:"trend_slope_entry"`
	TrendStrengthEntry  float64 `json:"trend_strength_entry"`
	ShortMomentumEntry  float64 `json:"short_momentum_entry"`
	VolAdjMomentumEntry float64 `json:"vol_adj_momentum_entry"`
	ATRBreakoutEntry    float64 `json:"atr_breakout_entry"`
	VolumeMultiplier    float64 `json:"volume_multiplier"`
	DeviationEntry      float64 `json:"deviation_entry"`
	MomentumQuiet       float64 `json:"momentum_quiet"`

	// Exit conditions
	MomentumExit      float64 `json:"momentum_exit"`
	ShortMomentumExit float64 `json:"short_momentum_exit"`
	TrendStrengthExit float64 `json:"trend_strength_exit"`

	// Risk levels
	StopLossMultiplier   float64 `json:"stop_loss_multiplier"`
	TrailingStopFraction float64 `json:"trailing_stop_fraction"`
	TrailingActivation   float64 `json:"trailing_activation"` // unrealized gain fraction arming the trail
	ProfitTakeMultiplier float64 `json:"profit_take_multiplier"`
	MinProfitPotential   float64 `json:"min_profit_potential"` // projected gain fraction required to enter

	// Position sizing
	BasePositionSize float64 `json:"base_position_size"`
	MaxPositionSize  float64 `json:"max_position_size"`

	// Minimum holding period before any sell, in days (ATR-adjusted,
	// capped at MaxHoldDays by the engine)
	BaseHoldDays int `json:"base_hold_days"`
}

// defaultParams enumerates the four bundles explicitly. Values follow
// the character of each regime: trend and momentum run looser stops and
// larger sizes, breakout demands volume confirmation, mean reversion is
// the conservative default.
var defaultParams = map[Regime]Params{
	TrendFollowing: {
		BuyProbThreshold:     0.60,
		SellProbThreshold:    0.62,
		MinConfidence:        0.55,
		TrendSlopeEntry:      0.0015,
		TrendStrengthEntry:   0.002,
		MomentumExit:         4.0,
		ShortMomentumExit:    2.5,
		TrendStrengthExit:    0.001,
		StopLossMultiplier:   2.5,
		TrailingStopFraction: 0.06,
		TrailingActivation:   0.03,
		ProfitTakeMultiplier: 4.0,
		MinProfitPotential:   0.015,
		BasePositionSize:     0.004,
		MaxPositionSize:      0.35,
		BaseHoldDays:         5,
	},
	Momentum: {
		BuyProbThreshold:     0.62,
		SellProbThreshold:    0.60,
		MinConfidence:        0.58,
		ShortMomentumEntry:   0.8,
		VolAdjMomentumEntry:  0.5,
		MomentumExit:         3.0,
		ShortMomentumExit:    1.8,
		TrendStrengthExit:    0.0008,
		StopLossMultiplier:   2.0,
		TrailingStopFraction: 0.05,
		TrailingActivation:   0.025,
		ProfitTakeMultiplier: 3.0,
		MinProfitPotential:   0.012,
		BasePositionSize:     0.0035,
		MaxPositionSize:      0.30,
		BaseHoldDays:         4,
	},
	Breakout: {
		BuyProbThreshold:     0.65,
		SellProbThreshold:    0.58,
		MinConfidence:        0.60,
		ATRBreakoutEntry:     1.4,
		VolumeMultiplier:     1.5,
		MomentumExit:         3.5,
		ShortMomentumExit:    2.0,
		TrendStrengthExit:    0.001,
		StopLossMultiplier:   1.8,
		TrailingStopFraction: 0.045,
		TrailingActivation:   0.02,
		ProfitTakeMultiplier: 3.5,
		MinProfitPotential:   0.015,
		BasePositionSize:     0.003,
		MaxPositionSize:      0.25,
		BaseHoldDays:         3,
	},
	MeanReversion: {
		BuyProbThreshold:     0.60,
		SellProbThreshold:    0.58,
		MinConfidence:        0.55,
		DeviationEntry:       0.03,
		MomentumQuiet:        2.0,
		MomentumExit:         2.5,
		ShortMomentumExit:    1.5,
		TrendStrengthExit:    0.0008,
		StopLossMultiplier:   1.5,
		TrailingStopFraction: 0.04,
		TrailingActivation:   0.02,
		ProfitTakeMultiplier: 2.5,
		MinProfitPotential:   0.01,
		BasePositionSize:     0.0025,
		MaxPositionSize:      0.20,
		BaseHoldDays:         3,
	},
}

// ParamsFor returns the bundle for a regime. Unknown regimes are a
// programming error.
func ParamsFor(r Regime) Params {
	p, ok := defaultParams[r]
	if !ok {
		panic("strategy: unknown regime " + r.String())
	}
	return p
}
