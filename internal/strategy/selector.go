package strategy

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"regime-trading-bot/internal/features"
)

// HistorySize is the number of recent snapshots averaged before
// classification, smoothing per-step noise.
const HistorySize = 3

// SelectorConfig holds the hysteresis knobs.
type SelectorConfig struct {
	PersistenceTrades  int     `json:"persistence_trades"`  // min trades before a switch
	PersistenceDays    int     `json:"persistence_days"`    // min days before a switch
	OverrideConfidence float64 `json:"override_confidence"` // confidence that bypasses persistence
	StaleTradeDays     int     `json:"stale_trade_days"`    // no-trade days before the breakout gate widens
	StaleWidenFactor   float64 `json:"stale_widen_factor"`  // multiplier applied to the breakout gate when stale
}

// DefaultSelectorConfig returns the hysteresis defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		PersistenceTrades:  3,
		PersistenceDays:    5,
		OverrideConfidence: 0.80,
		StaleTradeDays:     10,
		StaleWidenFactor:   0.85,
	}
}

// State is the selector's persistent state for one run. It is mutated
// only by the selector and by RecordTrade, and must not be shared
// between runs.
type State struct {
	Current    Regime
	Params     Params
	StartTime  time.Time
	TradeCount int

	LastTradeTime time.Time

	history    [HistorySize]features.Snapshot
	historyLen int
	historyIdx int
}

// NewState starts a run in the lowest-risk default regime.
func NewState(now time.Time) *State {
	return &State{
		Current:       MeanReversion,
		Params:        ParamsFor(MeanReversion),
		StartTime:     now,
		LastTradeTime: now,
	}
}

// Observe pushes a snapshot into the rolling history ring.
func (st *State) Observe(snap features.Snapshot) {
	st.history[st.historyIdx] = snap
	st.historyIdx = (st.historyIdx + 1) % HistorySize
	if st.historyLen < HistorySize {
		st.historyLen++
	}
}

// RecordTrade counts an executed trade against the active regime.
func (st *State) RecordTrade(t time.Time) {
	st.TradeCount++
	st.LastTradeTime = t
}

// DaysActive reports how long the current regime has been in force.
func (st *State) DaysActive(now time.Time) int {
	return int(now.Sub(st.StartTime).Hours() / 24)
}

// averaged returns the mean of the buffered snapshots. With fewer than
// HistorySize observations it averages what is there.
func (st *State) averaged() features.Snapshot {
	if st.historyLen == 0 {
		return features.Snapshot{RSI: 50}
	}

	var avg features.Snapshot
	for i := 0; i < st.historyLen; i++ {
		s := st.history[i]
		avg.Momentum += s.Momentum
		avg.ShortMomentum += s.ShortMomentum
		avg.TrendSlope += s.TrendSlope
		avg.ATR += s.ATR
		avg.MomentumDivergence += s.MomentumDivergence
		avg.VolAdjMomentum += s.VolAdjMomentum
		avg.TrendStrength += s.TrendStrength
		avg.ATRBreakout += s.ATRBreakout
		avg.PriceDeviation += s.PriceDeviation
	}

	n := float64(st.historyLen)
	avg.Momentum /= n
	avg.ShortMomentum /= n
	avg.TrendSlope /= n
	avg.ATR /= n
	avg.MomentumDivergence /= n
	avg.VolAdjMomentum /= n
	avg.TrendStrength /= n
	avg.ATRBreakout /= n
	avg.PriceDeviation /= n

	// Latest values for non-averaged fields.
	latest := st.history[(st.historyIdx+HistorySize-1)%HistorySize]
	avg.ShortEMA = latest.ShortEMA
	avg.LongEMA = latest.LongEMA
	avg.SMA = latest.SMA
	avg.AvgVolume = latest.AvgVolume
	avg.CurrentVolume = latest.CurrentVolume
	avg.Price = latest.Price

	return avg
}

// Selector classifies the market regime with hysteresis.
type Selector struct {
	cfg    SelectorConfig
	logger zerolog.Logger
}

// NewSelector creates a selector.
func NewSelector(cfg SelectorConfig, logger zerolog.Logger) *Selector {
	return &Selector{cfg: cfg, logger: logger.With().Str("component", "selector").Logger()}
}

// Select records the snapshot, applies the persistence guard, and
// classifies the regime. On an actual transition the state's trade
// counter and start time reset and the new parameter bundle is loaded.
func (sel *Selector) Select(st *State, snap features.Snapshot, confidence float64, now time.Time) Regime {
	st.Observe(snap)

	// Persistence guard: a young regime is retained unless a
	// high-confidence signal overrides it.
	young := st.TradeCount < sel.cfg.PersistenceTrades || st.DaysActive(now) < sel.cfg.PersistenceDays
	if young && confidence < sel.cfg.OverrideConfidence {
		return st.Current
	}

	next := sel.classify(st, now)
	if next == st.Current {
		return st.Current
	}

	sel.logger.Info().
		Str("from", st.Current.String()).
		Str("to", next.String()).
		Float64("confidence", confidence).
		Int("trades", st.TradeCount).
		Msg("regime transition")

	st.Current = next
	st.Params = ParamsFor(next)
	st.StartTime = now
	st.TradeCount = 0

	return next
}

// Classification thresholds, checked in priority order.
const (
	classTrendSlope    = 0.0015
	classTrendStrength = 0.0015
	classShortMomentum = 0.6
	classVolAdjMom     = 0.4
	classATRBreakout   = 1.35
	classVolumeMult    = 1.3
	classDeviation     = 0.02
	classMomentumQuiet = 1.5
)

func (sel *Selector) classify(st *State, now time.Time) Regime {
	avg := st.averaged()
	emaBullish := avg.ShortEMA > avg.LongEMA

	// 1. Trend following: sustained slope with EMA alignment.
	if math.Abs(avg.TrendSlope) > classTrendSlope && emaBullish && avg.TrendStrength > classTrendStrength {
		return TrendFollowing
	}

	// 2. Momentum: strong short-term push in an up-tilted market.
	if avg.ShortMomentum > classShortMomentum && avg.VolAdjMomentum > classVolAdjMom &&
		avg.TrendStrength > 0 && emaBullish {
		return Momentum
	}

	// 3. Breakout: volatility expansion with volume confirmation. The
	// gate widens after a stretch without trades so a quiet book can
	// still re-engage.
	breakoutGate := classATRBreakout
	if int(now.Sub(st.LastTradeTime).Hours()/24) > sel.cfg.StaleTradeDays {
		breakoutGate *= sel.cfg.StaleWidenFactor
	}
	if avg.ATRBreakout > breakoutGate && avg.CurrentVolume > avg.AvgVolume*classVolumeMult &&
		avg.ShortMomentum > 0 {
		return Breakout
	}

	// 4. Mean reversion: stretched price with quiet momentum.
	if math.Abs(avg.PriceDeviation) > classDeviation && math.Abs(avg.Momentum) < classMomentumQuiet &&
		avg.MomentumDivergence != 0 {
		return MeanReversion
	}

	// Lowest-risk default.
	return MeanReversion
}
