package strategy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"regime-trading-bot/internal/features"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func trendingSnapshot() features.Snapshot {
	return features.Snapshot{
		Momentum:       10,
		ShortMomentum:  2,
		TrendSlope:     0.01,
		ATR:            3,
		VolAdjMomentum: 3,
		TrendStrength:  0.03,
		ShortEMA:       110,
		LongEMA:        100,
		SMA:            105,
		Price:          112,
		CurrentVolume:  1000,
		AvgVolume:      1000,
		RSI:            65,
	}
}

func momentumSnapshot() features.Snapshot {
	return features.Snapshot{
		Momentum:       4,
		ShortMomentum:  1.0,
		TrendSlope:     0.001, // below the trend gate
		ATR:            3,
		VolAdjMomentum: 0.6,
		TrendStrength:  0.0006,
		ShortEMA:       105,
		LongEMA:        100,
		Price:          106,
		CurrentVolume:  1000,
		AvgVolume:      1000,
		RSI:            60,
	}
}

func breakoutSnapshot(atrBreakout float64) features.Snapshot {
	return features.Snapshot{
		ShortMomentum: 0.2,
		ATR:           4,
		ATRBreakout:   atrBreakout,
		ShortEMA:      100,
		LongEMA:       101, // bearish alignment keeps trend/momentum out
		Price:         100,
		CurrentVolume: 2000,
		AvgVolume:     1000,
		RSI:           55,
	}
}

func newSelector() *Selector {
	return NewSelector(DefaultSelectorConfig(), zerolog.Nop())
}

func TestNewStateDefaults(t *testing.T) {
	st := NewState(t0)
	if st.Current != MeanReversion {
		t.Errorf("initial regime = %s, want MEAN_REVERSION", st.Current)
	}
	if st.Params != ParamsFor(MeanReversion) {
		t.Error("initial params should match the mean reversion bundle")
	}
	if st.TradeCount != 0 {
		t.Errorf("initial trade count = %d, want 0", st.TradeCount)
	}
}

func TestPersistenceGuardHoldsYoungRegime(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)

	got := sel.Select(st, trendingSnapshot(), 0.60, t0.AddDate(0, 0, 1))
	if got != MeanReversion {
		t.Errorf("young regime switched to %s on sub-override confidence", got)
	}
	if st.Current != MeanReversion {
		t.Errorf("state mutated to %s", st.Current)
	}
}

func TestOverrideConfidenceBypassesGuard(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)
	st.TradeCount = 2

	now := t0.AddDate(0, 0, 1)
	got := sel.Select(st, trendingSnapshot(), 0.90, now)
	if got != TrendFollowing {
		t.Fatalf("regime = %s, want TREND_FOLLOWING", got)
	}
	if st.TradeCount != 0 {
		t.Errorf("trade count = %d, want reset to 0", st.TradeCount)
	}
	if !st.StartTime.Equal(now) {
		t.Errorf("start time = %v, want %v", st.StartTime, now)
	}
	if st.Params.MaxPositionSize != ParamsFor(TrendFollowing).MaxPositionSize {
		t.Error("params not reloaded for the new regime")
	}
}

func TestMaturedStateSwitchesWithoutOverride(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)
	for i := 0; i < 3; i++ {
		st.RecordTrade(t0.AddDate(0, 0, i+1))
	}

	got := sel.Select(st, trendingSnapshot(), 0.60, t0.AddDate(0, 0, 6))
	if got != TrendFollowing {
		t.Errorf("matured regime = %s, want TREND_FOLLOWING", got)
	}
}

func TestClassifyMomentum(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)

	got := sel.Select(st, momentumSnapshot(), 0.90, t0.AddDate(0, 0, 1))
	if got != Momentum {
		t.Errorf("regime = %s, want MOMENTUM", got)
	}
}

func TestClassifyBreakout(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)

	got := sel.Select(st, breakoutSnapshot(1.5), 0.90, t0.AddDate(0, 0, 1))
	if got != Breakout {
		t.Errorf("regime = %s, want BREAKOUT", got)
	}
}

func TestStaleBreakoutGateWidens(t *testing.T) {
	sel := newSelector()
	snap := breakoutSnapshot(1.2) // between the widened and normal gates

	fresh := NewState(t0)
	fresh.LastTradeTime = t0
	if got := sel.Select(fresh, snap, 0.90, t0.AddDate(0, 0, 1)); got != MeanReversion {
		t.Errorf("fresh book classified %s, want MEAN_REVERSION at normal gate", got)
	}

	stale := NewState(t0)
	stale.LastTradeTime = t0
	if got := sel.Select(stale, snap, 0.90, t0.AddDate(0, 0, 12)); got != Breakout {
		t.Errorf("stale book classified %s, want BREAKOUT at widened gate", got)
	}
}

func TestNoTransitionKeepsCounters(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)
	for i := 0; i < 4; i++ {
		st.RecordTrade(t0.AddDate(0, 0, i+1))
	}

	quiet := features.Snapshot{PriceDeviation: 0.05, Momentum: 0.5, MomentumDivergence: 0.3, RSI: 50, Price: 100}
	got := sel.Select(st, quiet, 0.60, t0.AddDate(0, 0, 6))
	if got != MeanReversion {
		t.Fatalf("regime = %s, want MEAN_REVERSION", got)
	}
	if st.TradeCount != 4 {
		t.Errorf("trade count = %d, want 4 preserved without a transition", st.TradeCount)
	}
	if !st.StartTime.Equal(t0) {
		t.Errorf("start time reset without a transition")
	}
}

func TestObserveSmoothsClassification(t *testing.T) {
	sel := newSelector()
	st := NewState(t0)

	// Two flat observations dilute one trending snapshot below the gate.
	st.Observe(features.Snapshot{RSI: 50, Price: 100})
	st.Observe(features.Snapshot{RSI: 50, Price: 100})

	snap := trendingSnapshot()
	snap.TrendSlope = 0.003 // averaged to 0.001, under the 0.0015 gate
	snap.TrendStrength = 0.003

	got := sel.Select(st, snap, 0.90, t0.AddDate(0, 0, 1))
	if got == TrendFollowing {
		t.Error("single trending snapshot should be smoothed away by the history ring")
	}
}

func TestDaysActive(t *testing.T) {
	st := NewState(t0)
	if got := st.DaysActive(t0.Add(36 * time.Hour)); got != 1 {
		t.Errorf("DaysActive = %d, want 1", got)
	}
	if got := st.DaysActive(t0); got != 0 {
		t.Errorf("DaysActive = %d, want 0", got)
	}
}

func TestRecordTrade(t *testing.T) {
	st := NewState(t0)
	later := t0.AddDate(0, 0, 2)
	st.RecordTrade(later)
	if st.TradeCount != 1 || !st.LastTradeTime.Equal(later) {
		t.Errorf("state after trade = count %d, last %v", st.TradeCount, st.LastTradeTime)
	}
}
