package features

import (
	"math"
	"testing"
	"time"

	"regime-trading-bot/internal/indicators"
	"regime-trading-bot/internal/market"
)

func mkSeries(t *testing.T, prices []float64) market.Series {
	t.Helper()
	volumes := make([]float64, len(prices))
	for i := range volumes {
		volumes[i] = 1000
	}
	s, err := market.FromArrays(prices, volumes, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("building series: %v", err)
	}
	return s
}

func flatSeries(t *testing.T, n int, price float64) market.Series {
	t.Helper()
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = price
	}
	return mkSeries(t, prices)
}

func risingSeries(t *testing.T, n int, start, dailyRate float64) market.Series {
	t.Helper()
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start * math.Pow(1+dailyRate, float64(i))
	}
	return mkSeries(t, prices)
}

func TestComputeFlatSeries(t *testing.T) {
	snap := Compute(flatSeries(t, 60, 100))

	if snap.Momentum != 0 || snap.ShortMomentum != 0 || snap.TrendSlope != 0 {
		t.Errorf("flat series momentum = %v/%v, slope = %v, want zeros",
			snap.Momentum, snap.ShortMomentum, snap.TrendSlope)
	}
	if snap.RSI != 50 {
		t.Errorf("flat series RSI = %v, want 50", snap.RSI)
	}
	if snap.ATRBreakout != 0 {
		t.Errorf("flat series ATR breakout = %v, want 0", snap.ATRBreakout)
	}
	if snap.PriceDeviation != 0 {
		t.Errorf("flat series price deviation = %v, want 0", snap.PriceDeviation)
	}
	if want := 100 * indicators.ATRFloorRatio; snap.ATR != want {
		t.Errorf("flat series ATR = %v, want floor %v", snap.ATR, want)
	}
	if snap.VolAdjMomentum != 0 || snap.TrendStrength != 0 {
		t.Errorf("flat series derived momentum = %v/%v, want zeros",
			snap.VolAdjMomentum, snap.TrendStrength)
	}
	if snap.ShortEMA != 100 || snap.LongEMA != 100 || snap.SMA != 100 {
		t.Errorf("flat series averages = %v/%v/%v, want all 100",
			snap.ShortEMA, snap.LongEMA, snap.SMA)
	}
	if snap.Price != 100 || snap.CurrentVolume != 1000 || snap.AvgVolume != 1000 {
		t.Errorf("flat series point values = %+v", snap)
	}
}

func TestComputeRisingSeries(t *testing.T) {
	snap := Compute(risingSeries(t, 60, 100, 0.01))

	if snap.Momentum <= 0 || snap.ShortMomentum <= 0 {
		t.Errorf("rising series momentum = %v/%v, want positive", snap.Momentum, snap.ShortMomentum)
	}
	if snap.TrendSlope <= 0 {
		t.Errorf("rising series trend slope = %v, want positive", snap.TrendSlope)
	}
	if snap.ShortEMA <= snap.LongEMA {
		t.Errorf("rising series short EMA %v should exceed long EMA %v", snap.ShortEMA, snap.LongEMA)
	}
	if snap.PriceDeviation <= 0 {
		t.Errorf("rising series price deviation = %v, want positive", snap.PriceDeviation)
	}
	if snap.VolAdjMomentum <= 0 || snap.TrendStrength <= 0 {
		t.Errorf("rising series derived momentum = %v/%v, want positive",
			snap.VolAdjMomentum, snap.TrendStrength)
	}
	if snap.RSI <= 50 {
		t.Errorf("rising series RSI = %v, want above 50", snap.RSI)
	}
}

func TestComputeShortHistory(t *testing.T) {
	snap := Compute(flatSeries(t, 5, 100))

	if snap.Momentum != 0 || snap.TrendSlope != 0 {
		t.Errorf("short history momentum = %v, slope = %v, want zeros", snap.Momentum, snap.TrendSlope)
	}
	if snap.RSI != 50 {
		t.Errorf("short history RSI = %v, want neutral 50", snap.RSI)
	}
	if snap.ATRBreakout != 0 {
		t.Errorf("short history ATR breakout = %v, want 0", snap.ATRBreakout)
	}
	if snap.Price != 100 {
		t.Errorf("short history price = %v, want 100", snap.Price)
	}
}

func TestComputeEmptySeries(t *testing.T) {
	snap := Compute(nil)
	if snap.RSI != 50 {
		t.Errorf("empty series RSI = %v, want 50", snap.RSI)
	}
	if snap.Price != 0 || snap.ATR != 0 {
		t.Errorf("empty series snapshot = %+v, want zero values", snap)
	}
}

func TestMomentumDivergence(t *testing.T) {
	// A dip followed by a sharp rally: short momentum measures from the
	// dip, the 20-day momentum from the earlier plateau.
	prices := make([]float64, 60)
	for i := 0; i < 50; i++ {
		prices[i] = 100
	}
	for i := 50; i < 57; i++ {
		prices[i] = 95
	}
	prices[57], prices[58], prices[59] = 104, 108, 112

	snap := Compute(mkSeries(t, prices))
	if snap.MomentumDivergence <= 0 {
		t.Errorf("divergence = %v, want positive for a late rally", snap.MomentumDivergence)
	}
}

func TestATRBreakoutExpansion(t *testing.T) {
	// Quiet series with a volatile final stretch.
	prices := make([]float64, 80)
	for i := range prices {
		prices[i] = 100
	}
	for i := 66; i < 80; i++ {
		if i%2 == 0 {
			prices[i] = 104
		} else {
			prices[i] = 96
		}
	}

	snap := Compute(mkSeries(t, prices))
	if snap.ATRBreakout <= 1 {
		t.Errorf("ATR breakout = %v, want above 1 when volatility expands", snap.ATRBreakout)
	}
}
