package indicators

import (
	"math"
	"testing"
	"time"

	"regime-trading-bot/internal/market"
)

func mkSeries(t *testing.T, prices, volumes []float64) market.Series {
	t.Helper()
	if volumes == nil {
		volumes = make([]float64, len(prices))
	}
	s, err := market.FromArrays(prices, volumes, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("building series: %v", err)
	}
	return s
}

func flatPrices(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMA(t *testing.T) {
	s := mkSeries(t, []float64{1, 2, 3, 4, 5}, nil)

	tests := []struct {
		name   string
		period int
		want   float64
	}{
		{"full window", 5, 3},
		{"trailing three", 3, 4},
		{"short history", 6, 0},
		{"zero period", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SMA(s, tt.period); got != tt.want {
				t.Errorf("SMA(%d) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}
}

func TestEMAConstantSeries(t *testing.T) {
	s := mkSeries(t, flatPrices(30, 5), nil)
	if got := EMA(s, 9); got != 5 {
		t.Errorf("EMA of constant series = %v, want 5", got)
	}
	if got := EMA(s[:3], 9); got != 0 {
		t.Errorf("EMA on short history = %v, want 0", got)
	}
}

func TestEMATracksRecentPrices(t *testing.T) {
	prices := flatPrices(30, 100)
	for i := 20; i < 30; i++ {
		prices[i] = 110
	}
	s := mkSeries(t, prices, nil)

	ema := EMA(s, 9)
	sma := SMA(s, 20)
	if ema <= sma {
		t.Errorf("EMA %v should sit above the 20-day SMA %v after a step up", ema, sma)
	}
	if ema > 110 {
		t.Errorf("EMA %v moved beyond the latest price", ema)
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"flat window", flatPrices(20, 100), 50},
		{"all gains", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, 100},
		{"short history", []float64{1, 2, 3}, 50},
		{"balanced swings", []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mkSeries(t, tt.prices, nil)
			if got := RSI(s, 14); !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("RSI = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStochRSI(t *testing.T) {
	flat := mkSeries(t, flatPrices(40, 100), nil)
	if got := StochRSI(flat, 14); got != 0.5 {
		t.Errorf("StochRSI on flat series = %v, want 0.5", got)
	}

	short := mkSeries(t, flatPrices(10, 100), nil)
	if got := StochRSI(short, 14); got != 0.5 {
		t.Errorf("StochRSI on short history = %v, want 0.5", got)
	}

	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)/3)
	}
	s := mkSeries(t, prices, nil)
	got := StochRSI(s, 14)
	if got < 0 || got > 1 {
		t.Errorf("StochRSI = %v, want value in [0, 1]", got)
	}
}

func TestMACD(t *testing.T) {
	flat := mkSeries(t, flatPrices(60, 100), nil)
	res := MACD(flat, 12, 26, 9)
	if !almostEqual(res.MACD, 0, 1e-9) || !almostEqual(res.Signal, 0, 1e-9) {
		t.Errorf("MACD on flat series = %+v, want zeros", res)
	}

	short := mkSeries(t, flatPrices(20, 100), nil)
	if res := MACD(short, 12, 26, 9); res != (MACDResult{}) {
		t.Errorf("MACD on short history = %+v, want zero value", res)
	}

	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 * math.Pow(1.01, float64(i))
	}
	rising := MACD(mkSeries(t, prices, nil), 12, 26, 9)
	if rising.MACD <= 0 {
		t.Errorf("MACD on rising series = %v, want positive", rising.MACD)
	}
	if !almostEqual(rising.Histogram, rising.MACD-rising.Signal, 1e-9) {
		t.Errorf("histogram %v != macd-signal %v", rising.Histogram, rising.MACD-rising.Signal)
	}
}

func TestBollinger(t *testing.T) {
	flat := mkSeries(t, flatPrices(30, 100), nil)
	res := Bollinger(flat, 20, 2)
	if res.Upper != 100 || res.Middle != 100 || res.Lower != 100 {
		t.Errorf("Bollinger on flat series = %+v, want all bands at 100", res)
	}

	prices := []float64{98, 102, 98, 102, 98, 102, 98, 102, 98, 102, 98, 102, 98, 102, 98, 102, 98, 102, 98, 102}
	res = Bollinger(mkSeries(t, prices, nil), 20, 2)
	if res.Middle != 100 {
		t.Errorf("middle band = %v, want 100", res.Middle)
	}
	if !almostEqual(res.Upper, 104, 1e-9) || !almostEqual(res.Lower, 96, 1e-9) {
		t.Errorf("bands = %+v, want upper 104 lower 96", res)
	}
}

func TestATR(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 100
		} else {
			prices[i] = 102
		}
	}
	s := mkSeries(t, prices, nil)
	if got := ATR(s, 14); !almostEqual(got, 2, 1e-9) {
		t.Errorf("ATR = %v, want 2", got)
	}
}

func TestATRFloor(t *testing.T) {
	flat := mkSeries(t, flatPrices(30, 200), nil)
	if got := ATR(flat, 14); !almostEqual(got, 200*ATRFloorRatio, 1e-9) {
		t.Errorf("ATR on flat series = %v, want floor %v", got, 200*ATRFloorRatio)
	}

	short := mkSeries(t, flatPrices(5, 200), nil)
	if got := ATR(short, 14); !almostEqual(got, 200*ATRFloorRatio, 1e-9) {
		t.Errorf("ATR on short history = %v, want floor %v", got, 200*ATRFloorRatio)
	}

	if got := ATR(nil, 14); got != ATRFloorRatio {
		t.Errorf("ATR on empty series = %v, want %v", got, ATRFloorRatio)
	}
}

func TestVWAP(t *testing.T) {
	s := mkSeries(t, []float64{10, 20, 30}, []float64{1, 1, 2})
	want := (10.0 + 20.0 + 60.0) / 4.0
	if got := VWAP(s, 3); !almostEqual(got, want, 1e-9) {
		t.Errorf("VWAP = %v, want %v", got, want)
	}

	noVol := mkSeries(t, []float64{10, 20, 30}, nil)
	if got := VWAP(noVol, 3); got != 30 {
		t.Errorf("VWAP with zero volume = %v, want last price 30", got)
	}
}

func TestOBV(t *testing.T) {
	up := mkSeries(t, []float64{1, 2, 3}, []float64{0, 10, 20})
	if got := OBV(up, 10); got != 30 {
		t.Errorf("OBV on rising series = %v, want 30", got)
	}

	mixed := mkSeries(t, []float64{1, 2, 1}, []float64{0, 10, 20})
	if got := OBV(mixed, 10); got != -10 {
		t.Errorf("OBV on mixed series = %v, want -10", got)
	}
}

func TestVolumeOscillator(t *testing.T) {
	vols := []float64{100, 100, 100, 100, 100, 100, 100, 200, 200, 200}
	s := mkSeries(t, flatPrices(10, 1), vols)
	if got := VolumeOscillator(s, 3, 10); got <= 0 {
		t.Errorf("oscillator = %v, want positive with rising volume", got)
	}
	if got := VolumeOscillator(s[:5], 3, 10); got != 0 {
		t.Errorf("oscillator on short history = %v, want 0", got)
	}
}

func TestIsVolumeSpike(t *testing.T) {
	vols := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 250}
	s := mkSeries(t, flatPrices(11, 1), vols)
	if !IsVolumeSpike(s, 10, 2) {
		t.Error("expected spike at 2.5x average volume")
	}
	if IsVolumeSpike(s, 10, 3) {
		t.Error("2.5x average volume should not pass a 3x threshold")
	}
}

func TestMomentum(t *testing.T) {
	s := mkSeries(t, []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110}, nil)
	if got := Momentum(s, 10); !almostEqual(got, 10, 1e-9) {
		t.Errorf("Momentum = %v, want 10", got)
	}
	if got := Momentum(s, 20); got != 0 {
		t.Errorf("Momentum on short history = %v, want 0", got)
	}
}

func TestTrendSlope(t *testing.T) {
	s := mkSeries(t, []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110}, nil)
	if got := TrendSlope(s, 10); !almostEqual(got, 0.01, 1e-9) {
		t.Errorf("TrendSlope = %v, want 0.01", got)
	}
	if got := TrendSlope(s, 0); got != 0 {
		t.Errorf("TrendSlope with zero period = %v, want 0", got)
	}
}

func TestFibonacci(t *testing.T) {
	s := mkSeries(t, []float64{100, 105, 110, 108, 102}, nil)
	levels := Fibonacci(s, 5)
	if levels.Level0 != 110 || levels.Level100 != 100 {
		t.Errorf("range = [%v, %v], want [100, 110]", levels.Level100, levels.Level0)
	}
	if !almostEqual(levels.Level50, 105, 1e-9) {
		t.Errorf("50%% level = %v, want 105", levels.Level50)
	}
}
