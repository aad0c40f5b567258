package backtest

import (
	"math"
	"testing"
	"time"
)

func ledger(values ...float64) []PortfolioPoint {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]PortfolioPoint, len(values))
	for i, v := range values {
		out[i] = PortfolioPoint{Time: t0.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestFinalize(t *testing.T) {
	result := &Result{
		InitialCapital:   100,
		PortfolioHistory: ledger(100, 110, 99, 121),
	}
	finalize(result, 1, 2)

	if result.FinalValue != 121 {
		t.Errorf("final value = %v, want 121", result.FinalValue)
	}
	if math.Abs(result.TotalReturn-0.21) > 1e-9 {
		t.Errorf("total return = %v, want 0.21", result.TotalReturn)
	}
	if result.WinRate != 0.5 {
		t.Errorf("win rate = %v, want 0.5", result.WinRate)
	}
	if math.Abs(result.MaxDrawdown-0.1) > 1e-9 {
		t.Errorf("max drawdown = %v, want 0.1 from the 110 peak", result.MaxDrawdown)
	}
}

func TestFinalizeEmptyLedger(t *testing.T) {
	result := &Result{InitialCapital: 5000}
	finalize(result, 0, 0)

	if result.FinalValue != 5000 {
		t.Errorf("final value = %v, want the initial capital", result.FinalValue)
	}
	if result.TotalReturn != 0 || result.WinRate != 0 || result.SharpeRatio != 0 || result.MaxDrawdown != 0 {
		t.Errorf("empty run metrics = %+v, want zeros", result)
	}
}

func TestSharpeRatio(t *testing.T) {
	if got := sharpeRatio(ledger(100, 100, 100, 100)); got != 0 {
		t.Errorf("flat ledger sharpe = %v, want 0", got)
	}
	if got := sharpeRatio(ledger(100)); got != 0 {
		t.Errorf("single-point ledger sharpe = %v, want 0", got)
	}
	if got := sharpeRatio(ledger(100, 110, 115, 130)); got <= 0 {
		t.Errorf("rising ledger sharpe = %v, want positive", got)
	}
	if got := sharpeRatio(ledger(100, 90, 85, 70)); got >= 0 {
		t.Errorf("falling ledger sharpe = %v, want negative", got)
	}
}

func TestSharpeRatioAnnualization(t *testing.T) {
	// Constant per-step return has zero variance and must score zero
	// rather than explode.
	if got := sharpeRatio(ledger(100, 110, 121, 133.1)); got != 0 {
		t.Errorf("zero-variance returns sharpe = %v, want 0", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"no drawdown", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 110, 99, 121}, 0.1},
		{"deepest dip wins", []float64{100, 80, 120, 60}, 0.5},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxDrawdown(ledger(tt.values...)); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("maxDrawdown = %v, want %v", got, tt.want)
			}
		})
	}
}
