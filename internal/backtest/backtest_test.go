package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"regime-trading-bot/internal/engine"
	"regime-trading-bot/internal/market"
	"regime-trading-bot/internal/predictor"
	"regime-trading-bot/internal/strategy"
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

func wavySeries(t *testing.T, n int) market.Series {
	t.Helper()
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/5) + 0.1*float64(i)
	}
	return mkSeries(t, prices)
}

func newBacktester(pred predictor.Predictor) *Backtester {
	return New(pred, engine.DefaultConfig(), strategy.DefaultSelectorConfig(), zerolog.Nop())
}

func defaultRun() Config {
	return Config{StepDays: 1, InitialCapital: 10000}
}

func TestRunFlatMarketNoTrades(t *testing.T) {
	// The ensemble scores a flat market at 0.5 confidence, under the
	// global gate, so every step holds.
	b := newBacktester(predictor.NewEnsemble(predictor.DefaultEnsembleConfig()))

	result, err := b.Run(context.Background(), flatSeries(t, 100, 100), flatSeries(t, 100, 50), defaultRun())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalTrades != 0 || len(result.Trades) != 0 {
		t.Errorf("flat market executed %d trades", result.TotalTrades)
	}
	if result.FinalValue != 10000 || result.TotalReturn != 0 {
		t.Errorf("flat market final = %v, return = %v", result.FinalValue, result.TotalReturn)
	}
	if result.SharpeRatio != 0 || result.MaxDrawdown != 0 {
		t.Errorf("flat market sharpe = %v, drawdown = %v, want zeros", result.SharpeRatio, result.MaxDrawdown)
	}
	if want := 100 - DefaultWarmUpDays - EndSafetyMargin; len(result.PortfolioHistory) != want {
		t.Errorf("ledger has %d points, want %d", len(result.PortfolioHistory), want)
	}
}

func TestRunRisingMarketEntersOnce(t *testing.T) {
	// A confident bullish stub in a steady uptrend: the run should open
	// one position and hold it through the minimum holding period.
	b := newBacktester(&predictor.Fixed{BuyProb: 0.9, SellProb: 0.05})

	result, err := b.Run(context.Background(), risingSeries(t, 60, 100, 0.01), risingSeries(t, 60, 50, 0.01), defaultRun())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalTrades != 1 {
		t.Fatalf("trades = %d, want exactly 1", result.TotalTrades)
	}
	if result.Trades[0].Type != engine.TradeBuy {
		t.Errorf("trade type = %s, want BUY", result.Trades[0].Type)
	}
	if result.FinalValue <= result.InitialCapital {
		t.Errorf("final value = %v, want a gain while holding a rising asset", result.FinalValue)
	}
	if result.WinRate != 0 {
		t.Errorf("win rate = %v, want 0 with no closed round trip", result.WinRate)
	}
}

func TestRunDeterministic(t *testing.T) {
	primary := wavySeries(t, 150)
	reference := flatSeries(t, 150, 50)

	run := func() *Result {
		b := newBacktester(predictor.NewEnsemble(predictor.DefaultEnsembleConfig()))
		result, err := b.Run(context.Background(), primary, reference, defaultRun())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return result
	}

	first := run()
	second := run()

	if first.RunID != uuid.Nil {
		t.Errorf("run ID = %v, want zero until the run is persisted", first.RunID)
	}

	// Identical inputs must produce byte-identical results, ledger and
	// trade list included.
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Errorf("repeated runs diverged:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestRunInvalidCapital(t *testing.T) {
	b := newBacktester(&predictor.Fixed{BuyProb: 0.5, SellProb: 0.5})
	if _, err := b.Run(context.Background(), flatSeries(t, 100, 100), flatSeries(t, 100, 50), Config{StepDays: 1}); err == nil {
		t.Error("expected error for non-positive capital")
	}
}

func TestRunInsufficientHistory(t *testing.T) {
	b := newBacktester(&predictor.Fixed{BuyProb: 0.5, SellProb: 0.5})
	_, err := b.Run(context.Background(), flatSeries(t, 40, 100), flatSeries(t, 40, 50), defaultRun())
	if !errors.Is(err, market.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestRunMisalignedSeries(t *testing.T) {
	b := newBacktester(&predictor.Fixed{BuyProb: 0.5, SellProb: 0.5})
	_, err := b.Run(context.Background(), flatSeries(t, 100, 100), flatSeries(t, 99, 50), defaultRun())
	if !errors.Is(err, market.ErrSeriesMismatch) {
		t.Errorf("expected ErrSeriesMismatch, got %v", err)
	}
}

type failingPredictor struct{}

func (failingPredictor) Predict(context.Context, market.Series, market.Series) (*predictor.Prediction, error) {
	return nil, errors.New("model unavailable")
}

func TestRunPredictorFailureAborts(t *testing.T) {
	b := newBacktester(failingPredictor{})
	result, err := b.Run(context.Background(), flatSeries(t, 100, 100), flatSeries(t, 100, 50), defaultRun())
	if err == nil {
		t.Fatal("expected the run to abort on predictor failure")
	}
	if result != nil {
		t.Error("no partial result on abort")
	}
}

func TestRunWindowSelection(t *testing.T) {
	// EndDaysAgo trims the most recent days before the safety margin,
	// and the window carries warm-up padding before StartDaysAgo.
	primary := wavySeries(t, 250)
	reference := flatSeries(t, 250, 50)

	b := newBacktester(predictor.NewEnsemble(predictor.DefaultEnsembleConfig()))
	cfg := defaultRun()
	cfg.StartDaysAgo = 150
	cfg.EndDaysAgo = 20

	result, err := b.Run(context.Background(), primary, reference, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A 150-day simulated span plus warm-up, minus warm-up and safety
	// margin from the loop.
	if want := 150 - EndSafetyMargin; len(result.PortfolioHistory) != want {
		t.Errorf("ledger has %d points, want %d", len(result.PortfolioHistory), want)
	}
	first := result.PortfolioHistory[0].Time
	if want := primary[len(primary)-20-150].Time; !first.Equal(want) {
		t.Errorf("first decision at %v, want %v", first, want)
	}
	last := result.PortfolioHistory[len(result.PortfolioHistory)-1].Time
	cutoff := primary[len(primary)-20].Time
	if !last.Before(cutoff) {
		t.Errorf("last decision at %v, want before the %v cutoff", last, cutoff)
	}
}

func TestRunFirstDecisionAtRequestedStart(t *testing.T) {
	// Warm-up history is fetched in addition to the requested span, not
	// carved out of it: a 100-day backtest starts deciding 100 days ago.
	primary := wavySeries(t, 200)
	reference := flatSeries(t, 200, 50)

	b := newBacktester(predictor.NewEnsemble(predictor.DefaultEnsembleConfig()))
	cfg := defaultRun()
	cfg.StartDaysAgo = 100

	result, err := b.Run(context.Background(), primary, reference, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := 100 - EndSafetyMargin; len(result.PortfolioHistory) != want {
		t.Errorf("ledger has %d points, want %d", len(result.PortfolioHistory), want)
	}
	first := result.PortfolioHistory[0].Time
	if want := primary[len(primary)-100].Time; !first.Equal(want) {
		t.Errorf("first decision at %v, want %v", first, want)
	}
}

func TestRunShortHistoryClampsWindow(t *testing.T) {
	// When the history cannot cover the span plus warm-up, the window
	// clamps to what exists instead of failing.
	b := newBacktester(predictor.NewEnsemble(predictor.DefaultEnsembleConfig()))
	cfg := defaultRun()
	cfg.StartDaysAgo = 300

	result, err := b.Run(context.Background(), flatSeries(t, 120, 100), flatSeries(t, 120, 50), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := 120 - DefaultWarmUpDays - EndSafetyMargin; len(result.PortfolioHistory) != want {
		t.Errorf("ledger has %d points, want %d", len(result.PortfolioHistory), want)
	}
}

func TestRunStepDays(t *testing.T) {
	b := newBacktester(predictor.NewEnsemble(predictor.DefaultEnsembleConfig()))
	cfg := defaultRun()
	cfg.StepDays = 5

	result, err := b.Run(context.Background(), flatSeries(t, 100, 100), flatSeries(t, 100, 50), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := 9; len(result.PortfolioHistory) != want {
		t.Errorf("ledger has %d points with a 5-day step, want %d", len(result.PortfolioHistory), want)
	}
}
