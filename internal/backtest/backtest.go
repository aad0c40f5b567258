// Package backtest replays the trade decision loop day-by-day over
// historical data, tracking a simulated portfolio and computing
// risk-adjusted performance metrics.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"regime-trading-bot/internal/engine"
	"regime-trading-bot/internal/market"
	"regime-trading-bot/internal/predictor"
	"regime-trading-bot/internal/strategy"
)

const (
	// DefaultWarmUpDays is the history consumed before the first
	// decision so every indicator window is fully populated.
	DefaultWarmUpDays = 50

	// EndSafetyMargin keeps the last few days out of the simulation,
	// leaving room for forward-looking validation windows elsewhere.
	EndSafetyMargin = 5
)

// Config is the stable backtest entry-point contract.
type Config struct {
	StartDaysAgo   int     `json:"start_days_ago"`
	EndDaysAgo     int     `json:"end_days_ago"`
	StepDays       int     `json:"step_days"`
	InitialCapital float64 `json:"initial_capital"`
}

// PortfolioPoint is one entry of the portfolio value ledger.
type PortfolioPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Result holds the aggregate outcome of one run. Produced once at the
// end; byte-identical for identical inputs and a deterministic
// predictor. RunID stays zero until the persistence layer assigns one.
type Result struct {
	RunID            uuid.UUID        `json:"run_id"`
	InitialCapital   float64          `json:"initial_capital"`
	FinalValue       float64          `json:"final_value"`
	TotalReturn      float64          `json:"total_return"`
	TotalTrades      int              `json:"total_trades"`
	WinRate          float64          `json:"win_rate"`
	SharpeRatio      float64          `json:"sharpe_ratio"`
	MaxDrawdown      float64          `json:"max_drawdown"`
	PortfolioHistory []PortfolioPoint `json:"portfolio_history"`
	Trades           []engine.Trade   `json:"trades"`
}

// Backtester drives the decision engine across a historical window.
// One instance per run; PositionState and StrategyState are created in
// Run and never shared.
type Backtester struct {
	pred        predictor.Predictor
	engineCfg   engine.Config
	selectorCfg strategy.SelectorConfig
	warmUpDays  int
	logger      zerolog.Logger
}

// New creates a backtester around an injected predictor.
func New(pred predictor.Predictor, engineCfg engine.Config, selectorCfg strategy.SelectorConfig, logger zerolog.Logger) *Backtester {
	return &Backtester{
		pred:        pred,
		engineCfg:   engineCfg,
		selectorCfg: selectorCfg,
		warmUpDays:  DefaultWarmUpDays,
		logger:      logger.With().Str("component", "backtest").Logger(),
	}
}

// Run replays the decision loop over the window selected by cfg from
// the full primary/reference history. Precondition violations and
// predictor failures abort the run with no partial result.
func (b *Backtester) Run(ctx context.Context, primary, reference market.Series, cfg Config) (*Result, error) {
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest: initial capital must be positive, got %.2f", cfg.InitialCapital)
	}
	if cfg.StepDays <= 0 {
		cfg.StepDays = 1
	}
	if err := market.Aligned(primary, reference); err != nil {
		return nil, err
	}

	window, refWindow, err := sliceWindow(primary, reference, cfg, b.warmUpDays)
	if err != nil {
		return nil, err
	}
	if len(window) <= b.warmUpDays+EndSafetyMargin {
		return nil, fmt.Errorf("%w: window has %d days, warm-up needs %d",
			market.ErrInsufficientHistory, len(window), b.warmUpDays+EndSafetyMargin)
	}

	startTime := window[b.warmUpDays-1].Time

	cash := cfg.InitialCapital
	pos := &engine.PositionState{}
	st := strategy.NewState(startTime)
	selector := strategy.NewSelector(b.selectorCfg, b.logger)

	var (
		trades     []engine.Trade
		history    []PortfolioPoint
		wins       int
		roundTrips int
		winStreak  int
	)

	for i := b.warmUpDays; i < len(window)-EndSafetyMargin; i += cfg.StepDays {
		// Slice up to the current day only: no look-ahead.
		hist := window.Window(i + 1)
		refHist := refWindow.Window(i + 1)

		price := hist.Last().Price
		now := hist.Last().Time

		pos.UpdatePeak(price)

		pred, err := b.pred.Predict(ctx, hist, refHist)
		if err != nil {
			return nil, fmt.Errorf("backtest: predictor failed at day %d: %w", i, err)
		}

		selector.Select(st, pred.Features, pred.Confidence, now)

		dec := engine.Decide(b.engineCfg, pred, pos, st, cash, winStreak, now)

		if dec.Trade != nil {
			switch dec.Trade.Type {
			case engine.TradeBuy:
				cash -= dec.Trade.USDValue
				pos.ApplyBuy(dec.Trade.AssetAmount, dec.Trade.Price, now)
			case engine.TradeSell:
				pnl := dec.Trade.USDValue - dec.Trade.AssetAmount*pos.LastBuyPrice
				if pnl > 0 {
					wins++
					winStreak++
				} else {
					winStreak = 0
				}
				roundTrips++
				cash += dec.Trade.USDValue
				pos.ApplySell()
			}
			st.RecordTrade(now)
			trades = append(trades, *dec.Trade)

			b.logger.Debug().
				Str("type", string(dec.Trade.Type)).
				Float64("price", dec.Trade.Price).
				Str("regime", dec.Regime.String()).
				Str("reason", dec.Trade.Reason).
				Msg("trade executed")
		}

		// The ledger records every step, trade or not.
		history = append(history, PortfolioPoint{
			Time:  now,
			Value: cash + pos.Holdings*price,
		})
	}

	result := &Result{
		InitialCapital:   cfg.InitialCapital,
		TotalTrades:      len(trades),
		PortfolioHistory: history,
		Trades:           trades,
	}
	finalize(result, wins, roundTrips)

	b.logger.Info().
		Int("trades", result.TotalTrades).
		Float64("total_return", result.TotalReturn).
		Float64("sharpe", result.SharpeRatio).
		Float64("max_drawdown", result.MaxDrawdown).
		Msg("backtest complete")

	return result, nil
}

// sliceWindow cuts the requested [StartDaysAgo, EndDaysAgo] span from
// the full history, keeping the two series aligned. The slice extends
// warmUp days before the start boundary so the first decision lands at
// StartDaysAgo rather than warmUp days later. When the history cannot
// cover the full padding the window is clamped to what exists.
func sliceWindow(primary, reference market.Series, cfg Config, warmUp int) (market.Series, market.Series, error) {
	n := len(primary)
	end := n - cfg.EndDaysAgo
	if cfg.EndDaysAgo <= 0 {
		end = n
	}
	start := 0
	if cfg.StartDaysAgo > 0 {
		start = end - cfg.StartDaysAgo - warmUp
		if start < 0 {
			start = 0
		}
	}
	if start >= end || end > n {
		return nil, nil, fmt.Errorf("%w: invalid window [%d, %d) over %d days",
			market.ErrInsufficientHistory, start, end, n)
	}
	return primary[start:end], reference[start:end], nil
}
