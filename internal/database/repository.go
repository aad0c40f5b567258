package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"regime-trading-bot/internal/backtest"
	"regime-trading-bot/internal/engine"
)

// Repository provides persistence for backtest runs and live
// recommendations.
type Repository struct {
	db *DB
}

// NewRepository creates a repository around an open connection.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RunSummary is one persisted backtest run without its trades.
type RunSummary struct {
	RunID          uuid.UUID `json:"run_id"`
	Symbol         string    `json:"symbol"`
	StartDaysAgo   int       `json:"start_days_ago"`
	EndDaysAgo     int       `json:"end_days_ago"`
	StepDays       int       `json:"step_days"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturn    float64   `json:"total_return"`
	TotalTrades    int       `json:"total_trades"`
	WinRate        float64   `json:"win_rate"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recommendation is one persisted live decision.
type Recommendation struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Regime     string    `json:"regime"`
	Reason     string    `json:"reason"`
	Price      float64   `json:"price"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveBacktestRun saves a backtest result and its trades in a
// transaction. The run ID is minted here, not in the simulation, so
// replaying identical inputs yields identical results.
func (r *Repository) SaveBacktestRun(ctx context.Context, symbol string, cfg backtest.Config, result *backtest.Result) error {
	if result.RunID == uuid.Nil {
		result.RunID = uuid.New()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO backtest_runs (
			run_id, symbol, start_days_ago, end_days_ago, step_days,
			initial_capital, final_value, total_return, total_trades,
			win_rate, sharpe_ratio, max_drawdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, query,
		result.RunID, symbol, cfg.StartDaysAgo, cfg.EndDaysAgo, cfg.StepDays,
		result.InitialCapital, result.FinalValue, result.TotalReturn, result.TotalTrades,
		result.WinRate, result.SharpeRatio, result.MaxDrawdown,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backtest run: %w", err)
	}

	if len(result.Trades) > 0 {
		tradeQuery := `
			INSERT INTO backtest_trades (
				run_id, trade_type, price, trade_time,
				asset_amount, usd_value, buy_price, reason
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		for _, trade := range result.Trades {
			_, err = tx.Exec(ctx, tradeQuery,
				result.RunID, string(trade.Type), trade.Price, trade.Time,
				trade.AssetAmount, trade.USDValue, trade.BuyPrice, trade.Reason,
			)
			if err != nil {
				return fmt.Errorf("failed to insert backtest trade: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBacktestRuns retrieves recent backtest runs for a symbol
func (r *Repository) GetBacktestRuns(ctx context.Context, symbol string, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, symbol, start_days_ago, end_days_ago, step_days,
			   initial_capital, final_value, total_return, total_trades,
			   win_rate, sharpe_ratio, max_drawdown, created_at
		FROM backtest_runs
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var run RunSummary
		err := rows.Scan(
			&run.RunID, &run.Symbol, &run.StartDaysAgo, &run.EndDaysAgo, &run.StepDays,
			&run.InitialCapital, &run.FinalValue, &run.TotalReturn, &run.TotalTrades,
			&run.WinRate, &run.SharpeRatio, &run.MaxDrawdown, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest runs: %w", err)
	}
	return runs, nil
}

// GetBacktestTrades retrieves trades for a specific run
func (r *Repository) GetBacktestTrades(ctx context.Context, runID uuid.UUID) ([]engine.Trade, error) {
	query := `
		SELECT trade_type, price, trade_time, asset_amount, usd_value, buy_price, reason
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY trade_time ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest trades: %w", err)
	}
	defer rows.Close()

	trades := []engine.Trade{}
	for rows.Next() {
		var trade engine.Trade
		var tradeType string
		err := rows.Scan(
			&tradeType, &trade.Price, &trade.Time,
			&trade.AssetAmount, &trade.USDValue, &trade.BuyPrice, &trade.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest trade: %w", err)
		}
		trade.Type = engine.TradeType(tradeType)
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest trades: %w", err)
	}
	return trades, nil
}

// SaveRecommendation persists one live decision tick
func (r *Repository) SaveRecommendation(ctx context.Context, rec *Recommendation) error {
	query := `
		INSERT INTO recommendations (symbol, action, regime, reason, price, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		rec.Symbol, rec.Action, rec.Regime, rec.Reason, rec.Price, rec.Confidence,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}

// GetLatestRecommendation retrieves the most recent recommendation for a symbol
func (r *Repository) GetLatestRecommendation(ctx context.Context, symbol string) (*Recommendation, error) {
	query := `
		SELECT id, symbol, action, regime, reason, price, confidence, created_at
		FROM recommendations
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var rec Recommendation
	err := r.db.Pool.QueryRow(ctx, query, symbol).Scan(
		&rec.ID, &rec.Symbol, &rec.Action, &rec.Regime,
		&rec.Reason, &rec.Price, &rec.Confidence, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest recommendation: %w", err)
	}
	return &rec, nil
}
