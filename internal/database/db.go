package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"regime-trading-bot/config"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB creates a new database connection
func NewDB(cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	dbLogger := logger.With().Str("component", "database").Logger()
	dbLogger.Info().Str("database", cfg.Name).Msg("connected to postgres")

	return &DB{Pool: pool, logger: dbLogger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id UUID PRIMARY KEY,
			symbol VARCHAR(64) NOT NULL,
			start_days_ago INTEGER NOT NULL,
			end_days_ago INTEGER NOT NULL,
			step_days INTEGER NOT NULL,
			initial_capital DECIMAL(20, 8) NOT NULL,
			final_value DECIMAL(20, 8) NOT NULL,
			total_return DECIMAL(12, 6) NOT NULL,
			total_trades INTEGER NOT NULL,
			win_rate DECIMAL(6, 4) NOT NULL,
			sharpe_ratio DECIMAL(12, 6) NOT NULL,
			max_drawdown DECIMAL(6, 4) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_runs_symbol ON backtest_runs(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_runs_created_at ON backtest_runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES backtest_runs(run_id) ON DELETE CASCADE,
			trade_type VARCHAR(4) NOT NULL,
			price DECIMAL(20, 8) NOT NULL,
			trade_time TIMESTAMP NOT NULL,
			asset_amount DECIMAL(20, 8) NOT NULL,
			usd_value DECIMAL(20, 8) NOT NULL,
			buy_price DECIMAL(20, 8),
			reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run_id ON backtest_trades(run_id)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(64) NOT NULL,
			action VARCHAR(8) NOT NULL,
			regime VARCHAR(32) NOT NULL,
			reason TEXT,
			price DECIMAL(20, 8) NOT NULL,
			confidence DECIMAL(6, 4) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_symbol ON recommendations(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations(created_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Msg("database migrations complete")
	return nil
}
