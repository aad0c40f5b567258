// Command backtest runs one walk-forward simulation from the command
// line and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"regime-trading-bot/config"
	"regime-trading-bot/internal/backtest"
	"regime-trading-bot/internal/cache"
	"regime-trading-bot/internal/engine"
	"regime-trading-bot/internal/logging"
	"regime-trading-bot/internal/marketdata"
	"regime-trading-bot/internal/predictor"
	"regime-trading-bot/internal/strategy"
)

func main() {
	startDays := flag.Int("start", 365, "simulation start, days before today")
	endDays := flag.Int("end", 0, "simulation end, days before today")
	stepDays := flag.Int("step", 1, "days per simulation step")
	capital := flag.Float64("capital", 10000, "initial capital")
	mock := flag.Bool("mock", false, "use simulated market data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)

	var provider marketdata.Provider
	if *mock || cfg.MarketDataConfig.MockMode {
		provider = marketdata.NewMock()
	} else {
		provider = marketdata.NewCoinGecko(cfg.MarketDataConfig)
		if cfg.RedisConfig.Enabled {
			if cacheService, err := cache.NewCacheService(cfg.RedisConfig, logger); err == nil {
				defer cacheService.Close()
				ttl := time.Duration(cfg.MarketDataConfig.CacheTTLSecs) * time.Second
				provider = marketdata.NewCached(provider, cacheService, cfg.MarketDataConfig.Currency, ttl, logger)
			}
		}
	}

	btCfg := backtest.Config{
		StartDaysAgo:   *startDays,
		EndDaysAgo:     *endDays,
		StepDays:       *stepDays,
		InitialCapital: *capital,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Fetch exactly enough history for the simulated span plus the
	// indicator warm-up that precedes the first decision.
	days := btCfg.StartDaysAgo + btCfg.EndDaysAgo + backtest.DefaultWarmUpDays
	primary, err := provider.FetchSeries(ctx, cfg.MarketDataConfig.PrimarySymbol, days)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch primary history")
	}
	reference, err := provider.FetchSeries(ctx, cfg.MarketDataConfig.ReferenceSymbol, days)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch reference history")
	}
	if len(reference) > len(primary) {
		reference = reference[len(reference)-len(primary):]
	} else if len(primary) > len(reference) {
		primary = primary[len(primary)-len(reference):]
	}

	engineCfg := engine.Config{
		MinConfidence: cfg.EngineConfig.MinConfidence,
		MaxATRRatio:   cfg.EngineConfig.MaxATRRatio,
		Slippage:      cfg.EngineConfig.Slippage,
		Commission:    cfg.EngineConfig.Commission,
		MaxHoldDays:   cfg.EngineConfig.MaxHoldDays,
	}

	selectorCfg := strategy.DefaultSelectorConfig()
	selectorCfg.PersistenceTrades = cfg.SelectorConfig.PersistenceTrades
	selectorCfg.PersistenceDays = cfg.SelectorConfig.PersistenceDays
	selectorCfg.OverrideConfidence = cfg.SelectorConfig.OverrideConfidence
	selectorCfg.StaleTradeDays = cfg.SelectorConfig.StaleTradeDays

	pred := predictor.NewEnsemble(predictor.DefaultEnsembleConfig())
	bt := backtest.New(pred, engineCfg, selectorCfg, logger)

	result, err := bt.Run(ctx, primary, reference, btCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal().Err(err).Msg("failed to encode result")
	}
}
