package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regime-trading-bot/config"
	"regime-trading-bot/internal/api"
	"regime-trading-bot/internal/bot"
	"regime-trading-bot/internal/cache"
	"regime-trading-bot/internal/database"
	"regime-trading-bot/internal/events"
	"regime-trading-bot/internal/logging"
	"regime-trading-bot/internal/marketdata"
	"regime-trading-bot/internal/notification"
	"regime-trading-bot/internal/predictor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().
		Str("primary", cfg.MarketDataConfig.PrimarySymbol).
		Str("reference", cfg.MarketDataConfig.ReferenceSymbol).
		Msg("starting regime trading bot")

	eventBus := events.NewEventBus()

	notifier := notification.NewManager(cfg.NotificationConfig.Enabled)
	notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
		BotToken: cfg.NotificationConfig.Telegram.BotToken,
		ChatID:   cfg.NotificationConfig.Telegram.ChatID,
		Enabled:  cfg.NotificationConfig.Telegram.Enabled,
	}))
	notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
		WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
		Enabled:    cfg.NotificationConfig.Discord.Enabled,
	}))

	var provider marketdata.Provider
	if cfg.MarketDataConfig.MockMode {
		provider = marketdata.NewMock()
		logger.Warn().Msg("mock mode enabled, using simulated market data")
	} else {
		provider = marketdata.NewCoinGecko(cfg.MarketDataConfig)
	}

	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cs, err := cache.NewCacheService(cfg.RedisConfig, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable, continuing without it")
		} else {
			defer cs.Close()
			cacheService = cs
			ttl := time.Duration(cfg.MarketDataConfig.CacheTTLSecs) * time.Second
			provider = marketdata.NewCached(provider, cs, cfg.MarketDataConfig.Currency, ttl, logger)
		}
	}

	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(cfg.DatabaseConfig, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(migrateCtx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("database migrations failed")
		}
		cancel()
		repo = database.NewRepository(db)
	}

	pred := predictor.NewEnsemble(predictor.DefaultEnsembleConfig())

	b := bot.New(cfg, provider, pred, repo, cacheService, eventBus, notifier, logger)
	if cfg.SchedulerConfig.Enabled {
		if err := b.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start bot")
		}
	}

	server := api.NewServer(cfg.ServerConfig, b, repo, eventBus, logger)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("api server failed")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	b.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}
