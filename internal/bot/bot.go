// Package bot runs the live decision loop: on every scheduled tick it
// fetches fresh history, selects the active regime and produces a
// trade recommendation. The bot never places orders itself; it
// publishes recommendations for consumers to act on.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"regime-trading-bot/config"
	"regime-trading-bot/internal/backtest"
	"regime-trading-bot/internal/cache"
	"regime-trading-bot/internal/database"
	"regime-trading-bot/internal/engine"
	"regime-trading-bot/internal/events"
	"regime-trading-bot/internal/marketdata"
	"regime-trading-bot/internal/notification"
	"regime-trading-bot/internal/predictor"
	"regime-trading-bot/internal/strategy"
)

// Recommendation is the outcome of one live tick.
type Recommendation struct {
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Regime     string    `json:"regime"`
	Reason     string    `json:"reason"`
	Price      float64   `json:"price"`
	Confidence float64   `json:"confidence"`
	Time       time.Time `json:"time"`
}

// recommendationTTL keeps the cached recommendation around long enough
// to survive a restart between daily ticks.
const recommendationTTL = 48 * time.Hour

// Bot coordinates the live recommendation loop and on-demand
// backtests. Repo and cacheSvc may be nil when persistence or Redis is
// disabled.
type Bot struct {
	cfg      *config.Config
	provider marketdata.Provider
	pred     predictor.Predictor
	repo     *database.Repository
	cacheSvc *cache.CacheService
	eventBus *events.EventBus
	notifier *notification.Manager
	logger   zerolog.Logger

	cron    *cron.Cron
	mu      sync.RWMutex
	pos     *engine.PositionState
	st      *strategy.State
	sel     *strategy.Selector
	latest  *Recommendation
	running bool
}

// New creates a bot. Live state starts flat: no holdings, the
// selector's initial regime, no trade history.
func New(cfg *config.Config, provider marketdata.Provider, pred predictor.Predictor,
	repo *database.Repository, cacheSvc *cache.CacheService, eventBus *events.EventBus,
	notifier *notification.Manager, logger zerolog.Logger) *Bot {

	botLogger := logger.With().Str("component", "bot").Logger()
	return &Bot{
		cfg:      cfg,
		provider: provider,
		pred:     pred,
		repo:     repo,
		cacheSvc: cacheSvc,
		eventBus: eventBus,
		notifier: notifier,
		logger:   botLogger,
		pos:      &engine.PositionState{},
		st:       strategy.NewState(time.Now()),
		sel:      strategy.NewSelector(selectorConfig(cfg), botLogger),
	}
}

func selectorConfig(cfg *config.Config) strategy.SelectorConfig {
	sc := strategy.DefaultSelectorConfig()
	sc.PersistenceTrades = cfg.SelectorConfig.PersistenceTrades
	sc.PersistenceDays = cfg.SelectorConfig.PersistenceDays
	sc.OverrideConfidence = cfg.SelectorConfig.OverrideConfidence
	sc.StaleTradeDays = cfg.SelectorConfig.StaleTradeDays
	return sc
}

func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		MinConfidence: cfg.EngineConfig.MinConfidence,
		MaxATRRatio:   cfg.EngineConfig.MaxATRRatio,
		Slippage:      cfg.EngineConfig.Slippage,
		Commission:    cfg.EngineConfig.Commission,
		MaxHoldDays:   cfg.EngineConfig.MaxHoldDays,
	}
}

// Start registers the cron schedule and begins ticking.
func (b *Bot) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("bot already running")
	}

	b.cron = cron.New()
	_, err := b.cron.AddFunc(b.cfg.SchedulerConfig.CronSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := b.Tick(ctx); err != nil {
			b.logger.Error().Err(err).Msg("tick failed")
			b.eventBus.PublishError("bot", "tick failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", b.cfg.SchedulerConfig.CronSchedule, err)
	}

	b.cron.Start()
	b.running = true
	b.logger.Info().Str("schedule", b.cfg.SchedulerConfig.CronSchedule).Msg("bot started")
	b.eventBus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{
		"symbol": b.cfg.MarketDataConfig.PrimarySymbol,
	}})
	return nil
}

// Stop halts the cron loop. Safe to call when not running.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	ctx := b.cron.Stop()
	<-ctx.Done()
	b.running = false
	b.logger.Info().Msg("bot stopped")
	b.eventBus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{}})
}

// IsRunning reports whether the cron loop is active.
func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Tick runs one live decision pass and returns the recommendation.
func (b *Bot) Tick(ctx context.Context) (*Recommendation, error) {
	md := b.cfg.MarketDataConfig
	days := b.cfg.SchedulerConfig.HistoryDays

	primary, err := b.provider.FetchSeries(ctx, md.PrimarySymbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", md.PrimarySymbol, err)
	}
	reference, err := b.provider.FetchSeries(ctx, md.ReferenceSymbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", md.ReferenceSymbol, err)
	}

	// Providers can disagree by a day at the edges.
	if len(reference) > len(primary) {
		reference = reference[len(reference)-len(primary):]
	} else if len(primary) > len(reference) {
		primary = primary[len(primary)-len(reference):]
	}

	price := primary.Last().Price
	now := primary.Last().Time
	b.eventBus.PublishPriceUpdate(md.PrimarySymbol, price)

	pred, err := b.pred.Predict(ctx, primary, reference)
	if err != nil {
		return nil, fmt.Errorf("predictor failed: %w", err)
	}

	b.mu.Lock()
	b.pos.UpdatePeak(price)
	prevRegime := b.st.Current
	b.sel.Select(b.st, pred.Features, pred.Confidence, now)
	if b.st.Current != prevRegime {
		b.eventBus.PublishRegimeChanged(prevRegime.String(), b.st.Current.String(), pred.Confidence)
		if err := b.notifier.SendRegimeChange(md.PrimarySymbol, prevRegime.String(), b.st.Current.String(), pred.Confidence); err != nil {
			b.logger.Warn().Err(err).Msg("regime change notification failed")
		}
	}

	// Live mode tracks a virtual position sized from the configured
	// backtest capital so the risk rules stay identical.
	dec := engine.Decide(engineConfig(b.cfg), pred, b.pos, b.st, b.cfg.BacktestConfig.InitialCapital, 0, now)

	action := "HOLD"
	if dec.Trade != nil {
		action = string(dec.Trade.Type)
		switch dec.Trade.Type {
		case engine.TradeBuy:
			b.pos.ApplyBuy(dec.Trade.AssetAmount, dec.Trade.Price, now)
			b.eventBus.PublishTradeOpened(md.PrimarySymbol, b.st.Current.String(), dec.Trade.Price, dec.Trade.AssetAmount, dec.Trade.USDValue)
		case engine.TradeSell:
			pnl := dec.Trade.USDValue - dec.Trade.AssetAmount*b.pos.LastBuyPrice
			b.eventBus.PublishTradeClosed(md.PrimarySymbol, b.st.Current.String(), dec.Trade.Reason, b.pos.LastBuyPrice, dec.Trade.Price, pnl)
			if err := b.notifier.SendTradeClose(md.PrimarySymbol, b.st.Current.String(), dec.Trade.Reason, b.pos.LastBuyPrice, dec.Trade.Price, pnl); err != nil {
				b.logger.Warn().Err(err).Msg("trade close notification failed")
			}
			b.pos.ApplySell()
		}
		b.st.RecordTrade(now)
	}

	rec := &Recommendation{
		Symbol:     md.PrimarySymbol,
		Action:     action,
		Regime:     b.st.Current.String(),
		Reason:     dec.Reason,
		Price:      price,
		Confidence: pred.Confidence,
		Time:       now,
	}
	b.latest = rec
	b.mu.Unlock()

	b.logger.Info().
		Str("action", rec.Action).
		Str("regime", rec.Regime).
		Float64("price", rec.Price).
		Float64("confidence", rec.Confidence).
		Str("reason", rec.Reason).
		Msg("recommendation")

	b.eventBus.PublishRecommendation(rec.Symbol, rec.Regime, rec.Action, rec.Reason, rec.Price, rec.Confidence)
	if err := b.notifier.SendRecommendation(rec.Symbol, rec.Action, rec.Regime, rec.Reason, rec.Price, rec.Confidence); err != nil {
		b.logger.Warn().Err(err).Msg("recommendation notification failed")
	}

	if b.cacheSvc != nil {
		if err := b.cacheSvc.SetJSON(ctx, cache.RecommendationKey(rec.Symbol), rec, recommendationTTL); err != nil {
			b.logger.Warn().Err(err).Msg("failed to cache recommendation")
		}
	}

	if b.repo != nil {
		dbRec := &database.Recommendation{
			Symbol:     rec.Symbol,
			Action:     rec.Action,
			Regime:     rec.Regime,
			Reason:     rec.Reason,
			Price:      rec.Price,
			Confidence: rec.Confidence,
		}
		if err := b.repo.SaveRecommendation(ctx, dbRec); err != nil {
			b.logger.Warn().Err(err).Msg("failed to persist recommendation")
		}
	}

	return rec, nil
}

// Latest returns the most recent recommendation. Before the first tick
// of this process it falls back to the cached recommendation from a
// previous run, or nil when neither exists.
func (b *Bot) Latest(ctx context.Context) *Recommendation {
	b.mu.RLock()
	latest := b.latest
	b.mu.RUnlock()
	if latest != nil || b.cacheSvc == nil {
		return latest
	}

	var rec Recommendation
	key := cache.RecommendationKey(b.cfg.MarketDataConfig.PrimarySymbol)
	if err := b.cacheSvc.GetJSON(ctx, key, &rec); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			b.logger.Debug().Err(err).Msg("cached recommendation lookup failed")
		}
		return nil
	}
	return &rec
}

// RunBacktest fetches history and replays the decision loop over it,
// persisting the result when a repository is configured.
func (b *Bot) RunBacktest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error) {
	md := b.cfg.MarketDataConfig
	// The simulated span plus the indicator warm-up before the first
	// decision.
	days := cfg.StartDaysAgo + cfg.EndDaysAgo + backtest.DefaultWarmUpDays

	b.eventBus.Publish(events.Event{Type: events.EventBacktestStarted, Data: map[string]interface{}{
		"symbol":         md.PrimarySymbol,
		"start_days_ago": cfg.StartDaysAgo,
	}})

	primary, err := b.provider.FetchSeries(ctx, md.PrimarySymbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", md.PrimarySymbol, err)
	}
	reference, err := b.provider.FetchSeries(ctx, md.ReferenceSymbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", md.ReferenceSymbol, err)
	}
	if len(reference) > len(primary) {
		reference = reference[len(reference)-len(primary):]
	} else if len(primary) > len(reference) {
		primary = primary[len(primary)-len(reference):]
	}

	bt := backtest.New(b.pred, engineConfig(b.cfg), selectorConfig(b.cfg), b.logger)
	result, err := bt.Run(ctx, primary, reference, cfg)
	if err != nil {
		return nil, err
	}

	// Persist first: SaveBacktestRun mints the run ID the event and
	// API response refer to.
	if b.repo != nil {
		if err := b.repo.SaveBacktestRun(ctx, md.PrimarySymbol, cfg, result); err != nil {
			b.logger.Warn().Err(err).Msg("failed to persist backtest run")
		}
	}
	if result.RunID == uuid.Nil {
		result.RunID = uuid.New()
	}

	b.eventBus.PublishBacktestFinished(result.RunID.String(), result.TotalReturn, result.SharpeRatio, result.MaxDrawdown, result.TotalTrades)
	if err := b.notifier.SendBacktestResult(md.PrimarySymbol, result.TotalReturn, result.SharpeRatio, result.MaxDrawdown, result.TotalTrades); err != nil {
		b.logger.Warn().Err(err).Msg("backtest notification failed")
	}
	return result, nil
}
