package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"regime-trading-bot/internal/cache"
	"regime-trading-bot/internal/market"
)

// Cached wraps a Provider with a Redis read-through cache. Redis
// failures degrade to upstream fetches, never to errors.
type Cached struct {
	upstream Provider
	cache    *cache.CacheService
	currency string
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewCached wraps upstream with the given cache service.
func NewCached(upstream Provider, cs *cache.CacheService, currency string, ttl time.Duration, logger zerolog.Logger) *Cached {
	return &Cached{
		upstream: upstream,
		cache:    cs,
		currency: currency,
		ttl:      ttl,
		logger:   logger.With().Str("component", "marketdata").Logger(),
	}
}

func (c *Cached) Name() string {
	return c.upstream.Name() + "-cached"
}

func (c *Cached) FetchSeries(ctx context.Context, symbol string, days int) (market.Series, error) {
	key := cache.SeriesKey(symbol, c.currency, days)

	var series market.Series
	err := c.cache.GetJSON(ctx, key, &series)
	if err == nil && len(series) > 0 {
		return series, nil
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("cache read failed, falling back to upstream")
	}

	series, err = c.upstream.FetchSeries(ctx, symbol, days)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, key, series, c.ttl); err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("cache write failed")
	}
	return series, nil
}
