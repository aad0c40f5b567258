// Package marketdata fetches daily price and volume history for the
// engine. Providers return market.Series aligned oldest-first.
package marketdata

import (
	"context"

	"regime-trading-bot/internal/market"
)

// Provider fetches daily history for one symbol. days is the span
// ending today; implementations return one point per day.
type Provider interface {
	FetchSeries(ctx context.Context, symbol string, days int) (market.Series, error)
	Name() string
}
