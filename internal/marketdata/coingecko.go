package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"regime-trading-bot/config"
	"regime-trading-bot/internal/market"
)

// CoinGecko fetches daily market history from the CoinGecko API.
// Symbols are CoinGecko coin IDs ("bitcoin", "ethereum").
type CoinGecko struct {
	client   *http.Client
	baseURL  string
	currency string
}

// NewCoinGecko creates a provider from configuration.
func NewCoinGecko(cfg config.MarketDataConfig) *CoinGecko {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinGecko{
		client:   &http.Client{Timeout: timeout},
		baseURL:  cfg.BaseURL,
		currency: cfg.Currency,
	}
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// marketChartResponse mirrors /coins/{id}/market_chart:
// [[timestamp_ms, value], ...] per field.
type marketChartResponse struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// FetchSeries fetches daily prices and volumes for the last `days` days.
func (c *CoinGecko) FetchSeries(ctx context.Context, symbol string, days int) (market.Series, error) {
	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%d&interval=daily",
		c.baseURL, symbol, c.currency, days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching series for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, symbol)
	}

	var chart marketChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("no data for %s", symbol)
	}

	series := make(market.Series, 0, len(chart.Prices))
	for i, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		var volume float64
		if i < len(chart.TotalVolumes) && len(chart.TotalVolumes[i]) >= 2 {
			volume = chart.TotalVolumes[i][1]
		}
		series = append(series, market.Point{
			Time:   time.UnixMilli(int64(p[0])),
			Price:  p[1],
			Volume: volume,
		})
	}
	return series, nil
}
