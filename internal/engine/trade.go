package engine

import "time"

// TradeType distinguishes buys from sells.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// Trade is an append-only record of an executed order. Never mutated
// after creation.
type Trade struct {
	Type        TradeType `json:"type"`
	Price       float64   `json:"price"` // effective fill price, slippage applied
	Time        time.Time `json:"time"`
	AssetAmount float64   `json:"asset_amount"`
	USDValue    float64   `json:"usd_value"`
	BuyPrice    float64   `json:"buy_price,omitempty"` // entry price, set on sells
	Reason      string    `json:"reason"`
}
