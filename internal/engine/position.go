package engine

import "time"

// PositionState tracks the open position for one run. It is owned by
// exactly one decision loop (live runner or backtester) and mutated
// only on executed trades, except PeakPrice which the owner updates
// every step while holding.
type PositionState struct {
	Holdings     float64   `json:"holdings"` // asset units, >= 0
	LastBuyPrice float64   `json:"last_buy_price"`
	PeakPrice    float64   `json:"peak_price"`
	BuyTime      time.Time `json:"buy_time"`
}

// Holding reports whether a position is open.
func (p *PositionState) Holding() bool {
	return p.Holdings > 0
}

// UpdatePeak raises the peak price watermark while holding.
func (p *PositionState) UpdatePeak(price float64) {
	if p.Holdings > 0 && price > p.PeakPrice {
		p.PeakPrice = price
	}
}

// DaysHeld reports full days elapsed since the position was opened.
func (p *PositionState) DaysHeld(now time.Time) int {
	if p.Holdings == 0 {
		return 0
	}
	return int(now.Sub(p.BuyTime).Hours() / 24)
}

// ApplyBuy records an executed buy.
func (p *PositionState) ApplyBuy(assetAmount, price float64, at time.Time) {
	p.Holdings = assetAmount
	p.LastBuyPrice = price
	p.PeakPrice = price
	p.BuyTime = at
}

// ApplySell clears the position after a full sell.
func (p *PositionState) ApplySell() {
	p.Holdings = 0
	p.LastBuyPrice = 0
	p.PeakPrice = 0
	p.BuyTime = time.Time{}
}
