package backtest

import "math"

// Daily crypto markets trade every calendar day, so the Sharpe ratio
// annualizes over 365 periods rather than 252.
const annualizationPeriods = 365

// finalize fills in the derived metrics from the portfolio ledger and
// the round-trip bookkeeping collected during the run.
func finalize(result *Result, wins, roundTrips int) {
	result.FinalValue = result.InitialCapital
	if n := len(result.PortfolioHistory); n > 0 {
		result.FinalValue = result.PortfolioHistory[n-1].Value
	}
	result.TotalReturn = (result.FinalValue - result.InitialCapital) / result.InitialCapital

	if roundTrips > 0 {
		result.WinRate = float64(wins) / float64(roundTrips)
	}

	result.SharpeRatio = sharpeRatio(result.PortfolioHistory)
	result.MaxDrawdown = maxDrawdown(result.PortfolioHistory)
}

// sharpeRatio computes the annualized Sharpe ratio over step returns.
// A zero-variance series (no trades, flat portfolio) scores zero.
func sharpeRatio(history []PortfolioPoint) float64 {
	if len(history) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, (history[i].Value-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return (mean / stdDev) * math.Sqrt(annualizationPeriods)
}

// maxDrawdown returns the largest peak-to-trough loss as a fraction of
// the running peak.
func maxDrawdown(history []PortfolioPoint) float64 {
	var peak, worst float64
	for _, p := range history {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
