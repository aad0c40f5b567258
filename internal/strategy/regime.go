package strategy

import "fmt"

// Regime is the classified market behavior mode driving which rule set
// is active.
type Regime int

const (
	MeanReversion Regime = iota
	Momentum
	Breakout
	TrendFollowing
)

var regimeNames = [...]string{
	MeanReversion:  "MEAN_REVERSION",
	Momentum:       "MOMENTUM",
	Breakout:       "BREAKOUT",
	TrendFollowing: "TREND_FOLLOWING",
}

func (r Regime) String() string {
	if r < 0 || int(r) >= len(regimeNames) {
		return fmt.Sprintf("Regime(%d)", int(r))
	}
	return regimeNames[r]
}

// Regimes returns every regime in enumeration order.
func Regimes() []Regime {
	return []Regime{MeanReversion, Momentum, Breakout, TrendFollowing}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
