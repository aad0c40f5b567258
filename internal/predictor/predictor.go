// Package predictor wraps the price-direction model behind a small
// interface so the decision loop and backtester can substitute a
// deterministic stub.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"regime-trading-bot/internal/features"
	"regime-trading-bot/internal/market"
)

// Timesteps is the aligned window length the model expects. Predict
// requires at least Timesteps+1 entries per series.
const Timesteps = 30

// ErrShapeMismatch indicates the derived feature window does not match
// the model's expected dimensions.
var ErrShapeMismatch = errors.New("predictor: input shape mismatch")

// Prediction is the model output for one decision step. Immutable once
// produced.
type Prediction struct {
	BuyProb    float64           `json:"buy_prob"`
	SellProb   float64           `json:"sell_prob"`
	Confidence float64           `json:"confidence"` // max(BuyProb, SellProb)
	Features   features.Snapshot `json:"features"`
}

// Predictor produces a prediction from aligned primary/reference
// windows. The reference asset acts as a macro signal.
type Predictor interface {
	Predict(ctx context.Context, primary, reference market.Series) (*Prediction, error)
}

// validate enforces the shared input contract.
func validate(primary, reference market.Series) error {
	if err := market.Aligned(primary, reference); err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if len(primary) < Timesteps+1 {
		return fmt.Errorf("%w: need at least %d entries, got %d", ErrShapeMismatch, Timesteps+1, len(primary))
	}
	return nil
}

// Fixed always returns the same probabilities with freshly computed
// features. Used by tests and dry runs.
type Fixed struct {
	BuyProb  float64
	SellProb float64
}

// Predict implements Predictor.
func (f *Fixed) Predict(_ context.Context, primary, reference market.Series) (*Prediction, error) {
	if err := validate(primary, reference); err != nil {
		return nil, err
	}

	conf := f.BuyProb
	if f.SellProb > conf {
		conf = f.SellProb
	}

	return &Prediction{
		BuyProb:    f.BuyProb,
		SellProb:   f.SellProb,
		Confidence: conf,
		Features:   features.Compute(primary),
	}, nil
}
