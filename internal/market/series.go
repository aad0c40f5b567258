package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrSeriesMismatch indicates two series that must be aligned have
// different lengths.
var ErrSeriesMismatch = errors.New("price series lengths do not match")

// ErrInsufficientHistory indicates a series is too short for the
// requested operation.
var ErrInsufficientHistory = errors.New("insufficient price history")

// Point is a single daily observation for one asset.
type Point struct {
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
}

// Series is an ordered sequence of daily observations, oldest first.
type Series []Point

// Prices returns the close prices in chronological order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Volumes returns the volumes in chronological order.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Volume
	}
	return out
}

// Last returns the most recent point. Panics on an empty series.
func (s Series) Last() Point {
	return s[len(s)-1]
}

// Window returns the prefix ending at index end (exclusive). Used by the
// backtester to slice history without look-ahead.
func (s Series) Window(end int) Series {
	if end > len(s) {
		end = len(s)
	}
	return s[:end]
}

// Tail returns the last n points, or the whole series if shorter.
func (s Series) Tail(n int) Series {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Aligned verifies the primary and reference series can be used together.
func Aligned(primary, reference Series) error {
	if len(primary) != len(reference) {
		return fmt.Errorf("%w: primary=%d reference=%d", ErrSeriesMismatch, len(primary), len(reference))
	}
	return nil
}

// FromArrays builds a Series from parallel price/volume arrays, assigning
// one calendar day per entry ending at end.
func FromArrays(prices, volumes []float64, end time.Time) (Series, error) {
	if len(prices) != len(volumes) {
		return nil, fmt.Errorf("%w: prices=%d volumes=%d", ErrSeriesMismatch, len(prices), len(volumes))
	}
	s := make(Series, len(prices))
	for i := range prices {
		s[i] = Point{
			Time:   end.AddDate(0, 0, i-len(prices)+1),
			Price:  prices[i],
			Volume: volumes[i],
		}
	}
	return s, nil
}
