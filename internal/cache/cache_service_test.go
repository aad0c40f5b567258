package cache

import "testing"

func TestSeriesKey(t *testing.T) {
	if got, want := SeriesKey("BTC", "usd", 90), "series:BTC:usd:90"; got != want {
		t.Errorf("SeriesKey = %q, want %q", got, want)
	}
}

func TestRecommendationKey(t *testing.T) {
	if got, want := RecommendationKey("BTC"), "recommendation:BTC"; got != want {
		t.Errorf("RecommendationKey = %q, want %q", got, want)
	}
}
