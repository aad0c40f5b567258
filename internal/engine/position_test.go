package engine

import (
	"testing"
	"time"
)

func TestPositionLifecycle(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var pos PositionState

	if pos.Holding() {
		t.Error("fresh position should be flat")
	}
	if pos.DaysHeld(t0.AddDate(0, 0, 5)) != 0 {
		t.Error("flat position should report 0 days held")
	}

	pos.ApplyBuy(2.5, 100, t0)
	if !pos.Holding() {
		t.Error("position should be open after a buy")
	}
	if pos.LastBuyPrice != 100 || pos.PeakPrice != 100 {
		t.Errorf("entry prices = %v/%v, want 100/100", pos.LastBuyPrice, pos.PeakPrice)
	}
	if got := pos.DaysHeld(t0.AddDate(0, 0, 3)); got != 3 {
		t.Errorf("DaysHeld = %d, want 3", got)
	}

	pos.UpdatePeak(110)
	if pos.PeakPrice != 110 {
		t.Errorf("peak = %v, want 110", pos.PeakPrice)
	}
	pos.UpdatePeak(105)
	if pos.PeakPrice != 110 {
		t.Errorf("peak lowered to %v, watermark must only rise", pos.PeakPrice)
	}

	pos.ApplySell()
	if pos.Holding() || pos.LastBuyPrice != 0 || pos.PeakPrice != 0 {
		t.Errorf("position not cleared after sell: %+v", pos)
	}
}

func TestUpdatePeakWhileFlat(t *testing.T) {
	var pos PositionState
	pos.UpdatePeak(120)
	if pos.PeakPrice != 0 {
		t.Errorf("flat position recorded a peak: %v", pos.PeakPrice)
	}
}
