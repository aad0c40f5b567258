package indicators

import (
	"math"

	"regime-trading-bot/internal/market"
)

// Chart pattern detectors scan a fixed lookback window for reversal
// structures. They are binary context signals, not primary triggers:
// every detector requires near-equal extremes, a support/neckline break
// by the current price, and a volume confirmation.

// PatternLookback is the default number of bars scanned for extrema.
const PatternLookback = 30

const (
	peakTolerance        = 0.05 // max relative difference between peaks
	minPeakSeparation    = 2    // bars between qualifying extrema
	breakoutVolumeFactor = 1.5  // breakout volume vs pattern average
	volumeCollapseFactor = 0.6  // post-peak volume vs pattern average
)

// ChartPattern names a detected pattern.
type ChartPattern string

const (
	PatternDoubleTop        ChartPattern = "DOUBLE_TOP"
	PatternTripleTop        ChartPattern = "TRIPLE_TOP"
	PatternHeadAndShoulders ChartPattern = "HEAD_AND_SHOULDERS"
	PatternTripleBottom     ChartPattern = "TRIPLE_BOTTOM"
)

// localMaxima returns indices of local price maxima within the trailing
// lookback, oldest first.
func localMaxima(s market.Series, lookback int) []int {
	start := len(s) - lookback
	if start < 1 {
		start = 1
	}

	var peaks []int
	for i := start; i < len(s)-1; i++ {
		if s[i].Price > s[i-1].Price && s[i].Price >= s[i+1].Price {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// localMinima returns indices of local price minima within the trailing
// lookback, oldest first.
func localMinima(s market.Series, lookback int) []int {
	start := len(s) - lookback
	if start < 1 {
		start = 1
	}

	var troughs []int
	for i := start; i < len(s)-1; i++ {
		if s[i].Price < s[i-1].Price && s[i].Price <= s[i+1].Price {
			troughs = append(troughs, i)
		}
	}
	return troughs
}

func nearEqual(a, b float64) bool {
	ref := math.Max(math.Abs(a), math.Abs(b))
	if ref == 0 {
		return true
	}
	return math.Abs(a-b)/ref <= peakTolerance
}

// windowAverageVolume averages volume between two indices inclusive.
func windowAverageVolume(s market.Series, from, to int) float64 {
	if from > to || from < 0 || to >= len(s) {
		return 0
	}
	sum := 0.0
	for i := from; i <= to; i++ {
		sum += s[i].Volume
	}
	return sum / float64(to-from+1)
}

// volumeConfirms checks the confirmation clause: breakout volume above
// the pattern's average, or volume collapse after the last extreme.
func volumeConfirms(s market.Series, patternStart, lastExtreme int) bool {
	patternAvg := windowAverageVolume(s, patternStart, lastExtreme)
	if patternAvg == 0 {
		return false
	}

	if s.Last().Volume > patternAvg*breakoutVolumeFactor {
		return true
	}

	postAvg := windowAverageVolume(s, lastExtreme, len(s)-1)
	return postAvg < patternAvg*volumeCollapseFactor
}

// supportBetween returns the lowest price between two indices, the
// pattern's support/neckline.
func supportBetween(s market.Series, from, to int) float64 {
	support := s[from].Price
	for i := from; i <= to; i++ {
		if s[i].Price < support {
			support = s[i].Price
		}
	}
	return support
}

// IsDoubleTop detects two near-equal peaks followed by a support break.
func IsDoubleTop(s market.Series, lookback int) bool {
	if len(s) < minPeakSeparation+3 {
		return false
	}

	peaks := localMaxima(s, lookback)
	for i := 0; i < len(peaks); i++ {
		for j := i + 1; j < len(peaks); j++ {
			a, b := peaks[i], peaks[j]
			if b-a < minPeakSeparation {
				continue
			}
			if !nearEqual(s[a].Price, s[b].Price) {
				continue
			}
			support := supportBetween(s, a, b)
			if s.Last().Price < support && volumeConfirms(s, a, b) {
				return true
			}
		}
	}
	return false
}

// IsTripleTop detects three near-equal peaks followed by a support break.
func IsTripleTop(s market.Series, lookback int) bool {
	if len(s) < 2*minPeakSeparation+4 {
		return false
	}

	peaks := localMaxima(s, lookback)
	for i := 0; i < len(peaks); i++ {
		for j := i + 1; j < len(peaks); j++ {
			for k := j + 1; k < len(peaks); k++ {
				a, b, c := peaks[i], peaks[j], peaks[k]
				if b-a < minPeakSeparation || c-b < minPeakSeparation {
					continue
				}
				if !nearEqual(s[a].Price, s[b].Price) || !nearEqual(s[b].Price, s[c].Price) {
					continue
				}
				support := supportBetween(s, a, c)
				if s.Last().Price < support && volumeConfirms(s, a, c) {
					return true
				}
			}
		}
	}
	return false
}

// IsHeadAndShoulders detects a higher central peak between two
// near-equal shoulders, with the neckline broken.
func IsHeadAndShoulders(s market.Series, lookback int) bool {
	if len(s) < 2*minPeakSeparation+4 {
		return false
	}

	peaks := localMaxima(s, lookback)
	for i := 0; i < len(peaks); i++ {
		for j := i + 1; j < len(peaks); j++ {
			for k := j + 1; k < len(peaks); k++ {
				left, head, right := peaks[i], peaks[j], peaks[k]
				if head-left < minPeakSeparation || right-head < minPeakSeparation {
					continue
				}
				if !nearEqual(s[left].Price, s[right].Price) {
					continue
				}
				if s[head].Price <= s[left].Price || s[head].Price <= s[right].Price {
					continue
				}
				neckline := supportBetween(s, left, right)
				if s.Last().Price < neckline && volumeConfirms(s, left, right) {
					return true
				}
			}
		}
	}
	return false
}

// IsTripleBottom detects three near-equal troughs followed by a
// resistance break to the upside.
func IsTripleBottom(s market.Series, lookback int) bool {
	if len(s) < 2*minPeakSeparation+4 {
		return false
	}

	troughs := localMinima(s, lookback)
	for i := 0; i < len(troughs); i++ {
		for j := i + 1; j < len(troughs); j++ {
			for k := j + 1; k < len(troughs); k++ {
				a, b, c := troughs[i], troughs[j], troughs[k]
				if b-a < minPeakSeparation || c-b < minPeakSeparation {
					continue
				}
				if !nearEqual(s[a].Price, s[b].Price) || !nearEqual(s[b].Price, s[c].Price) {
					continue
				}
				resistance := s[a].Price
				for idx := a; idx <= c; idx++ {
					if s[idx].Price > resistance {
						resistance = s[idx].Price
					}
				}
				if s.Last().Price > resistance && volumeConfirms(s, a, c) {
					return true
				}
			}
		}
	}
	return false
}

// DetectChartPatterns runs all detectors over the default lookback.
func DetectChartPatterns(s market.Series) []ChartPattern {
	var found []ChartPattern

	if IsDoubleTop(s, PatternLookback) {
		found = append(found, PatternDoubleTop)
	}
	if IsTripleTop(s, PatternLookback) {
		found = append(found, PatternTripleTop)
	}
	if IsHeadAndShoulders(s, PatternLookback) {
		found = append(found, PatternHeadAndShoulders)
	}
	if IsTripleBottom(s, PatternLookback) {
		found = append(found, PatternTripleBottom)
	}

	return found
}
