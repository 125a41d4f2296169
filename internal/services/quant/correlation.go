package quant

import (
	"math"
	"sort"
)

// CorrelationBreakdown compares, for every pair of instruments, the Pearson
// correlation of simple returns over the older window against the newer
// window and returns the clamped mean absolute change.
//
// Instruments need at least 2*window returns. Pairs with a zero-variance
// window are skipped. Pairs are visited in sorted symbol order.
func CorrelationBreakdown(series map[string][]float64, window int) float64 {
	if window < 2 || len(series) < 2 {
		return 0
	}

	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	usable := make([][]float64, 0, len(symbols))
	for _, s := range symbols {
		r := SimpleReturns(series[s])
		if len(r) >= 2*window {
			usable = append(usable, r)
		}
	}
	if len(usable) < 2 {
		return 0
	}

	deltas := make([]float64, 0, len(usable)*(len(usable)-1)/2)
	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			a, b := usable[i], usable[j]
			prev, ok := Pearson(olderWindow(a, window), olderWindow(b, window))
			if !ok {
				continue
			}
			curr, ok := Pearson(a[len(a)-window:], b[len(b)-window:])
			if !ok {
				continue
			}
			deltas = append(deltas, math.Abs(curr-prev))
		}
	}
	if len(deltas) == 0 {
		return 0
	}
	return Clamp01(Mean(deltas))
}

func olderWindow(r []float64, window int) []float64 {
	return r[len(r)-2*window : len(r)-window]
}
