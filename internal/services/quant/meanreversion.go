package quant

import "math"

// MeanReversion is the relative distance between the latest price and its
// simple moving average over window points.
func MeanReversion(prices []float64, window int) float64 {
	if window < 1 || len(prices) < window {
		return 0
	}
	sma := Mean(prices[len(prices)-window:])
	if sma == 0 {
		return 0
	}
	last := prices[len(prices)-1]
	return Clamp01(math.Abs(last-sma) / sma)
}
