package quant

import "math"

// VolatilityRegime measures how far the latest realized volatility has
// moved from its EMA-smoothed baseline: |vol - ema| / ema, clamped.
// Returns 0 when there is not enough history or the baseline is not positive.
func VolatilityRegime(prices []float64, realizedWindow, emaWindow int) float64 {
	if realizedWindow < 2 || emaWindow < 1 {
		return 0
	}
	if len(prices) <= max(realizedWindow, emaWindow)+1 {
		return 0
	}
	rets := LogReturns(prices)
	if len(rets) <= realizedWindow {
		return 0
	}
	vols := RollingVolatility(rets, realizedWindow)
	if len(vols) < emaWindow {
		return 0
	}

	alpha := 2 / (float64(emaWindow) + 1)
	baseline := EMA(vols[len(vols)-emaWindow:], alpha)
	if baseline <= 0 {
		return 0
	}
	current := vols[len(vols)-1]
	return Clamp01(math.Abs(current-baseline) / baseline)
}
