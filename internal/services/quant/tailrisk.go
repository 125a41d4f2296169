package quant

import (
	"math"
	"sort"
)

// MinTailReturns is the minimum number of log returns for a tail estimate.
const MinTailReturns = 10

// DefaultTailAlpha is the default tail probability.
const DefaultTailAlpha = 0.05

// TailRisk is an expected-shortfall proxy: the absolute mean of the worst
// alpha fraction of log returns.
func TailRisk(prices []float64, alpha float64) float64 {
	if alpha <= 0 || alpha > 1 {
		return 0
	}
	rets := LogReturns(prices)
	if len(rets) < MinTailReturns {
		return 0
	}
	sorted := make([]float64, len(rets))
	copy(sorted, rets)
	sort.Float64s(sorted)

	cut := int(float64(len(sorted)) * alpha)
	if cut == 0 {
		return 0
	}
	return Clamp01(math.Abs(Mean(sorted[:cut])))
}
