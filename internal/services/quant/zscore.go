package quant

import "math"

// zScale maps |z| = 4 to a full-strength signal.
const zScale = 4.0

// flatTolerance is the relative spread under which a baseline is flat.
const flatTolerance = 1e-12

// ZScore averages, over every usable horizon h, the normalized z-score of
// the latest price against the preceding h-1 prices. A horizon is skipped
// when the series is shorter than h or h < 3.
//
// A flat baseline carries no spread to scale by: if the latest price equals
// it the horizon is skipped, otherwise the horizon saturates at 1.
func ZScore(prices []float64, horizons []int) float64 {
	scores := make([]float64, 0, len(horizons))
	for _, h := range horizons {
		if h < 3 || len(prices) < h {
			continue
		}
		window := prices[len(prices)-h:]
		base := window[:h-1]
		last := window[h-1]

		mean := Mean(base)
		sd := PopStdDev(base)
		scale := flatTolerance * math.Max(math.Abs(mean), 1)
		if sd <= scale {
			if math.Abs(last-mean) <= scale {
				continue
			}
			scores = append(scores, 1)
			continue
		}
		z := (last - mean) / sd
		scores = append(scores, Clamp01(math.Abs(z)/zScale))
	}
	if len(scores) == 0 {
		return 0
	}
	return Clamp01(Mean(scores))
}
