package quant

// The Has*History predicates report whether a series is long enough for the
// matching signal to be evidence. A signal without history returns 0, which
// callers must not read as a calm reading.

func HasZScoreHistory(prices []float64, horizons []int) bool {
	for _, h := range horizons {
		if h >= 3 && len(prices) >= h {
			return true
		}
	}
	return false
}

func HasVolatilityHistory(prices []float64, realizedWindow, emaWindow int) bool {
	if realizedWindow < 2 || emaWindow < 1 || len(prices) <= max(realizedWindow, emaWindow)+1 {
		return false
	}
	rets := LogReturns(prices)
	return len(rets) > realizedWindow && len(rets)-realizedWindow+1 >= emaWindow
}

func HasMeanReversionHistory(prices []float64, window int) bool {
	return window >= 1 && len(prices) >= window
}

func HasTailHistory(prices []float64, alpha float64) bool {
	if alpha <= 0 || alpha > 1 {
		return false
	}
	n := len(LogReturns(prices))
	return n >= MinTailReturns && int(float64(n)*alpha) > 0
}

// HasCorrelationHistory needs two instruments with at least 2*window
// simple returns.
func HasCorrelationHistory(series map[string][]float64, window int) bool {
	if window < 2 {
		return false
	}
	n := 0
	for _, p := range series {
		if len(SimpleReturns(p)) >= 2*window {
			n++
		}
	}
	return n >= 2
}
