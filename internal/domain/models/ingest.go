package models

import "math"

// FetchStatus is the outcome of one ingestion call for one instrument.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchFailed FetchStatus = "failed"
)

// Exclusion reasons recorded in data coverage.
const (
	ReasonFetchFailed          = "fetch_failed"
	ReasonNoData               = "no_data"
	ReasonInsufficientHistory  = "insufficient_history"
	ReasonNotReturned          = "not_returned"
	ReasonQuotaExhausted       = "quota_exhausted"
	ReasonNarrativeUnavailable = "narrative_unavailable"
)

// PriceFetch is the per-instrument result of price ingestion.
// Prices are ordered oldest-first and never mutated after ingestion.
type PriceFetch struct {
	Symbol string
	Prices []float64
	Status FetchStatus
	Reason string
}

// PriceOK builds a successful fetch.
func PriceOK(symbol string, prices []float64) PriceFetch {
	return PriceFetch{Symbol: symbol, Prices: prices, Status: FetchOK}
}

// PriceFailed builds a failed fetch with a reason.
func PriceFailed(symbol, reason string) PriceFetch {
	return PriceFetch{Symbol: symbol, Status: FetchFailed, Reason: reason}
}

// DocumentSet holds tokenized documents for the current window and the
// historical baseline used for burst detection.
type DocumentSet struct {
	Current  [][]string
	Baseline [][]string
}

// Empty reports whether the set has no current documents.
func (d DocumentSet) Empty() bool { return len(d.Current) == 0 }

// DocumentFetch is the per-instrument result of narrative ingestion.
type DocumentFetch struct {
	Symbol string
	Docs   DocumentSet
	Status FetchStatus
	Reason string
}

// DocumentsOK builds a successful fetch.
func DocumentsOK(symbol string, docs DocumentSet) DocumentFetch {
	return DocumentFetch{Symbol: symbol, Docs: docs, Status: FetchOK}
}

// DocumentsFailed builds a failed fetch with a reason.
func DocumentsFailed(symbol, reason string) DocumentFetch {
	return DocumentFetch{Symbol: symbol, Status: FetchFailed, Reason: reason}
}

// CleanSeries drops gaps (non-finite or non-positive prices) without
// interpolating. The input slice is not modified.
func CleanSeries(prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}
