package models

// Domain names a category of evidence.
type Domain string

const (
	DomainQuant       Domain = "Q"
	DomainNarrative   Domain = "N"
	DomainStructural  Domain = "S"
	DomainPersistence Domain = "P"
	DomainFragility   Domain = "F"
)

// KnownDomains lists every domain in canonical order.
var KnownDomains = []Domain{DomainQuant, DomainNarrative, DomainStructural, DomainPersistence, DomainFragility}

// IsKnownDomain reports whether d is one of KnownDomains.
func IsKnownDomain(d Domain) bool {
	for _, k := range KnownDomains {
		if k == d {
			return true
		}
	}
	return false
}

// Component signal names.
const (
	CompPrice       = "Q_price"
	CompVolatility  = "Q_vol"
	CompMeanRevert  = "Q_mr"
	CompTail        = "Q_tail"
	CompCorrelation = "Q_corr"

	CompSentiment = "N_sent"
	CompConflict  = "N_conflict"
	CompBurst     = "N_burst"
)

// InstrumentSignals is the per-instrument breakdown of one evaluation.
// Narrative values are nil when the instrument had no documents.
type InstrumentSignals struct {
	Symbol         string   `json:"symbol"`
	Points         int      `json:"points"`
	ZScore         float64  `json:"zscore"`
	Volatility     float64  `json:"volatility"`
	MeanReversion  float64  `json:"mean_reversion"`
	TailRisk       float64  `json:"tail_risk"`
	Sentiment      *float64 `json:"sentiment,omitempty"`
	Conflict       *float64 `json:"conflict,omitempty"`
	RelevanceBurst *float64 `json:"relevance_burst,omitempty"`
}

// DomainScore is the mean of the valid components of one domain.
// Count == 0 means no evidence, which is not the same as a confirmed zero.
type DomainScore struct {
	Domain     Domain             `json:"domain"`
	Value      float64            `json:"value"`
	Count      int                `json:"count"`
	Components map[string]float64 `json:"components"`
	Rejected   []string           `json:"rejected,omitempty"`
}

// Present reports whether at least one valid component contributed.
func (s DomainScore) Present() bool { return s.Count > 0 }

// DomainScores maps a domain to its aggregated score.
type DomainScores map[Domain]DomainScore

// Synthesis is the output of a Synthesizer.
type Synthesis struct {
	Variant        string   `json:"variant"`
	Index          float64  `json:"index"`
	Qualifies      bool     `json:"qualifies"`
	Strength       float64  `json:"strength"`
	StrongDomains  []Domain `json:"strong_domains"`
	MissingDomains []Domain `json:"missing_domains"`
	Reasons        []string `json:"reasons,omitempty"`
}
