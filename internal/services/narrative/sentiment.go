package narrative

import "NTIWatch/internal/services/quant"

// Sentiment is the polarity imbalance |pos-neg| / (pos+neg).
// Returns 0 without documents or lexicon hits.
func Sentiment(docs [][]string, lex Lexicon) float64 {
	pos, neg := lex.Polarity(docs)
	total := pos + neg
	if total == 0 {
		return 0
	}
	return quant.Clamp01(float64(abs(pos-neg)) / float64(total))
}

// Conflict is high when positive and negative hits are balanced:
// 1 - |pos-neg| / total. Returns 0 without documents or lexicon hits.
func Conflict(docs [][]string, lex Lexicon) float64 {
	pos, neg := lex.Polarity(docs)
	total := pos + neg
	if total == 0 {
		return 0
	}
	return quant.Clamp01(1 - float64(abs(pos-neg))/float64(total))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
