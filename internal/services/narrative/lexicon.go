// Package narrative scores tokenized document sets against fixed lexicons.
// Documents are token slices; matching is case-insensitive.
package narrative

import "strings"

// Lexicon holds the positive and negative token sets. Keys are lower case.
type Lexicon struct {
	Positive map[string]struct{}
	Negative map[string]struct{}
}

var (
	defaultPositive = []string{
		"gain", "gains", "up", "positive", "bull", "bullish",
		"strong", "growth", "optimistic", "surge", "rally",
	}
	defaultNegative = []string{
		"loss", "losses", "down", "negative", "bear", "bearish",
		"weak", "decline", "pessimistic", "drop", "crash",
	}
)

// DefaultLexicon returns the built-in financial word lists.
func DefaultLexicon() Lexicon {
	return NewLexicon(defaultPositive, defaultNegative)
}

// NewLexicon builds a lexicon from word lists. A word listed on both sides
// is kept positive only.
func NewLexicon(positive, negative []string) Lexicon {
	lex := Lexicon{
		Positive: make(map[string]struct{}, len(positive)),
		Negative: make(map[string]struct{}, len(negative)),
	}
	for _, w := range positive {
		lex.Positive[normalize(w)] = struct{}{}
	}
	for _, w := range negative {
		k := normalize(w)
		if _, ok := lex.Positive[k]; ok {
			continue
		}
		lex.Negative[k] = struct{}{}
	}
	return lex
}

// Polarity counts positive and negative hits across all documents.
func (l Lexicon) Polarity(docs [][]string) (pos, neg int) {
	for _, doc := range docs {
		for _, tok := range doc {
			k := normalize(tok)
			if _, ok := l.Positive[k]; ok {
				pos++
			} else if _, ok := l.Negative[k]; ok {
				neg++
			}
		}
	}
	return pos, neg
}

func normalize(tok string) string {
	return strings.ToLower(strings.TrimSpace(tok))
}
