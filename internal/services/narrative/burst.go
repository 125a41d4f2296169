package narrative

import (
	"sort"

	"NTIWatch/internal/services/quant"
)

// RelevanceBurst compares token counts in the current window against a
// historical baseline. For every current token also seen in the baseline the
// ratio current/baseline is taken; the result is the clamped mean ratio.
// Returns 0 when either corpus is empty or no token overlaps.
func RelevanceBurst(current, baseline [][]string) float64 {
	cur := countTokens(current)
	base := countTokens(baseline)
	if len(cur) == 0 || len(base) == 0 {
		return 0
	}

	tokens := make([]string, 0, len(cur))
	for tok := range cur {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	sum := 0.0
	n := 0
	for _, tok := range tokens {
		b := base[tok]
		if b == 0 {
			continue
		}
		sum += float64(cur[tok]) / float64(b)
		n++
	}
	if n == 0 {
		return 0
	}
	return quant.Clamp01(sum / float64(n))
}

func countTokens(docs [][]string) map[string]int {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range doc {
			k := normalize(tok)
			if k == "" {
				continue
			}
			counts[k]++
		}
	}
	return counts
}
