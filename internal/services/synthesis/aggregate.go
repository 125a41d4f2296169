package synthesis

import (
	"math"
	"sort"

	"NTIWatch/internal/domain/models"
)

// Aggregate collapses named component signals into one domain score: the
// mean over components that are finite and within [0,1]. Anything else is
// recorded as rejected and treated as missing, never as zero.
func Aggregate(domain models.Domain, components map[string]float64) models.DomainScore {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	score := models.DomainScore{
		Domain:     domain,
		Components: make(map[string]float64, len(components)),
	}
	sum := 0.0
	for _, name := range names {
		v := components[name]
		if !validComponent(v) {
			score.Rejected = append(score.Rejected, name)
			continue
		}
		score.Components[name] = v
		sum += v
		score.Count++
	}
	if score.Count > 0 {
		score.Value = sum / float64(score.Count)
	}
	return score
}

func validComponent(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 1
}
