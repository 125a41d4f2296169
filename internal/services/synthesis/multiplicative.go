package synthesis

import "NTIWatch/internal/domain/models"

// GatedMultiplicative scales quant strength by a bounded multiplier per
// present auxiliary domain, so auxiliary evidence can amplify or dampen the
// index but never originate it.
type GatedMultiplicative struct {
	cfg Config
}

func (g *GatedMultiplicative) Name() string { return VariantGatedMultiplicative }

func (g *GatedMultiplicative) Synthesize(scores models.DomainScores) (models.Synthesis, error) {
	out, ok := g.cfg.gate(scores, VariantGatedMultiplicative)
	if !ok {
		return out, nil
	}
	index := out.Strength
	for _, d := range models.KnownDomains {
		if d == models.DomainQuant {
			continue
		}
		if _, weighted := g.cfg.Weights[d]; !weighted {
			continue
		}
		s, present := scores[d]
		if !present || !s.Present() {
			continue
		}
		index *= g.multiplier(s.Value)
	}
	return g.cfg.qualify(out, index), nil
}

func (g *GatedMultiplicative) multiplier(score float64) float64 {
	lo, hi := g.cfg.MultiplierMin, g.cfg.MultiplierMax
	return lo + (hi-lo)*score
}
