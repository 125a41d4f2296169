package synthesis

import (
	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/domain/service"
	"NTIWatch/internal/services/quant"
)

var (
	_ service.Synthesizer = (*GatedLinear)(nil)
	_ service.Synthesizer = (*GatedMultiplicative)(nil)
)

// GatedLinear is the default synthesizer: quant evidence is mandatory and
// must clear the strength floor, then present domains are combined with
// their configured weights. Absent domains contribute nothing and the
// remaining weights are not renormalized.
type GatedLinear struct {
	cfg Config
}

func (g *GatedLinear) Name() string { return VariantGatedLinear }

func (g *GatedLinear) Synthesize(scores models.DomainScores) (models.Synthesis, error) {
	out, ok := g.cfg.gate(scores, VariantGatedLinear)
	if !ok {
		return out, nil
	}
	index := 0.0
	for _, d := range models.KnownDomains {
		w, weighted := g.cfg.Weights[d]
		s, present := scores[d]
		if !weighted || !present || !s.Present() {
			continue
		}
		index += w * s.Value
	}
	return g.cfg.qualify(out, index), nil
}

// gate fills the descriptive fields and applies the quant gates. ok is false
// when the run was rejected; the returned synthesis is then final.
func (c Config) gate(scores models.DomainScores, variant string) (models.Synthesis, bool) {
	out := models.Synthesis{
		Variant:        variant,
		StrongDomains:  []models.Domain{},
		MissingDomains: []models.Domain{},
	}
	for _, d := range models.KnownDomains {
		if _, weighted := c.Weights[d]; !weighted {
			continue
		}
		s, present := scores[d]
		if !present || !s.Present() {
			out.MissingDomains = append(out.MissingDomains, d)
			continue
		}
		if s.Value > c.StrongThreshold {
			out.StrongDomains = append(out.StrongDomains, d)
		}
	}

	q, ok := scores[models.DomainQuant]
	if !ok || !q.Present() {
		out.Reasons = append(out.Reasons, ReasonQuantMissing)
		return out, false
	}
	out.Strength = q.Value
	if q.Value < c.StrengthFloor {
		out.Reasons = append(out.Reasons, ReasonQuantBelowFloor)
		return out, false
	}
	return out, true
}

// qualify clamps the index and applies the threshold and agreement gates.
func (c Config) qualify(out models.Synthesis, index float64) models.Synthesis {
	out.Index = quant.Clamp01(index)
	aboveThreshold := out.Index >= c.QualifyingThreshold
	agreement := len(out.StrongDomains) >= c.MinStrongDomains
	if !aboveThreshold {
		out.Reasons = append(out.Reasons, ReasonBelowQualifying)
	}
	if !agreement {
		out.Reasons = append(out.Reasons, ReasonInsufficientStrong)
	}
	out.Qualifies = aboveThreshold && agreement
	if out.Qualifies {
		out.Reasons = append(out.Reasons, ReasonQualified)
	}
	return out
}
