// Package synthesis fuses domain scores into the composite index.
package synthesis

import (
	"fmt"
	"math"

	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/domain/repository"
	"NTIWatch/internal/domain/service"
)

// Variant names.
const (
	VariantGatedLinear         = "gated_linear"
	VariantGatedMultiplicative = "gated_multiplicative"
)

// weightTolerance bounds how far the weights may drift from summing to 1.
const weightTolerance = 1e-9

// Reasons recorded on a Synthesis.
const (
	ReasonQuantMissing       = "quant_missing"
	ReasonQuantBelowFloor    = "quant_below_floor"
	ReasonBelowQualifying    = "index_below_qualifying_threshold"
	ReasonInsufficientStrong = "insufficient_strong_domains"
	ReasonQualified          = "qualified"
)

// Config holds the synthesis parameters. None of them has a default.
type Config struct {
	Variant             string
	Weights             map[models.Domain]float64
	StrengthFloor       float64
	StrongThreshold     float64
	MinStrongDomains    int
	QualifyingThreshold float64
	MultiplierMin       float64
	MultiplierMax       float64
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if len(c.Weights) == 0 {
		return invalid("weights are required")
	}
	for _, d := range []models.Domain{models.DomainQuant, models.DomainNarrative} {
		if _, ok := c.Weights[d]; !ok {
			return invalid("weight for domain %s is required", d)
		}
	}
	sum := 0.0
	for _, d := range models.KnownDomains {
		w, ok := c.Weights[d]
		if !ok {
			continue
		}
		if math.IsNaN(w) || w < 0 {
			return invalid("weight for domain %s must be non-negative, got %v", d, w)
		}
		sum += w
	}
	for d := range c.Weights {
		if !models.IsKnownDomain(d) {
			return invalid("unknown domain %q", d)
		}
	}
	if math.Abs(sum-1) > weightTolerance {
		return invalid("weights must sum to 1, got %v", sum)
	}

	for _, th := range []struct {
		name string
		v    float64
	}{
		{"strength_floor", c.StrengthFloor},
		{"strong_threshold", c.StrongThreshold},
		{"qualifying_threshold", c.QualifyingThreshold},
	} {
		if math.IsNaN(th.v) || th.v < 0 || th.v > 1 {
			return invalid("%s must be within [0,1], got %v", th.name, th.v)
		}
	}
	if c.MinStrongDomains < 1 {
		return invalid("min_strong_domains must be at least 1, got %d", c.MinStrongDomains)
	}

	if c.Variant == VariantGatedMultiplicative {
		if c.MultiplierMin < 0 || c.MultiplierMax < c.MultiplierMin {
			return invalid("multiplier range [%v,%v] is invalid", c.MultiplierMin, c.MultiplierMax)
		}
	}
	return nil
}

// NewSynthesizer validates cfg and returns the configured variant.
// An empty variant selects gated_linear.
func NewSynthesizer(cfg Config) (service.Synthesizer, error) {
	if cfg.Variant == "" {
		cfg.Variant = VariantGatedLinear
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Variant {
	case VariantGatedLinear:
		return &GatedLinear{cfg: cfg}, nil
	case VariantGatedMultiplicative:
		return &GatedMultiplicative{cfg: cfg}, nil
	default:
		return nil, invalid("unknown synthesis variant %q", cfg.Variant)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: synthesis: %s", repository.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
