package service

import "NTIWatch/internal/domain/models"

// Synthesizer fuses domain scores into a composite index and a
// qualification verdict. Implementations must be deterministic and keep
// the index inside [0,1].
type Synthesizer interface {
	Name() string
	Synthesize(scores models.DomainScores) (models.Synthesis, error)
}
