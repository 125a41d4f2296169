package trigger

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"NTIWatch/internal/domain/models"
)

const (
	ArtifactStage   = "stage1"
	ArtifactVersion = "1.1"
)

// ArtifactInput collects everything one run knows about itself.
// Transition is nil when the persistence state could not be read or written.
type ArtifactInput struct {
	RunID       string
	Now         time.Time
	Synthesis   models.Synthesis
	Domains     models.DomainScores
	Instruments map[string]models.InstrumentSignals
	Coverage    models.DataCoverage
	Transition  *models.Transition
	Decision    models.Decision
	Thresholds  models.Thresholds
	Notes       models.Notes
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// BuildArtifact packages one evaluation. Maps and slices are copied so the
// artifact does not alias the caller's data.
func BuildArtifact(in ArtifactInput) *models.TriggerArtifact {
	runID := in.RunID
	if runID == "" {
		runID = NewRunID()
	}

	var state models.PersistenceState
	observed := 0
	decayed := false
	if in.Transition != nil {
		state = in.Transition.Next
		observed = state.Counter
		decayed = in.Transition.Decayed
	}

	domains := make(models.DomainScores, len(in.Domains))
	for d, s := range in.Domains {
		s.Components = copyFloats(s.Components)
		s.Rejected = append([]string(nil), s.Rejected...)
		domains[d] = s
	}

	instruments := make(map[string]models.InstrumentSignals, len(in.Instruments))
	for sym, sig := range in.Instruments {
		instruments[sym] = sig
	}

	th := in.Thresholds
	th.Weights = make(map[models.Domain]float64, len(in.Thresholds.Weights))
	for d, w := range in.Thresholds.Weights {
		th.Weights[d] = w
	}

	return &models.TriggerArtifact{
		Meta: models.ArtifactMeta{
			RunID:     runID,
			Timestamp: in.Now.UTC(),
			Stage:     ArtifactStage,
			Version:   ArtifactVersion,
		},
		Decision: models.ArtifactDecision{
			NTI:                 in.Synthesis.Index,
			NTIThreshold:        in.Thresholds.TriggerThreshold,
			QualifyingThreshold: in.Thresholds.QualifyingThreshold,
			Qualifies:           in.Synthesis.Qualifies,
			PersistenceRequired: in.Thresholds.RequiredConsecutive,
			PersistenceObserved: observed,
			Persisted:           in.Decision.Persisted,
			Decayed:             decayed,
			Fired:               in.Decision.Fired,
			Reason:              in.Decision.Reason,
		},
		Synthesis: in.Synthesis,
		Domains:   domains,
		ComponentFlags: models.ComponentFlags{
			Strong:  append([]models.Domain{}, in.Synthesis.StrongDomains...),
			Missing: append([]models.Domain{}, in.Synthesis.MissingDomains...),
		},
		QuantBreakdown: copyFloats(in.Domains[models.DomainQuant].Components),
		NLPBreakdown:   copyFloats(in.Domains[models.DomainNarrative].Components),
		Instruments:    instruments,
		DataCoverage:   copyCoverage(in.Coverage),
		Thresholds:     th,
		State:          state,
		Notes: models.Notes{
			Degradations: append([]string{}, in.Notes.Degradations...),
			Warnings:     append([]string{}, in.Notes.Warnings...),
		},
	}
}

func copyFloats(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyCoverage(c models.DataCoverage) models.DataCoverage {
	out := models.DataCoverage{
		Analyzed:       append([]string{}, c.Analyzed...),
		Excluded:       append([]string{}, c.Excluded...),
		ReasonExcluded: make(map[string]string, len(c.ReasonExcluded)),
	}
	for k, v := range c.ReasonExcluded {
		out.ReasonExcluded[k] = v
	}
	sort.Strings(out.Analyzed)
	sort.Strings(out.Excluded)
	return out
}
