package trigger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/domain/repository"
)

func thresholds() models.Thresholds {
	return models.Thresholds{
		TriggerThreshold:    0.7,
		QualifyingThreshold: 0.6,
		RequiredConsecutive: 3,
		DecayWindow:         24 * time.Hour,
		StrengthFloor:       0.3,
		StrongThreshold:     0.7,
		MinStrongDomains:    2,
		Weights:             map[models.Domain]float64{models.DomainQuant: 0.6, models.DomainNarrative: 0.4},
	}
}

func TestDecide(t *testing.T) {
	th := thresholds()
	tests := []struct {
		name      string
		index     float64
		counter   int
		persisted bool
		fired     bool
		contains  string
	}{
		{"fires at thresholds", 0.7, 3, true, true, "triggered"},
		{"fires above thresholds", 0.95, 7, true, true, "after 7 consecutive"},
		{"index below", 0.69, 5, true, false, "below trigger threshold"},
		{"counter below", 0.9, 2, true, false, "persistence 2 of 3"},
		{"not persisted", 0.9, 5, false, false, "persistence state not updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.index, tt.counter, tt.persisted, th)
			assert.Equal(t, tt.fired, d.Fired)
			assert.Equal(t, tt.persisted, d.Persisted)
			assert.Contains(t, d.Reason, tt.contains)
		})
	}
}

func TestValidateThresholds(t *testing.T) {
	require.NoError(t, ValidateThresholds(thresholds()))

	bad := thresholds()
	bad.TriggerThreshold = 1.1
	assert.ErrorIs(t, ValidateThresholds(bad), repository.ErrInvalidConfig)

	bad = thresholds()
	bad.RequiredConsecutive = 0
	assert.ErrorIs(t, ValidateThresholds(bad), repository.ErrInvalidConfig)

	bad = thresholds()
	bad.DecayWindow = 0
	assert.ErrorIs(t, ValidateThresholds(bad), repository.ErrInvalidConfig)
}

func TestBuildArtifact(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))
	last := now.UTC()
	quant := map[string]float64{models.CompPrice: 0.9, models.CompTail: 0.4}
	in := ArtifactInput{
		Now: now,
		Synthesis: models.Synthesis{
			Variant:        "gated_linear",
			Index:          0.81,
			Qualifies:      true,
			StrongDomains:  []models.Domain{models.DomainQuant, models.DomainNarrative},
			MissingDomains: []models.Domain{},
		},
		Domains: models.DomainScores{
			models.DomainQuant:     {Domain: models.DomainQuant, Value: 0.65, Count: 2, Components: quant},
			models.DomainNarrative: {Domain: models.DomainNarrative, Value: 0.8, Count: 1, Components: map[string]float64{models.CompSentiment: 0.8}},
		},
		Coverage: models.DataCoverage{
			Analyzed:       []string{"MSFT", "AAPL"},
			Excluded:       []string{"XYZ"},
			ReasonExcluded: map[string]string{"XYZ": "fetch_failed"},
		},
		Transition: &models.Transition{
			Next:    models.PersistenceState{Counter: 3, LastQualifying: &last, Version: 9},
			Decayed: false,
		},
		Decision:   Decide(0.81, 3, true, thresholds()),
		Thresholds: thresholds(),
	}

	a := BuildArtifact(in)
	_, err := uuid.Parse(a.Meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, a.Meta.Timestamp.Location())
	assert.Equal(t, ArtifactStage, a.Meta.Stage)
	assert.True(t, a.Decision.Fired)
	assert.Equal(t, 3, a.Decision.PersistenceObserved)
	assert.Equal(t, 3, a.Decision.PersistenceRequired)
	assert.Equal(t, 0.7, a.Decision.NTIThreshold)
	assert.Equal(t, []string{"AAPL", "MSFT"}, a.DataCoverage.Analyzed)
	assert.Equal(t, int64(9), a.State.Version)
	assert.Equal(t, 0.9, a.QuantBreakdown[models.CompPrice])
	assert.Equal(t, 0.8, a.NLPBreakdown[models.CompSentiment])

	// Mutating the input afterwards must not leak into the artifact.
	quant[models.CompPrice] = 0
	assert.Equal(t, 0.9, a.QuantBreakdown[models.CompPrice])
	assert.Equal(t, 0.9, a.Domains[models.DomainQuant].Components[models.CompPrice])

	in.RunID = "fixed"
	assert.Equal(t, "fixed", BuildArtifact(in).Meta.RunID)
}

func TestBuildArtifact_WithoutPersistence(t *testing.T) {
	a := BuildArtifact(ArtifactInput{
		Now:        time.Now(),
		Synthesis:  models.Synthesis{Index: 0.9, Qualifies: true},
		Decision:   Decide(0.9, 0, false, thresholds()),
		Thresholds: thresholds(),
		Notes:      models.Notes{Degradations: []string{"persistence_unavailable"}},
	})
	assert.False(t, a.Decision.Fired)
	assert.False(t, a.Decision.Persisted)
	assert.Equal(t, 0, a.Decision.PersistenceObserved)
	assert.Equal(t, []string{"persistence_unavailable"}, a.Notes.Degradations)
	assert.NotNil(t, a.QuantBreakdown)
}
