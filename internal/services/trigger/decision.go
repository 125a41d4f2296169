// Package trigger decides whether an evaluation fires and packages the
// artifact that explains the decision.
package trigger

import (
	"fmt"
	"math"
	"strings"

	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/domain/repository"
)

// Decide fires iff the state was persisted, index >= trigger threshold and
// counter >= required consecutive runs.
func Decide(index float64, counter int, persisted bool, th models.Thresholds) models.Decision {
	var blockers []string
	if !persisted {
		blockers = append(blockers, "persistence state not updated")
	}
	if index < th.TriggerThreshold {
		blockers = append(blockers, fmt.Sprintf("nti %.4f below trigger threshold %.4f", index, th.TriggerThreshold))
	}
	if counter < th.RequiredConsecutive {
		blockers = append(blockers, fmt.Sprintf("persistence %d of %d consecutive qualifying runs", counter, th.RequiredConsecutive))
	}
	if len(blockers) > 0 {
		return models.Decision{
			Fired:     false,
			Reason:    "not triggered: " + strings.Join(blockers, "; "),
			Persisted: persisted,
		}
	}
	return models.Decision{
		Fired: true,
		Reason: fmt.Sprintf("triggered: nti %.4f >= %.4f after %d consecutive qualifying runs (required %d)",
			index, th.TriggerThreshold, counter, th.RequiredConsecutive),
		Persisted: true,
	}
}

// ValidateThresholds checks the trigger parameters.
func ValidateThresholds(th models.Thresholds) error {
	switch {
	case math.IsNaN(th.TriggerThreshold) || th.TriggerThreshold < 0 || th.TriggerThreshold > 1:
		return fmt.Errorf("%w: trigger threshold must be within [0,1], got %v", repository.ErrInvalidConfig, th.TriggerThreshold)
	case th.RequiredConsecutive < 1:
		return fmt.Errorf("%w: required consecutive runs must be at least 1, got %d", repository.ErrInvalidConfig, th.RequiredConsecutive)
	case th.DecayWindow <= 0:
		return fmt.Errorf("%w: decay window must be positive, got %s", repository.ErrInvalidConfig, th.DecayWindow)
	}
	return nil
}
