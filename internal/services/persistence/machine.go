// Package persistence implements the debounce counter that turns single
// qualifying evaluations into sustained confirmation.
package persistence

import (
	"time"

	"NTIWatch/internal/domain/models"
)

// Transition applies one run's outcome to the prior state.
//
// Decay runs first: without a last qualifying time, or when more than decay
// has elapsed since it, the counter restarts from 0. Then a qualifying run
// increments the counter and records now; a non-qualifying run resets it and
// keeps the last qualifying time.
//
// The returned Next carries the prior Version; the store bumps it on write.
func Transition(prior models.PersistenceState, qualifies bool, now time.Time, decay time.Duration) models.Transition {
	next := models.PersistenceState{
		Counter:        prior.Counter,
		LastQualifying: prior.LastQualifying,
		Version:        prior.Version,
		UpdatedAt:      now.UTC(),
	}

	t := models.Transition{Prior: prior, Qualified: qualifies}
	if Expired(prior, now, decay) {
		if next.Counter > 0 {
			t.Decayed = true
		}
		next.Counter = 0
	}

	if qualifies {
		next.Counter++
		ts := now.UTC()
		next.LastQualifying = &ts
	} else {
		next.Counter = 0
	}
	t.Next = next
	return t
}

// Expired reports whether the state's evidence is older than the decay
// window. A state that never qualified is always expired.
func Expired(st models.PersistenceState, now time.Time, decay time.Duration) bool {
	if st.LastQualifying == nil {
		return true
	}
	return now.Sub(*st.LastQualifying) > decay
}
