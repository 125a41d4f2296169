package models

import "time"

// PersistenceState is the only entity that survives across runs.
// Version increments on every successful write and backs compare-and-swap.
type PersistenceState struct {
	Counter        int        `json:"counter"`
	LastQualifying *time.Time `json:"last_qualifying,omitempty"`
	Version        int64      `json:"version"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Transition is the result of applying one run to a prior state.
type Transition struct {
	Prior     PersistenceState `json:"prior"`
	Next      PersistenceState `json:"next"`
	Decayed   bool             `json:"decayed"`
	Qualified bool             `json:"qualified"`
}
