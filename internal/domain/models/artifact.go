package models

import "time"

// Thresholds are the trigger parameters an evaluation ran with.
type Thresholds struct {
	TriggerThreshold    float64            `json:"trigger_threshold"`
	QualifyingThreshold float64            `json:"qualifying_threshold"`
	RequiredConsecutive int                `json:"required_consecutive"`
	DecayWindow         time.Duration      `json:"decay_window_ns"`
	StrengthFloor       float64            `json:"strength_floor"`
	StrongThreshold     float64            `json:"strong_threshold"`
	MinStrongDomains    int                `json:"min_strong_domains"`
	Weights             map[Domain]float64 `json:"weights"`
}

// Decision is the fire/no-fire verdict with its reason.
type Decision struct {
	Fired     bool   `json:"fired"`
	Reason    string `json:"reason"`
	Persisted bool   `json:"persisted"`
}

// ArtifactMeta identifies a run.
type ArtifactMeta struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp_utc"`
	Stage     string    `json:"stage"`
	Version   string    `json:"version"`
}

// ArtifactDecision is the decision block of a TriggerArtifact.
type ArtifactDecision struct {
	NTI                 float64 `json:"nti"`
	NTIThreshold        float64 `json:"nti_threshold"`
	QualifyingThreshold float64 `json:"qualifying_threshold"`
	Qualifies           bool    `json:"qualifies"`
	PersistenceRequired int     `json:"persistence_required"`
	PersistenceObserved int     `json:"persistence_observed"`
	Persisted           bool    `json:"persisted"`
	Decayed             bool    `json:"decayed"`
	Fired               bool    `json:"triggered"`
	Reason              string  `json:"reason"`
}

// ComponentFlags lists strong and missing domains.
type ComponentFlags struct {
	Strong  []Domain `json:"strong"`
	Missing []Domain `json:"missing"`
}

// DataCoverage records which instruments were used and why others were not.
type DataCoverage struct {
	Analyzed       []string          `json:"assets_analyzed"`
	Excluded       []string          `json:"assets_excluded"`
	ReasonExcluded map[string]string `json:"reason_excluded"`
}

// Notes carries degradations and warnings raised during the run.
type Notes struct {
	Degradations []string `json:"degradations"`
	Warnings     []string `json:"warnings"`
}

// TriggerArtifact is the immutable, self-describing record of one evaluation.
type TriggerArtifact struct {
	Meta           ArtifactMeta                 `json:"meta"`
	Decision       ArtifactDecision             `json:"decision"`
	Synthesis      Synthesis                    `json:"synthesis"`
	Domains        DomainScores                 `json:"domains"`
	ComponentFlags ComponentFlags               `json:"component_flags"`
	QuantBreakdown map[string]float64           `json:"quant_breakdown"`
	NLPBreakdown   map[string]float64           `json:"nlp_breakdown"`
	Instruments    map[string]InstrumentSignals `json:"instruments"`
	DataCoverage   DataCoverage                 `json:"data_coverage"`
	Thresholds     Thresholds                   `json:"thresholds"`
	State          PersistenceState             `json:"state"`
	Notes          Notes                        `json:"notes"`
}

// Outcome is what one evaluation returns to its caller.
type Outcome struct {
	Artifact   *TriggerArtifact
	Transition *Transition
	Sinks      []string
	Duration   time.Duration
}

// Fired reports whether the run fired.
func (o *Outcome) Fired() bool {
	return o != nil && o.Artifact != nil && o.Artifact.Decision.Fired
}
