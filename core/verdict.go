package core

import "time"

// VerdictKind distinguishes the two scoring paths.
type VerdictKind int

const (
	// IndividualLead scores one sender's recent message context.
	IndividualLead VerdictKind = iota
	// DialogueLead scores a whole dialogue session.
	DialogueLead
)

// String returns the persistence name of the kind.
func (k VerdictKind) String() string {
	if k == DialogueLead {
		return "dialogue"
	}
	return "individual"
}

// ConfidenceBand is the discretized score tier used for notification
// prioritization.
type ConfidenceBand int

const (
	// BandNone means the score fell below every threshold; no verdict is
	// emitted.
	BandNone ConfidenceBand = iota
	// BandCold is the lowest actionable tier.
	BandCold
	// BandWarm indicates active evaluation.
	BandWarm
	// BandHot indicates readiness to buy.
	BandHot
)

// String returns a lowercase band name for logging and persistence.
func (b ConfidenceBand) String() string {
	switch b {
	case BandHot:
		return "hot"
	case BandWarm:
		return "warm"
	case BandCold:
		return "cold"
	default:
		return "none"
	}
}

// Thresholds maps a 0-100 score onto confidence bands.
type Thresholds struct {
	Hot  int `mapstructure:"hot_lead" yaml:"hot_lead"`
	Warm int `mapstructure:"warm_lead" yaml:"warm_lead"`
	Cold int `mapstructure:"cold_lead" yaml:"cold_lead"`
}

// Band returns the confidence band for a score.
func (t Thresholds) Band(score int) ConfidenceBand {
	switch {
	case score >= t.Hot:
		return BandHot
	case score >= t.Warm:
		return BandWarm
	case score >= t.Cold:
		return BandCold
	default:
		return BandNone
	}
}

// RoleAssignment is a per-participant role produced by dialogue analysis.
type RoleAssignment struct {
	Role       Role    `json:"role"`
	Confidence float64 `json:"confidence"`
}

// Verdict is the single ranked outcome of a scoring pass. Immutable once
// emitted.
type Verdict struct {
	ID        string         `json:"id"`
	Kind      VerdictKind    `json:"kind"`
	SubjectID string         `json:"subject_id"` // sender ID (individual) or session ID (dialogue)
	ChannelID string         `json:"channel_id"`
	SessionID string         `json:"session_id,omitempty"`
	Score     int            `json:"score"` // 0-100
	Band      ConfidenceBand `json:"band"`
	Degraded  bool           `json:"degraded"` // produced without the AI service

	// ContributingRoles lists the roles that informed the score, in
	// participant-ID order for determinism.
	ContributingRoles []Role `json:"contributing_roles,omitempty"`

	// Roles carries per-participant assignments from the dialogue path.
	Roles map[string]RoleAssignment `json:"roles,omitempty"`

	// SenderDisplay is set on the individual path for notification rendering.
	SenderDisplay string `json:"sender_display,omitempty"`

	Extras     AnalysisExtras `json:"extras"`
	ProducedAt time.Time      `json:"produced_at"`
}

// ClampScore bounds a raw score into the 0-100 verdict range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
