package core

import "time"

// Role classifies a dialogue participant's likely function in a buying
// decision.
type Role int

const (
	// RoleUnknown is the initial role before any evidence is observed.
	RoleUnknown Role = iota
	// RoleDecisionMaker indicates authority to approve a purchase.
	RoleDecisionMaker
	// RoleBudgetHolder indicates control over spend.
	RoleBudgetHolder
	// RoleInfluencer indicates advisory weight without final authority.
	RoleInfluencer
	// RoleObserver indicates passive presence in the conversation.
	RoleObserver
)

// String returns the snake_case name used in configuration and persistence.
func (r Role) String() string {
	switch r {
	case RoleDecisionMaker:
		return "decision_maker"
	case RoleBudgetHolder:
		return "budget_holder"
	case RoleInfluencer:
		return "influencer"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// ParseRole maps a configuration/persistence name back to a Role.
// Unrecognized names map to RoleUnknown.
func ParseRole(s string) Role {
	switch s {
	case "decision_maker":
		return RoleDecisionMaker
	case "budget_holder":
		return RoleBudgetHolder
	case "influencer":
		return RoleInfluencer
	case "observer":
		return RoleObserver
	default:
		return RoleUnknown
	}
}

// RoleEvidence is one append-only observation supporting a role assignment.
// The evidence log is never rewritten; the profile's current role is derived
// from it.
type RoleEvidence struct {
	Role       Role      `json:"role"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"` // "phrase" or "ai"
	ObservedAt time.Time `json:"observed_at"`
}

// ParticipantProfile tracks one participant inside a dialogue session.
//
// Role derivation: the most recent non-unknown evidence wins. Corroborating
// evidence for the current role raises confidence; contradicting evidence
// switches the role, marks the profile ambiguous and never lowers the
// confidence already earned.
type ParticipantProfile struct {
	ID             string         `json:"id"`
	Display        string         `json:"display,omitempty"`
	Role           Role           `json:"role"`
	RoleConfidence float64        `json:"role_confidence"`
	Ambiguous      bool           `json:"ambiguous"`
	MessageCount   int            `json:"message_count"`
	FirstSeenAt    time.Time      `json:"first_seen_at"`
	LastSeenAt     time.Time      `json:"last_seen_at"`
	Evidence       []RoleEvidence `json:"evidence,omitempty"`
}

// NewParticipantProfile creates a profile for a first-seen participant.
func NewParticipantProfile(id, display string, firstSeen time.Time) *ParticipantProfile {
	return &ParticipantProfile{
		ID:          id,
		Display:     display,
		Role:        RoleUnknown,
		FirstSeenAt: firstSeen,
		LastSeenAt:  firstSeen,
	}
}

// AddEvidence appends a role observation and re-derives the current role.
// Evidence for RoleUnknown is ignored.
func (p *ParticipantProfile) AddEvidence(role Role, confidence float64, source string, at time.Time) {
	if role == RoleUnknown {
		return
	}
	p.Evidence = append(p.Evidence, RoleEvidence{Role: role, Confidence: confidence, Source: source, ObservedAt: at})
	switch {
	case p.Role == RoleUnknown:
		p.Role = role
		p.RoleConfidence = confidence
	case p.Role == role:
		if confidence > p.RoleConfidence {
			p.RoleConfidence = confidence
		}
	default:
		// Contradiction: latest wins, confidence never drops.
		p.Role = role
		p.Ambiguous = true
		if confidence > p.RoleConfidence {
			p.RoleConfidence = confidence
		}
	}
}

// Clone returns a deep copy safe for use outside the session lock.
func (p *ParticipantProfile) Clone() *ParticipantProfile {
	cp := *p
	cp.Evidence = make([]RoleEvidence, len(p.Evidence))
	copy(cp.Evidence, p.Evidence)
	return &cp
}
