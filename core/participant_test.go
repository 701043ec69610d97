package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddEvidenceCorroborationRaisesConfidence(t *testing.T) {
	p := NewParticipantProfile("alice", "Alice", t0)

	p.AddEvidence(RoleDecisionMaker, 0.4, "pattern", t0)
	p.AddEvidence(RoleDecisionMaker, 0.7, "analysis", t0.Add(time.Minute))

	assert.Equal(t, RoleDecisionMaker, p.Role)
	assert.Equal(t, 0.7, p.RoleConfidence)
	assert.False(t, p.Ambiguous)
	assert.Len(t, p.Evidence, 2)
}

func TestAddEvidenceContradictionNeverLowersConfidence(t *testing.T) {
	p := NewParticipantProfile("bob", "Bob", t0)

	p.AddEvidence(RoleBudgetHolder, 0.8, "analysis", t0)
	p.AddEvidence(RoleInfluencer, 0.3, "pattern", t0.Add(time.Minute))

	// Latest role wins, confidence stays at the earned maximum, and the
	// contradiction is recorded as ambiguity rather than overwritten.
	assert.Equal(t, RoleInfluencer, p.Role)
	assert.Equal(t, 0.8, p.RoleConfidence)
	assert.True(t, p.Ambiguous)
	assert.Len(t, p.Evidence, 2)
}

func TestAddEvidenceIgnoresUnknown(t *testing.T) {
	p := NewParticipantProfile("carol", "", t0)
	p.AddEvidence(RoleUnknown, 0.9, "pattern", t0)
	assert.Equal(t, RoleUnknown, p.Role)
	assert.Empty(t, p.Evidence)
}

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleUnknown, RoleDecisionMaker, RoleBudgetHolder, RoleInfluencer, RoleObserver} {
		assert.Equal(t, r, ParseRole(r.String()))
	}
	assert.Equal(t, RoleUnknown, ParseRole("cfo"))
}

func TestThresholdBanding(t *testing.T) {
	th := Thresholds{Hot: 85, Warm: 70, Cold: 55}

	tests := []struct {
		score int
		want  ConfidenceBand
	}{
		{100, BandHot},
		{85, BandHot},
		{84, BandWarm},
		{70, BandWarm},
		{69, BandCold},
		{55, BandCold},
		{54, BandNone},
		{0, BandNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Band(tt.score), "score %d", tt.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-10))
	assert.Equal(t, 100, ClampScore(240))
	assert.Equal(t, 60, ClampScore(60))
}
