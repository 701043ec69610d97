package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow/core"
)

func TestParseResultFullResponse(t *testing.T) {
	text := `Here is my analysis:
{
  "is_lead": true,
  "confidence_score": 82,
  "interests": ["crm software"],
  "buying_signals": ["asked for pricing"],
  "urgency_level": "short_term",
  "recommended_action": "send a quote",
  "pain_points": ["manual data entry"],
  "estimated_budget": "$10k",
  "timeline": "this quarter",
  "decision_stage": "decision"
}
Let me know if you need more.`

	res, err := ParseResult(text)
	require.NoError(t, err)
	assert.True(t, res.IsLead)
	assert.Equal(t, 82, res.Confidence)
	assert.Equal(t, []string{"crm software"}, res.Interests)
	assert.Equal(t, []string{"asked for pricing"}, res.BuyingSignals)
	assert.Equal(t, "short_term", res.UrgencyLevel)
	assert.Equal(t, "decision", res.DecisionStage)
	assert.Equal(t, "$10k", res.EstimatedBudget)
	assert.Nil(t, res.Roles)
}

func TestParseResultRoles(t *testing.T) {
	text := `{
  "is_lead": true,
  "confidence_score": 90,
  "roles": {
    "u1": {"role": "decision_maker", "confidence": 0.9},
    "u2": {"role": "observer", "confidence": 1.4},
    "u3": {"role": "wizard", "confidence": 0.5}
  }
}`
	res, err := ParseResult(text)
	require.NoError(t, err)
	require.Len(t, res.Roles, 2)
	assert.Equal(t, core.RoleDecisionMaker, res.Roles["u1"].Role)
	assert.Equal(t, 0.9, res.Roles["u1"].Confidence)
	// Confidence outside [0,1] is clamped, unknown roles dropped.
	assert.Equal(t, 1.0, res.Roles["u2"].Confidence)
	_, ok := res.Roles["u3"]
	assert.False(t, ok)
}

func TestParseResultClampsConfidence(t *testing.T) {
	res, err := ParseResult(`{"is_lead": true, "confidence_score": 250}`)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Confidence)

	res, err = ParseResult(`{"is_lead": false, "confidence_score": -5}`)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Confidence)
}

func TestParseResultMissingFieldsAreAbsent(t *testing.T) {
	res, err := ParseResult(`{"confidence_score": 60}`)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Confidence)
	assert.True(t, res.IsLead) // inferred from positive confidence
	assert.Empty(t, res.Interests)
	assert.Empty(t, res.UrgencyLevel)
}

func TestParseResultNoJSON(t *testing.T) {
	_, err := ParseResult("I could not determine anything useful.")
	assert.Error(t, err)
}

func TestBuildPromptIndividual(t *testing.T) {
	req := Request{
		Kind:      IndividualRequest,
		ChannelID: "chan-1",
		SubjectID: "user-1",
		Messages: []core.Message{
			{ID: "m1", SenderID: "user-1", Text: "we need a new billing tool", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
	}
	p := BuildPrompt(req)
	assert.Contains(t, p, "SENDER CONTEXT")
	assert.Contains(t, p, "user-1")
	assert.Contains(t, p, "we need a new billing tool")
	assert.Contains(t, p, `"confidence_score"`)
	assert.NotContains(t, p, `"roles"`)
}

func TestBuildPromptDialogueIncludesRoles(t *testing.T) {
	req := Request{
		Kind:      DialogueRequest,
		ChannelID: "chan-1",
		SubjectID: "sess-1",
		Messages: []core.Message{
			{ID: "m1", SenderID: "u1", Text: "what does it cost?", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
		Participants: []*core.ParticipantProfile{
			{ID: "u1", Display: "Ann", MessageCount: 3, Role: core.RoleDecisionMaker},
		},
	}
	p := BuildPrompt(req)
	assert.Contains(t, p, "CONVERSATION CONTEXT")
	assert.Contains(t, p, "Ann")
	assert.Contains(t, p, `"roles"`)
	assert.Contains(t, p, "decision_maker|budget_holder|influencer|observer")
}

func TestMockReturnsCannedResultBySubject(t *testing.T) {
	m := NewMock()
	m.AddResult("user-1", Result{Confidence: 88, IsLead: true})

	res, err := m.Analyze(context.Background(), Request{SubjectID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 88, res.Confidence)

	res, err = m.Analyze(context.Background(), Request{SubjectID: "stranger"})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Confidence)

	assert.Len(t, m.Calls(), 2)
}

func TestMockHonorsContextDeadline(t *testing.T) {
	m := NewMock()
	m.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Analyze(ctx, Request{SubjectID: "user-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockError(t *testing.T) {
	m := NewMock()
	sentinel := errors.New("upstream down")
	m.SetError(sentinel)

	_, err := m.Analyze(context.Background(), Request{SubjectID: "user-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, strings.Contains(err.Error(), "mock analyzer"))
}
