package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msgAt(id, sender string, at time.Time) Message {
	return Message{ID: id, ChannelID: "chan-1", SenderID: sender, Text: "hello", Timestamp: at}
}

func TestSessionIngestAppendsAndTracksActivity(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 10, MaxParticipants: 10, SoftCloseGrace: time.Minute}

	res := s.Ingest(msgAt("m1", "alice", t0), t0, lim)
	require.True(t, res.Appended)
	res = s.Ingest(msgAt("m2", "bob", t0.Add(time.Minute)), t0.Add(time.Minute), lim)
	require.True(t, res.Appended)

	assert.Equal(t, 2, s.MessageCount())
	assert.Equal(t, 2, s.ParticipantCount())
	assert.Equal(t, t0.Add(time.Minute), s.LastActivity())
	assert.True(t, s.ContainsMessage("m1"))
	assert.True(t, s.HasParticipant("bob"))
}

func TestSessionIngestIdempotentOnMessageID(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 10}

	first := s.Ingest(msgAt("m1", "alice", t0), t0, lim)
	again := s.Ingest(msgAt("m1", "alice", t0.Add(time.Second)), t0.Add(time.Second), lim)

	require.True(t, first.Appended)
	assert.True(t, again.Duplicate)
	assert.False(t, again.Appended)
	assert.Equal(t, 1, s.MessageCount())
	assert.Equal(t, 1, s.Participants["alice"].MessageCount)
}

func TestSessionLastActivityMonotone(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 10}

	s.Ingest(msgAt("m1", "alice", t0.Add(time.Hour)), t0.Add(time.Hour), lim)
	// Out-of-order timestamp must not move the clock backwards.
	s.Ingest(msgAt("m2", "alice", t0), t0.Add(time.Hour), lim)

	assert.Equal(t, t0.Add(time.Hour), s.LastActivity())
}

func TestSessionMessageCapTriggersClosing(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 3, SoftCloseGrace: time.Minute}

	for i := 0; i < 3; i++ {
		res := s.Ingest(msgAt(fmt.Sprintf("m%d", i), "alice", t0), t0, lim)
		require.True(t, res.Appended)
		if i == 2 {
			assert.True(t, res.CapHit)
		}
	}
	assert.Equal(t, SessionClosing, s.CurrentState())
	assert.Equal(t, CloseReasonCapacity, s.CloseReasonValue())

	// Capacity close is hard: not even the grace message is accepted.
	rejected := s.Ingest(msgAt("m9", "alice", t0), t0, lim)
	assert.False(t, rejected.Appended)
	assert.Equal(t, 3, s.MessageCount())
}

func TestSessionParticipantCapTriggersClosing(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 100, MaxParticipants: 2}

	s.Ingest(msgAt("m1", "alice", t0), t0, lim)
	res := s.Ingest(msgAt("m2", "bob", t0), t0, lim)

	assert.True(t, res.CapHit)
	assert.Equal(t, SessionClosing, s.CurrentState())
}

func TestSessionSoftCloseAcceptsOneLateMessage(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 100, SoftCloseGrace: 2 * time.Minute}

	s.Ingest(msgAt("m1", "alice", t0), t0, lim)
	require.True(t, s.BeginClosing(CloseReasonIdle, t0.Add(15*time.Minute)))

	late := s.Ingest(msgAt("m2", "bob", t0.Add(16*time.Minute)), t0.Add(16*time.Minute), lim)
	assert.True(t, late.Appended)
	assert.True(t, late.Late)

	// Session is locked after the single grace message.
	next := s.Ingest(msgAt("m3", "bob", t0.Add(16*time.Minute)), t0.Add(16*time.Minute), lim)
	assert.False(t, next.Appended)
}

func TestSessionSoftCloseRejectsBeyondGrace(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	lim := SessionLimits{MaxMessages: 100, SoftCloseGrace: 2 * time.Minute}

	s.Ingest(msgAt("m1", "alice", t0), t0, lim)
	s.BeginClosing(CloseReasonIdle, t0.Add(15*time.Minute))

	res := s.Ingest(msgAt("m2", "bob", t0.Add(20*time.Minute)), t0.Add(20*time.Minute), lim)
	assert.False(t, res.Appended)
}

func TestSessionClosedRejectsEverything(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	s.MarkClosed()
	res := s.Ingest(msgAt("m1", "alice", t0), t0, SessionLimits{})
	assert.False(t, res.Appended)
	assert.False(t, res.Duplicate)
}

func TestSessionFinalScoredGuardFiresOnce(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	assert.True(t, s.MarkFinalScored())
	assert.False(t, s.MarkFinalScored())
}

func TestSessionIdleAndAgeChecks(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	s.Ingest(msgAt("m1", "alice", t0), t0, SessionLimits{MaxMessages: 10})

	assert.False(t, s.IdleExpired(t0.Add(10*time.Minute), 15*time.Minute))
	assert.True(t, s.IdleExpired(t0.Add(16*time.Minute), 15*time.Minute))
	assert.False(t, s.AgeExceeded(t0.Add(time.Hour), 2*time.Hour))
	assert.True(t, s.AgeExceeded(t0.Add(3*time.Hour), 2*time.Hour))
}

func TestTranscriptIsDefensiveCopy(t *testing.T) {
	s := NewDialogueSession("chan-1", t0)
	s.Ingest(msgAt("m1", "alice", t0), t0, SessionLimits{MaxMessages: 10})

	tr := s.Transcript()
	tr[0].Text = "mutated"
	assert.Equal(t, "hello", s.Transcript()[0].Text)
}
