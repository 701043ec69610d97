package core

import (
	"sync"
	"time"
)

// SessionState is the lifecycle state of a dialogue session.
// Transitions are one-way: Open -> Closing -> Closed.
type SessionState int

const (
	// SessionOpen accepts new messages.
	SessionOpen SessionState = iota
	// SessionClosing is soft-closed: at most one late message is still
	// accepted within the grace sub-window, then the session locks.
	SessionClosing
	// SessionClosed is terminal; the session is eligible for eviction.
	SessionClosed
)

// String returns a lowercase state name for logging and persistence.
func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionClosing:
		return "closing"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a session left the Open state.
type CloseReason int

const (
	// CloseReasonNone means the session is still Open.
	CloseReasonNone CloseReason = iota
	// CloseReasonIdle means no activity arrived within the dialogue timeout.
	CloseReasonIdle
	// CloseReasonDuration means the session exceeded its maximum age.
	CloseReasonDuration
	// CloseReasonCapacity means a message or participant cap was reached.
	CloseReasonCapacity
	// CloseReasonEviction means the store force-closed the session under
	// global capacity pressure.
	CloseReasonEviction
)

// String returns a lowercase reason name for logging and persistence.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonIdle:
		return "idle"
	case CloseReasonDuration:
		return "duration"
	case CloseReasonCapacity:
		return "capacity"
	case CloseReasonEviction:
		return "eviction"
	default:
		return "none"
	}
}

// SessionLimits bounds a single session. Zero values disable the
// corresponding limit.
type SessionLimits struct {
	MaxMessages     int
	MaxParticipants int
	MaxDuration     time.Duration
	SoftCloseGrace  time.Duration
}

// IngestResult reports what happened when a message was offered to a session.
type IngestResult struct {
	Appended  bool
	Duplicate bool
	Late      bool // accepted during the Closing grace sub-window
	CapHit    bool // this message triggered a capacity transition to Closing
}

// DialogueSession is a bounded grouping of related messages treated as one
// conversation for scoring. It is safe for concurrent access; the dialogue
// assembler is the only mutator, everything else reads snapshots.
//
// Invariants:
//   - LastActivityAt is monotonically non-decreasing
//   - messages are append-only while Open; a session at a message or
//     participant cap transitions to Closing on the triggering message
//   - a Closing session accepts at most one late message inside the grace
//     sub-window, then locks
type DialogueSession struct {
	ID               string
	ChannelID        string
	State            SessionState
	Reason           CloseReason
	CreatedAt        time.Time
	LastActivityAt   time.Time
	StartedClosingAt time.Time
	Messages         []Message
	Participants     map[string]*ParticipantProfile
	SignalScore      float64

	mu          sync.RWMutex
	seen        map[string]struct{}
	locked      bool // Closing and no longer accepting the grace message
	finalScored bool
}

// NewDialogueSession creates an Open session for the given channel.
func NewDialogueSession(channelID string, now time.Time) *DialogueSession {
	return &DialogueSession{
		ID:             NewID(),
		ChannelID:      channelID,
		State:          SessionOpen,
		CreatedAt:      now,
		LastActivityAt: now,
		Participants:   map[string]*ParticipantProfile{},
		seen:           map[string]struct{}{},
	}
}

// Ingest offers a message to the session. Duplicate IDs are absorbed without
// mutation (at-least-once feed). A Closing session accepts a single late
// message within the grace sub-window; a Closed or locked session accepts
// nothing.
func (s *DialogueSession) Ingest(msg Message, now time.Time, lim SessionLimits) IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State == SessionClosed || s.locked {
		return IngestResult{}
	}
	if _, dup := s.seen[msg.ID]; dup {
		return IngestResult{Duplicate: true}
	}

	res := IngestResult{Appended: true}
	if s.State == SessionClosing {
		if lim.SoftCloseGrace <= 0 || now.After(s.StartedClosingAt.Add(lim.SoftCloseGrace)) {
			s.locked = true
			return IngestResult{}
		}
		res.Late = true
		s.locked = true // exactly one late message
	}

	s.seen[msg.ID] = struct{}{}
	s.Messages = append(s.Messages, msg)
	if msg.Timestamp.After(s.LastActivityAt) {
		s.LastActivityAt = msg.Timestamp
	}
	if now.After(s.LastActivityAt) {
		s.LastActivityAt = now
	}

	p, ok := s.Participants[msg.SenderID]
	if !ok {
		p = NewParticipantProfile(msg.SenderID, msg.SenderDisplay, now)
		s.Participants[msg.SenderID] = p
	}
	p.MessageCount++
	p.LastSeenAt = now
	if p.Display == "" && msg.SenderDisplay != "" {
		p.Display = msg.SenderDisplay
	}

	if s.State == SessionOpen {
		capHit := (lim.MaxMessages > 0 && len(s.Messages) >= lim.MaxMessages) ||
			(lim.MaxParticipants > 0 && len(s.Participants) >= lim.MaxParticipants)
		if capHit {
			s.beginClosingLocked(CloseReasonCapacity, now)
			s.locked = true // capacity closes hard, no grace message
			res.CapHit = true
		}
	}
	return res
}

// ApplyEvidence appends a role observation to a participant's evidence log.
// Unknown participants are ignored.
func (s *DialogueSession) ApplyEvidence(participantID string, role Role, confidence float64, source string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Participants[participantID]; ok {
		p.AddEvidence(role, confidence, source, at)
	}
}

// AddSignal accumulates pattern-matcher signal weight for the session.
func (s *DialogueSession) AddSignal(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SignalScore += delta
}

// BeginClosing transitions Open -> Closing, recording the reason. Returns
// false when the session already left the Open state.
func (s *DialogueSession) BeginClosing(reason CloseReason, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != SessionOpen {
		return false
	}
	s.beginClosingLocked(reason, at)
	return true
}

func (s *DialogueSession) beginClosingLocked(reason CloseReason, at time.Time) {
	s.State = SessionClosing
	s.Reason = reason
	s.StartedClosingAt = at
}

// MarkClosed transitions the session to its terminal state.
func (s *DialogueSession) MarkClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = SessionClosed
	s.locked = true
}

// MarkFinalScored flips the dialogue-scoring guard. Returns true exactly once
// so a session is consumed by the dialogue path a single time, whether at the
// readiness threshold or on the Closing transition.
func (s *DialogueSession) MarkFinalScored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalScored {
		return false
	}
	s.finalScored = true
	return true
}

// CurrentState returns the lifecycle state.
func (s *DialogueSession) CurrentState() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// CloseReasonValue returns the recorded close reason.
func (s *DialogueSession) CloseReasonValue() CloseReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Reason
}

// StartedClosing returns when the session entered the Closing state, zero
// while still Open.
func (s *DialogueSession) StartedClosing() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StartedClosingAt
}

// LastActivity returns the monotone last-activity timestamp.
func (s *DialogueSession) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActivityAt
}

// MessageCount returns the number of accepted messages.
func (s *DialogueSession) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// ParticipantCount returns the number of distinct participants.
func (s *DialogueSession) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Participants)
}

// SignalTotal returns the accumulated pattern-matcher signal weight.
func (s *DialogueSession) SignalTotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SignalScore
}

// ContainsMessage reports whether the session already holds a message ID.
// Used for reply-link resolution.
func (s *DialogueSession) ContainsMessage(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// HasParticipant reports whether the sender is a known participant.
func (s *DialogueSession) HasParticipant(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.Participants[id]
	return ok
}

// IdleExpired reports whether the session has been Open without activity for
// longer than the timeout.
func (s *DialogueSession) IdleExpired(now time.Time, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State == SessionOpen && timeout > 0 && now.Sub(s.LastActivityAt) > timeout
}

// AgeExceeded reports whether the session is older than the maximum dialogue
// duration.
func (s *DialogueSession) AgeExceeded(now time.Time, max time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State == SessionOpen && max > 0 && now.Sub(s.CreatedAt) > max
}

// Transcript returns a defensive copy of the message sequence in insertion
// order.
func (s *DialogueSession) Transcript() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

// ParticipantsSnapshot returns deep copies of all participant profiles.
func (s *DialogueSession) ParticipantsSnapshot() []*ParticipantProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ParticipantProfile, 0, len(s.Participants))
	for _, p := range s.Participants {
		out = append(out, p.Clone())
	}
	return out
}
