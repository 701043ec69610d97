package session

import (
	"sync"
	"time"

	"github.com/leadflow/leadflow/core"
)

// Store is a volatile, concurrency-safe registry of live dialogue sessions.
// It indexes sessions by ID and by channel; a channel holds at most one
// non-Closed session at a time. When the global cap is exceeded, the
// least-recently-active session is detached and returned so the caller can
// force-close and final-score it.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*core.DialogueSession
	byChannel map[string]string // channel ID -> session ID
	maxActive int
}

// NewStore constructs an empty store. maxActive <= 0 disables the global cap.
func NewStore(maxActive int) *Store {
	return &Store{
		sessions:  make(map[string]*core.DialogueSession),
		byChannel: make(map[string]string),
		maxActive: maxActive,
	}
}

// Open creates and registers a new session for the channel. Any session still
// attached to the channel is detached first (the caller is expected to have
// routed it out already). When the global cap is exceeded the
// least-recently-active other session is detached and returned as evicted.
func (s *Store) Open(channelID string, now time.Time) (sess, evicted *core.DialogueSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prevID, ok := s.byChannel[channelID]; ok {
		delete(s.sessions, prevID)
		delete(s.byChannel, channelID)
	}

	sess = core.NewDialogueSession(channelID, now)
	s.sessions[sess.ID] = sess
	s.byChannel[channelID] = sess.ID

	if s.maxActive > 0 && len(s.sessions) > s.maxActive {
		evicted = s.evictLRULocked(sess.ID)
	}
	return sess, evicted
}

// ActiveForChannel returns the channel's attached session, or nil.
func (s *Store) ActiveForChannel(channelID string) *core.DialogueSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byChannel[channelID]
	if !ok {
		return nil
	}
	return s.sessions[id]
}

// Get returns a tracked session by ID, or nil.
func (s *Store) Get(id string) *core.DialogueSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Detach removes a session from the store and returns it. The channel slot is
// freed immediately, so a new session can open on the same channel while the
// detached one is still being final-scored. Returns nil for unknown IDs.
func (s *Store) Detach(id string) *core.DialogueSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detachLocked(id)
}

func (s *Store) detachLocked(id string) *core.DialogueSession {
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	if cur, ok := s.byChannel[sess.ChannelID]; ok && cur == id {
		delete(s.byChannel, sess.ChannelID)
	}
	return sess
}

// Close detaches the session and marks it Closed.
func (s *Store) Close(id string) *core.DialogueSession {
	sess := s.Detach(id)
	if sess != nil {
		sess.MarkClosed()
	}
	return sess
}

// evictLRULocked detaches the least-recently-active session, skipping the
// given ID so a freshly opened session never evicts itself.
func (s *Store) evictLRULocked(skipID string) *core.DialogueSession {
	var victim *core.DialogueSession
	var oldest time.Time
	for id, sess := range s.sessions {
		if id == skipID {
			continue
		}
		at := sess.LastActivity()
		if victim == nil || at.Before(oldest) {
			victim, oldest = sess, at
		}
	}
	if victim == nil {
		return nil
	}
	return s.detachLocked(victim.ID)
}

// ActiveCount returns the number of tracked sessions.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns the tracked sessions in unspecified order. The slice is
// fresh; the pointers are live sessions.
func (s *Store) Snapshot() []*core.DialogueSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.DialogueSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}
