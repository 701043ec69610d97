// Package dialogue routes incoming messages into sessions and owns every
// lifecycle transition. The assembler is the only mutator of session state;
// everything downstream consumes snapshots. Routing is deterministic: reply
// links bind a message to the session holding its parent, temporal adjacency
// binds known participants inside the reply window, and everything else
// either opens a fresh session or flows through the individual path only.
package dialogue

import (
	"fmt"
	"sync"
	"time"

	"github.com/leadflow/leadflow/config"
	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/match"
	"github.com/leadflow/leadflow/session"
)

// Signal weight added to a session's accumulated score per phrase hit.
const (
	highSignalWeight   = 3.0
	mediumSignalWeight = 1.5
	budgetSignalWeight = 2.0
)

// dedupLimit bounds the assembler-wide seen-message set; when exceeded the
// oldest half is dropped.
const dedupLimit = 10000

// phraseEvidenceSource tags role evidence derived from phrase matching.
const phraseEvidenceSource = "phrase"

// RouteResult reports what the assembler did with one message.
type RouteResult struct {
	// Session the message was appended to; nil when the message took the
	// individual path only.
	Session *core.DialogueSession
	// Opened is true when the message caused a new session to open.
	Opened bool
	// Appended is true when the message entered Session's transcript.
	Appended bool
	// Duplicate is true when the message ID was already processed.
	Duplicate bool
	// ClosingTriggered is true when this message pushed the session to
	// Closing (capacity).
	ClosingTriggered bool
	// Expired is a previously attached session that this arrival displaced
	// (idle/duration). It is Closing and awaits a final scoring pass.
	Expired *core.DialogueSession
	// Evicted is a session detached under global capacity pressure. It is
	// still Open; the caller force-closes and final-scores it.
	Evicted *core.DialogueSession
	// DialogueReady is true when Session now satisfies the dialogue scoring
	// minimums.
	DialogueReady bool
	// RoleHits and SignalHits carry the pattern-matcher output for the
	// message text, for the individual scoring path.
	RoleHits   map[core.Role]int
	SignalHits map[match.Signal]int
}

// Assembler routes messages to sessions. Safe for concurrent use; routing for
// one message is serialized, which also serializes all session mutation.
type Assembler struct {
	store   *session.Store
	matcher *match.Matcher
	cfg     config.Dialogue

	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

// NewAssembler wires an assembler over the given store and matcher.
func NewAssembler(store *session.Store, matcher *match.Matcher, cfg config.Dialogue) *Assembler {
	return &Assembler{
		store:   store,
		matcher: matcher,
		cfg:     cfg,
		seen:    make(map[string]struct{}),
	}
}

// Route processes one message event. Malformed messages are rejected with
// core.ErrMalformedMessage and touch no state; duplicate IDs are absorbed.
func (a *Assembler) Route(msg core.Message, now time.Time) (RouteResult, error) {
	if err := msg.Validate(); err != nil {
		return RouteResult{}, fmt.Errorf("route message: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seen[msg.ID]; dup {
		return RouteResult{Duplicate: true}, nil
	}

	res := RouteResult{
		RoleHits:   a.matcher.MatchRoles(msg.Text),
		SignalHits: a.matcher.MatchSignals(msg.Text),
	}

	cand := a.store.ActiveForChannel(msg.ChannelID)
	cand = a.retireIfExpired(cand, msg, now, &res)

	if cand != nil {
		if a.attachable(cand, msg, now) {
			ing := cand.Ingest(msg, now, a.cfg.Limits())
			switch {
			case ing.Appended:
				res.Session = cand
				res.Appended = true
				res.ClosingTriggered = ing.CapHit
			case ing.Duplicate:
				res.Duplicate = true
			default:
				// Locked Closing session: displace it and open fresh.
				a.store.Detach(cand.ID)
				res.Expired = cand
				cand = nil
			}
		} else {
			// A live session occupies the channel but this message does not
			// belong to it: individual path only.
			a.markSeen(msg.ID)
			return res, nil
		}
	}

	if res.Session == nil && !res.Duplicate {
		if a.cfg.MinOpenParticipants > 1 {
			// Higher opening minimums route first unmatched messages through
			// the individual path until a reply chain forms.
			a.markSeen(msg.ID)
			return res, nil
		}
		sess, evicted := a.store.Open(msg.ChannelID, now)
		res.Evicted = evicted
		ing := sess.Ingest(msg, now, a.cfg.Limits())
		res.Session = sess
		res.Opened = true
		res.Appended = ing.Appended
		res.ClosingTriggered = ing.CapHit
	}

	if res.Appended {
		a.applyMatches(res.Session, msg, now, res.RoleHits, res.SignalHits)
		res.DialogueReady = res.Session.MessageCount() >= a.cfg.MinMessages &&
			res.Session.ParticipantCount() >= a.cfg.MinParticipants
		a.markSeen(msg.ID)
	}
	return res, nil
}

// retireIfExpired applies arrival-time lifecycle checks to the channel's
// attached session. A session past its maximum duration closes immediately;
// an idle session soft-closes as of the moment the timeout elapsed, so the
// arriving message may still enter as the single late grace message. A
// session the message cannot enter is detached and reported as Expired.
func (a *Assembler) retireIfExpired(cand *core.DialogueSession, msg core.Message, now time.Time, res *RouteResult) *core.DialogueSession {
	if cand == nil {
		return nil
	}
	if cand.AgeExceeded(now, a.cfg.MaxDuration) {
		cand.BeginClosing(core.CloseReasonDuration, now)
		a.store.Detach(cand.ID)
		res.Expired = cand
		return nil
	}
	if cand.IdleExpired(now, a.cfg.Timeout) {
		// Backdate the transition to when the timeout actually elapsed; the
		// grace sub-window is measured from there, so a message arriving
		// well after the timeout opens a new session instead.
		cand.BeginClosing(core.CloseReasonIdle, cand.LastActivity().Add(a.cfg.Timeout))
		ing := cand.Ingest(msg, now, a.cfg.Limits())
		if !ing.Appended && !ing.Duplicate {
			a.store.Detach(cand.ID)
			res.Expired = cand
			return nil
		}
		if ing.Appended {
			res.Session = cand
			res.Appended = true
		} else {
			res.Duplicate = true
		}
		a.store.Detach(cand.ID)
		res.Expired = cand
		return nil
	}
	return cand
}

// attachable reports whether the message belongs to the session: either its
// reply link resolves into the transcript, or it arrives inside the reply
// window from a known participant.
func (a *Assembler) attachable(sess *core.DialogueSession, msg core.Message, now time.Time) bool {
	if msg.ReplyToID != "" && sess.ContainsMessage(msg.ReplyToID) {
		return true
	}
	inWindow := a.cfg.ReplyWindow > 0 && !msg.Timestamp.After(sess.LastActivity().Add(a.cfg.ReplyWindow))
	return inWindow && sess.HasParticipant(msg.SenderID)
}

func (a *Assembler) applyMatches(sess *core.DialogueSession, msg core.Message, now time.Time, roles map[core.Role]int, signals map[match.Signal]int) {
	for role, hits := range roles {
		conf := 0.55 + 0.1*float64(hits-1)
		if conf > 0.85 {
			conf = 0.85
		}
		sess.ApplyEvidence(msg.SenderID, role, conf, phraseEvidenceSource, now)
	}
	var delta float64
	delta += highSignalWeight * float64(signals[match.SignalHighIntent])
	delta += mediumSignalWeight * float64(signals[match.SignalMediumIntent])
	delta += budgetSignalWeight * float64(signals[match.SignalBudget])
	if delta > 0 {
		sess.AddSignal(delta)
	}
}

func (a *Assembler) markSeen(id string) {
	a.seen[id] = struct{}{}
	a.seenOrder = append(a.seenOrder, id)
	if len(a.seenOrder) > dedupLimit {
		cut := len(a.seenOrder) / 2
		for _, old := range a.seenOrder[:cut] {
			delete(a.seen, old)
		}
		a.seenOrder = append(a.seenOrder[:0:0], a.seenOrder[cut:]...)
	}
}

// Sweep applies time-based lifecycle transitions to every tracked session and
// returns the sessions ready for their final scoring pass, each detached from
// the store so its channel frees up while scoring runs. An idle session
// soft-closes but stays attached through the grace sub-window, so one final
// late message can still land; a session past its maximum duration detaches
// immediately.
func (a *Assembler) Sweep(now time.Time) []*core.DialogueSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ready []*core.DialogueSession
	for _, sess := range a.store.Snapshot() {
		switch sess.CurrentState() {
		case core.SessionOpen:
			switch {
			case sess.AgeExceeded(now, a.cfg.MaxDuration):
				sess.BeginClosing(core.CloseReasonDuration, now)
				a.store.Detach(sess.ID)
				ready = append(ready, sess)
			case sess.IdleExpired(now, a.cfg.Timeout):
				sess.BeginClosing(core.CloseReasonIdle, sess.LastActivity().Add(a.cfg.Timeout))
				if now.After(sess.StartedClosing().Add(a.cfg.SoftCloseGrace)) {
					a.store.Detach(sess.ID)
					ready = append(ready, sess)
				}
			}
		case core.SessionClosing:
			if now.After(sess.StartedClosing().Add(a.cfg.SoftCloseGrace)) {
				a.store.Detach(sess.ID)
				ready = append(ready, sess)
			}
		}
	}
	return ready
}
