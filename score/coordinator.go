// Package score combines AI analysis with pattern-matcher signals into ranked
// lead verdicts. The coordinator owns both invocation paths: the individual
// path fires when a sender accumulates enough recent messages, the dialogue
// path fires when a session matures or closes. The AI call is bounded by a
// timeout; on failure the coordinator degrades to a matcher-only score rather
// than surfacing an error.
package score

import (
	"context"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leadflow/leadflow/analyzer"
	"github.com/leadflow/leadflow/config"
	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/logging"
	"github.com/leadflow/leadflow/match"
)

// cacheLimit bounds the analysis result cache; the oldest half is dropped on
// overflow.
const cacheLimit = 1000

// aiEvidenceSource tags role evidence derived from dialogue analysis.
const aiEvidenceSource = "ai"

// Coordinator turns analysis requests into verdicts. Safe for concurrent use.
type Coordinator struct {
	analyzer analyzer.Analyzer
	matcher  *match.Matcher
	cfg      config.Scoring
	// suppressFor is how long a dialogue verdict shadows individual verdicts
	// for the participants it covered.
	suppressFor time.Duration
	logger      logging.Logger

	mu         sync.Mutex
	activity   map[string][]core.Message // subject key -> recent messages
	analyzedAt map[string]time.Time      // subject key -> last individual analysis
	suppressed map[string]time.Time      // subject key -> dialogue verdict time
	cache      map[string]*analyzer.Result
	cacheOrder []string
}

// Options tunes optional coordinator collaborators.
type Options struct {
	Logger logging.Logger
}

// NewCoordinator wires a coordinator. suppressFor bounds the window in which
// a dialogue verdict suppresses individual verdicts for its participants when
// prefer_dialogue is set.
func NewCoordinator(a analyzer.Analyzer, m *match.Matcher, cfg config.Scoring, suppressFor time.Duration, optFns ...func(o *Options)) *Coordinator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Coordinator{
		analyzer:    a,
		matcher:     m,
		cfg:         cfg,
		suppressFor: suppressFor,
		logger:      opts.Logger,
		activity:    make(map[string][]core.Message),
		analyzedAt:  make(map[string]time.Time),
		suppressed:  make(map[string]time.Time),
		cache:       make(map[string]*analyzer.Result),
	}
}

// SubjectKey identifies one sender in one channel for the individual path.
func SubjectKey(channelID, senderID string) string {
	return channelID + "|" + senderID
}

// ObserveMessage records a message into the sender's rolling context window
// and reports whether the individual path should fire now.
func (c *Coordinator) ObserveMessage(msg core.Message, now time.Time) bool {
	key := SubjectKey(msg.ChannelID, msg.SenderID)

	c.mu.Lock()
	defer c.mu.Unlock()

	window := append(c.activity[key], msg)
	cutoff := now.Add(-c.cfg.ContextWindow)
	for len(window) > 0 && window[0].Timestamp.Before(cutoff) {
		window = window[1:]
	}
	c.activity[key] = window

	if len(window) < c.cfg.MinMessagesForIndividual {
		return false
	}
	// One analysis per subject per context window.
	if at, ok := c.analyzedAt[key]; ok && now.Sub(at) < c.cfg.ContextWindow {
		return false
	}
	if c.cfg.PreferDialogue {
		if at, ok := c.suppressed[key]; ok && now.Sub(at) < c.suppressFor {
			return false
		}
	}
	return true
}

// ScoreIndividual runs the individual path for one sender. It returns a nil
// verdict when the score lands below every band or when a preferred dialogue
// verdict already covers the sender.
func (c *Coordinator) ScoreIndividual(ctx context.Context, channelID, senderID string, now time.Time) (*core.Verdict, error) {
	key := SubjectKey(channelID, senderID)

	c.mu.Lock()
	window := c.activity[key]
	if len(window) > c.cfg.MaxContextMessages {
		window = window[len(window)-c.cfg.MaxContextMessages:]
	}
	msgs := make([]core.Message, len(window))
	copy(msgs, window)
	c.analyzedAt[key] = now
	c.mu.Unlock()

	if len(msgs) == 0 {
		return nil, nil
	}

	req := analyzer.Request{
		Kind:      analyzer.IndividualRequest,
		ChannelID: channelID,
		SubjectID: senderID,
		Messages:  msgs,
	}
	text := joinTexts(msgs)
	res, degraded := c.analyze(ctx, key, text, req)

	signals := c.matcher.MatchSignals(text)

	var ai int
	var extras core.AnalysisExtras
	urgency := ""
	if res != nil {
		ai = res.Confidence
		extras = res.AnalysisExtras
		urgency = res.UrgencyLevel
	} else {
		ai = c.matcher.FallbackScore(text)
	}
	scoreVal := c.combine(ai, signals, urgency)

	band := c.cfg.Thresholds.Band(scoreVal)
	if band == core.BandNone {
		return nil, nil
	}

	display := msgs[len(msgs)-1].SenderDisplay
	return &core.Verdict{
		ID:            core.NewID(),
		Kind:          core.IndividualLead,
		SubjectID:     senderID,
		ChannelID:     channelID,
		Score:         scoreVal,
		Band:          band,
		Degraded:      degraded,
		SenderDisplay: display,
		Extras:        extras,
		ProducedAt:    now,
	}, nil
}

// ScoreDialogue runs the dialogue path for a session. Role assignments from
// the analyzer are fed back into the session's evidence log; when
// prefer_dialogue is set, every covered participant is shadowed from the
// individual path for the suppression window.
func (c *Coordinator) ScoreDialogue(ctx context.Context, sess *core.DialogueSession, now time.Time) (*core.Verdict, error) {
	msgs := sess.Transcript()
	if len(msgs) == 0 {
		return nil, nil
	}
	participants := sess.ParticipantsSnapshot()

	req := analyzer.Request{
		Kind:         analyzer.DialogueRequest,
		ChannelID:    sess.ChannelID,
		SubjectID:    sess.ID,
		Messages:     msgs,
		Participants: participants,
	}
	text := joinTexts(msgs)
	res, degraded := c.analyze(ctx, sess.ID, text, req)

	signals := c.matcher.MatchSignals(text)

	var ai int
	var extras core.AnalysisExtras
	var roles map[string]core.RoleAssignment
	urgency := ""
	if res != nil {
		ai = res.Confidence
		extras = res.AnalysisExtras
		roles = res.Roles
		urgency = res.UrgencyLevel
	} else {
		ai = c.matcher.FallbackScore(text)
	}

	for pid, ra := range roles {
		sess.ApplyEvidence(pid, ra.Role, ra.Confidence, aiEvidenceSource, now)
	}

	if c.cfg.PreferDialogue {
		c.mu.Lock()
		for _, p := range participants {
			c.suppressed[SubjectKey(sess.ChannelID, p.ID)] = now
		}
		c.mu.Unlock()
	}

	scoreVal := c.combine(ai, signals, urgency)
	band := c.cfg.Thresholds.Band(scoreVal)
	if band == core.BandNone {
		return nil, nil
	}

	return &core.Verdict{
		ID:                core.NewID(),
		Kind:              core.DialogueLead,
		SubjectID:         sess.ID,
		ChannelID:         sess.ChannelID,
		SessionID:         sess.ID,
		Score:             scoreVal,
		Band:              band,
		Degraded:          degraded,
		ContributingRoles: contributingRoles(sess),
		Roles:             roles,
		Extras:            extras,
		ProducedAt:        now,
	}, nil
}

// Prune drops per-subject state that aged out of its window: activity and
// analysis timestamps past the context window, suppression marks past the
// suppression window. Run from the lifecycle sweep so senders who go quiet
// do not accumulate state forever.
func (c *Coordinator) Prune(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-c.cfg.ContextWindow)
	for key, window := range c.activity {
		for len(window) > 0 && window[0].Timestamp.Before(cutoff) {
			window = window[1:]
		}
		if len(window) == 0 {
			delete(c.activity, key)
			continue
		}
		c.activity[key] = window
	}
	for key, at := range c.analyzedAt {
		if now.Sub(at) >= c.cfg.ContextWindow {
			delete(c.analyzedAt, key)
		}
	}
	for key, at := range c.suppressed {
		if now.Sub(at) >= c.suppressFor {
			delete(c.suppressed, key)
		}
	}
}

// analyze calls the AI service under the configured timeout, consulting the
// bounded result cache first. A nil result with degraded=true signals the
// matcher-only fallback.
func (c *Coordinator) analyze(ctx context.Context, subjectID, text string, req analyzer.Request) (*analyzer.Result, bool) {
	key := cacheKey(subjectID, text)

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.AnalysisTimeout)
	defer cancel()

	start := time.Now()
	res, err := c.analyzer.Analyze(callCtx, req)
	if err != nil {
		c.logger.Warn("analysis call failed, degrading to matcher-only score",
			"subject_id", subjectID, "duration", time.Since(start), "error", err)
		return nil, true
	}

	c.mu.Lock()
	c.cache[key] = res
	c.cacheOrder = append(c.cacheOrder, key)
	if len(c.cacheOrder) > cacheLimit {
		cut := len(c.cacheOrder) / 2
		for _, old := range c.cacheOrder[:cut] {
			delete(c.cache, old)
		}
		c.cacheOrder = append(c.cacheOrder[:0:0], c.cacheOrder[cut:]...)
	}
	c.mu.Unlock()

	return res, false
}

// combine folds the AI confidence and matcher signals into a 0-100 score.
func (c *Coordinator) combine(ai int, signals map[match.Signal]int, urgency string) int {
	w := c.cfg.Weights
	s := w.RecentMessage * float64(ai)
	s += 10 * w.BuyingSignal * float64(signals[match.SignalHighIntent])
	s += 10 * w.Urgency * float64(urgencyHits(urgency))
	s += 5 * float64(signals[match.SignalBudget])
	return core.ClampScore(int(s))
}

func urgencyHits(level string) int {
	switch level {
	case "immediate":
		return 2
	case "short_term":
		return 1
	default:
		return 0
	}
}

// contributingRoles lists resolved roles in participant-ID order so verdicts
// are deterministic.
func contributingRoles(sess *core.DialogueSession) []core.Role {
	parts := sess.ParticipantsSnapshot()
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	var roles []core.Role
	for _, p := range parts {
		if p.Role != core.RoleUnknown {
			roles = append(roles, p.Role)
		}
	}
	return roles
}

func joinTexts(msgs []core.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}

func cacheKey(subjectID, text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return subjectID + ":" + strconv.FormatUint(h.Sum64(), 16)
}
