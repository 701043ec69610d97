package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leadflow/leadflow/analyzer"
	"github.com/leadflow/leadflow/config"
	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/dialogue"
	"github.com/leadflow/leadflow/emit"
	"github.com/leadflow/leadflow/logging"
	"github.com/leadflow/leadflow/match"
	"github.com/leadflow/leadflow/notify"
	"github.com/leadflow/leadflow/score"
	"github.com/leadflow/leadflow/session"
	"github.com/leadflow/leadflow/storage"
)

// Options configures an Engine using the functional options pattern. All
// collaborators have in-memory or no-op defaults so a bare New(cfg) is
// immediately usable for development and tests.
type Options struct {
	// Analyzer scores text for commercial interest. Defaults to the mock.
	Analyzer analyzer.Analyzer

	// Matcher provides phrase-based role/signal detection. Defaults to the
	// built-in English phrase lists.
	Matcher *match.Matcher

	// LeadStore persists finalized lead records. Defaults to in-memory.
	LeadStore core.LeadStore

	// NotificationSink delivers approved alerts. Nil disables notifications;
	// records are still persisted.
	NotificationSink core.NotificationSink

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Clock supplies the current time; override in tests. Defaults to
	// time.Now.
	Clock func() time.Time
}

// WithAnalyzer sets the AI analysis provider.
func WithAnalyzer(a analyzer.Analyzer) func(o *Options) {
	return func(o *Options) { o.Analyzer = a }
}

// WithMatcher sets the pattern matcher.
func WithMatcher(m *match.Matcher) func(o *Options) {
	return func(o *Options) { o.Matcher = m }
}

// WithLeadStore sets the lead record store.
func WithLeadStore(s core.LeadStore) func(o *Options) {
	return func(o *Options) { o.LeadStore = s }
}

// WithNotificationSink sets the outbound notification sink.
func WithNotificationSink(s core.NotificationSink) func(o *Options) {
	return func(o *Options) { o.NotificationSink = s }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) func(o *Options) {
	return func(o *Options) { o.Clock = clock }
}

// Engine wires the assembler, coordinator and emitter into one pipeline.
type Engine struct {
	cfg      config.Config
	store    *session.Store
	asm      *dialogue.Assembler
	coord    *score.Coordinator
	emitter  *emit.Emitter
	throttle *notify.Throttle
	logger   logging.Logger
	clock    func() time.Time

	mu      sync.Mutex
	closed  bool
	stopCh  chan struct{}
	sweepWG sync.WaitGroup
	scoreWG sync.WaitGroup
}

// New constructs an engine from validated configuration plus options.
func New(cfg config.Config, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Analyzer:  analyzer.NewMock(),
		Matcher:   match.New(),
		LeadStore: storage.NewInMemoryStore(),
		Logger:    logging.NoOpLogger{},
		Clock:     time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	store := session.NewStore(cfg.Dialogue.MaxActiveDialogues)
	throttle := notify.NewThrottle(cfg.Notify.ThrottleInterval)

	return &Engine{
		cfg:   cfg,
		store: store,
		asm:   dialogue.NewAssembler(store, opts.Matcher, cfg.Dialogue),
		coord: score.NewCoordinator(opts.Analyzer, opts.Matcher, cfg.Scoring, cfg.Dialogue.Timeout,
			func(o *score.Options) { o.Logger = opts.Logger }),
		emitter: emit.NewEmitter(opts.LeadStore, opts.NotificationSink, throttle,
			func(o *emit.Options) { o.Logger = opts.Logger }),
		throttle: throttle,
		logger:   opts.Logger,
		clock:    opts.Clock,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background lifecycle sweeper. Optional: an engine fed
// purely by Process calls with an external clock can sweep via SweepNow.
func (e *Engine) Start() {
	e.sweepWG.Add(1)
	go func() {
		defer e.sweepWG.Done()
		ticker := time.NewTicker(e.cfg.Dialogue.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.SweepNow()
			}
		}
	}()
}

// SweepNow runs one lifecycle sweep: idle and over-aged sessions transition
// to Closing, sessions whose grace elapsed are final-scored, and stale
// throttle tickets and per-subject scoring state are pruned.
func (e *Engine) SweepNow() {
	now := e.clock()
	for _, sess := range e.asm.Sweep(now) {
		e.finalScoreAsync(sess, now)
	}
	e.throttle.Prune(now)
	e.coord.Prune(now)
}

// Process ingests one message event end to end: routing, pattern matching,
// both scoring paths and emission. Malformed events return an error and
// affect nothing else.
func (e *Engine) Process(ctx context.Context, msg core.Message) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("engine closed")
	}
	e.mu.Unlock()

	now := e.clock()

	res, err := e.asm.Route(msg, now)
	if err != nil {
		e.logger.Warn("message dropped", "message_id", msg.ID, "error", err)
		return err
	}
	// Sessions displaced by this arrival get their final pass off the hot
	// path; their analyses complete even if the caller's context ends. A
	// duplicate redelivery can displace an idle session too, so displaced
	// sessions are handled before the duplicate short-circuit.
	if res.Expired != nil {
		e.finalScoreAsync(res.Expired, now)
	}
	if res.Evicted != nil {
		res.Evicted.BeginClosing(core.CloseReasonEviction, now)
		e.logger.Info("session evicted under capacity pressure", "session_id", res.Evicted.ID)
		e.finalScoreAsync(res.Evicted, now)
	}
	if res.Duplicate {
		return nil
	}

	if res.Session != nil && res.Appended {
		sess := res.Session
		if res.ClosingTriggered {
			e.logger.Info("session closed at capacity",
				"session_id", sess.ID, "messages", sess.MessageCount(), "participants", sess.ParticipantCount())
			e.finalScore(ctx, sess, now)
		} else if res.DialogueReady && sess.MarkFinalScored() {
			// The dialogue path consumes a session once: either here at the
			// readiness threshold or later on the Closing transition.
			if v, err := e.coord.ScoreDialogue(ctx, sess, now); err == nil && v != nil {
				e.emitVerdict(ctx, v, sess.Transcript())
			}
		}
	}

	if e.coord.ObserveMessage(msg, now) {
		v, err := e.coord.ScoreIndividual(ctx, msg.ChannelID, msg.SenderID, now)
		if err == nil && v != nil {
			e.emitVerdict(ctx, v, nil)
		}
	}
	return nil
}

// finalScore runs the one-shot closing pass for a session: a last dialogue
// scoring, emission, then the terminal state transition.
func (e *Engine) finalScore(ctx context.Context, sess *core.DialogueSession, now time.Time) {
	if sess.CurrentState() == core.SessionOpen {
		sess.BeginClosing(core.CloseReasonEviction, now)
	}
	if sess.MarkFinalScored() {
		if v, err := e.coord.ScoreDialogue(ctx, sess, now); err == nil && v != nil {
			e.emitVerdict(ctx, v, sess.Transcript())
		}
	}
	e.store.Close(sess.ID)
	sess.MarkClosed()
	e.logger.Debug("session closed",
		"session_id", sess.ID, "reason", sess.CloseReasonValue().String(), "messages", sess.MessageCount())
}

func (e *Engine) finalScoreAsync(sess *core.DialogueSession, now time.Time) {
	e.scoreWG.Add(1)
	go func() {
		defer e.scoreWG.Done()
		// Detached context: a force-closed session still gets its verdict.
		e.finalScore(context.Background(), sess, now)
	}()
}

func (e *Engine) emitVerdict(ctx context.Context, v *core.Verdict, transcript []core.Message) {
	if err := e.emitter.Emit(ctx, v, transcript); err != nil {
		e.logger.Error("verdict emission failed", "verdict_id", v.ID, "error", err)
	}
}

// ActiveSessions returns the number of tracked sessions.
func (e *Engine) ActiveSessions() int {
	return e.store.ActiveCount()
}

// Close stops the sweeper, final-scores every remaining session and waits
// for in-flight scoring passes bounded by ctx.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.stopCh)
	e.mu.Unlock()

	e.sweepWG.Wait()

	now := e.clock()
	for _, sess := range e.store.Snapshot() {
		e.store.Detach(sess.ID)
		e.finalScoreAsync(sess, now)
	}

	done := make(chan struct{})
	go func() {
		e.scoreWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close engine: %w", ctx.Err())
	}
}
