// Package emit is the engine's sole side-effect boundary. A finalized verdict
// is converted into an append-only lead record and, when the throttle
// approves, a rendered notification. Sink failures are logged and absorbed;
// scoring never observes them.
package emit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/logging"
	"github.com/leadflow/leadflow/notify"
)

// Emitter persists verdicts and dispatches throttled notifications.
type Emitter struct {
	store    core.LeadStore
	sink     core.NotificationSink
	throttle *notify.Throttle
	logger   logging.Logger
}

// Options tunes optional emitter collaborators.
type Options struct {
	Logger logging.Logger
}

// NewEmitter wires an emitter. sink may be nil when no notification channel
// is configured; records are still persisted.
func NewEmitter(store core.LeadStore, sink core.NotificationSink, throttle *notify.Throttle, optFns ...func(o *Options)) *Emitter {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Emitter{store: store, sink: sink, throttle: throttle, logger: opts.Logger}
}

// Emit converts the verdict into a lead record, appends it to storage and,
// when the throttle approves, sends a banded notification. Persistence errors
// are returned; notification failures are only logged.
func (e *Emitter) Emit(ctx context.Context, v *core.Verdict, transcript []core.Message) error {
	rec := Record(v, transcript)
	if err := e.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append lead record: %w", err)
	}
	e.logger.Info("lead recorded",
		"verdict_id", v.ID, "kind", v.Kind.String(), "score", v.Score,
		"band", v.Band.String(), "degraded", v.Degraded, "channel_id", v.ChannelID)

	if e.sink == nil {
		return nil
	}
	subjectKey := v.ChannelID + "|" + v.SubjectID
	if !e.throttle.ShouldNotify(v.Band.String(), subjectKey, v.ProducedAt) {
		e.logger.Debug("notification throttled", "band", v.Band.String(), "subject_key", subjectKey)
		return nil
	}
	n := Render(v)
	if err := e.sink.Send(ctx, n); err != nil {
		e.logger.Warn("notification send failed", "subject_key", subjectKey, "error", err)
	}
	return nil
}

// Record builds the append-only persistence shape for a verdict.
func Record(v *core.Verdict, transcript []core.Message) core.LeadRecord {
	var b strings.Builder
	for i, m := range transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", m.Timestamp.UTC().Format(time.RFC3339), m.SenderID, m.Text)
	}
	return core.LeadRecord{
		ID:            core.NewID(),
		VerdictID:     v.ID,
		Kind:          v.Kind,
		Score:         v.Score,
		Band:          v.Band,
		Degraded:      v.Degraded,
		ChannelID:     v.ChannelID,
		SubjectID:     v.SubjectID,
		SenderDisplay: v.SenderDisplay,
		Transcript:    b.String(),
		Extras:        v.Extras,
		CreatedAt:     v.ProducedAt,
	}
}

// Render builds the outbound notification for a verdict. The title carries
// the band, the body the subject, score, source channel and top structured
// signals. Degraded verdicts are visibly marked as lower confidence.
func Render(v *core.Verdict) core.Notification {
	var title string
	switch v.Band {
	case core.BandHot:
		title = "Hot lead detected"
	case core.BandWarm:
		title = "Warm lead detected"
	default:
		title = "Cold lead detected"
	}

	subject := v.SubjectID
	if v.SenderDisplay != "" {
		subject = v.SenderDisplay
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Score: %d (%s)\n", v.Score, v.Band.String())
	fmt.Fprintf(&b, "Channel: %s\n", v.ChannelID)
	fmt.Fprintf(&b, "Type: %s\n", v.Kind.String())
	if len(v.Extras.BuyingSignals) > 0 {
		fmt.Fprintf(&b, "Signals: %s\n", strings.Join(v.Extras.BuyingSignals, ", "))
	}
	if v.Extras.RecommendedAction != "" {
		fmt.Fprintf(&b, "Next step: %s\n", v.Extras.RecommendedAction)
	}
	if v.Degraded {
		b.WriteString("Note: scored without AI analysis (lower confidence)\n")
	}

	return core.Notification{
		Category:   v.Band.String(),
		SubjectKey: v.ChannelID + "|" + v.SubjectID,
		Title:      title,
		Body:       b.String(),
		CreatedAt:  v.ProducedAt,
	}
}
