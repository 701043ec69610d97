package emit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/notify"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu   sync.Mutex
	recs []core.LeadRecord
	err  error
}

func (s *memStore) Append(_ context.Context, rec core.LeadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

type memSink struct {
	mu   sync.Mutex
	sent []core.Notification
	err  error
}

func (s *memSink) Send(_ context.Context, n core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func hotVerdict() *core.Verdict {
	return &core.Verdict{
		ID:            core.NewID(),
		Kind:          core.IndividualLead,
		SubjectID:     "u1",
		ChannelID:     "ch",
		Score:         91,
		Band:          core.BandHot,
		SenderDisplay: "Ann",
		Extras: core.AnalysisExtras{
			BuyingSignals:     []string{"asked for a quote"},
			RecommendedAction: "reach out today",
		},
		ProducedAt: t0,
	}
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store, sink := &memStore{}, &memSink{}
	e := NewEmitter(store, sink, notify.NewThrottle(30*time.Minute))

	v := hotVerdict()
	transcript := []core.Message{
		{ID: "m1", SenderID: "u1", Text: "send me a quote", Timestamp: t0},
	}
	require.NoError(t, e.Emit(context.Background(), v, transcript))

	require.Len(t, store.recs, 1)
	rec := store.recs[0]
	assert.Equal(t, v.ID, rec.VerdictID)
	assert.Equal(t, core.BandHot, rec.Band)
	assert.Contains(t, rec.Transcript, "send me a quote")

	require.Len(t, sink.sent, 1)
	n := sink.sent[0]
	assert.Equal(t, "hot", n.Category)
	assert.Equal(t, "Hot lead detected", n.Title)
	assert.Contains(t, n.Body, "Ann")
	assert.Contains(t, n.Body, "Score: 91 (hot)")
	assert.Contains(t, n.Body, "reach out today")
}

func TestEmitThrottlesRepeatNotifications(t *testing.T) {
	store, sink := &memStore{}, &memSink{}
	e := NewEmitter(store, sink, notify.NewThrottle(30*time.Minute))

	v := hotVerdict()
	require.NoError(t, e.Emit(context.Background(), v, nil))

	again := hotVerdict()
	again.ProducedAt = t0.Add(5 * time.Minute)
	require.NoError(t, e.Emit(context.Background(), again, nil))

	// Both records persist; only the first notification goes out.
	assert.Len(t, store.recs, 2)
	assert.Len(t, sink.sent, 1)
}

func TestEmitStoreFailureSurfaces(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	e := NewEmitter(store, &memSink{}, notify.NewThrottle(0))

	err := e.Emit(context.Background(), hotVerdict(), nil)
	assert.Error(t, err)
}

func TestEmitSinkFailureAbsorbed(t *testing.T) {
	store := &memStore{}
	sink := &memSink{err: errors.New("webhook down")}
	e := NewEmitter(store, sink, notify.NewThrottle(0))

	assert.NoError(t, e.Emit(context.Background(), hotVerdict(), nil))
	assert.Len(t, store.recs, 1)
}

func TestEmitNilSinkPersistsOnly(t *testing.T) {
	store := &memStore{}
	e := NewEmitter(store, nil, notify.NewThrottle(0))

	assert.NoError(t, e.Emit(context.Background(), hotVerdict(), nil))
	assert.Len(t, store.recs, 1)
}

func TestRenderDegradedMarker(t *testing.T) {
	v := hotVerdict()
	v.Degraded = true
	n := Render(v)
	assert.Contains(t, n.Body, "lower confidence")
}
