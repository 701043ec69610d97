// Package core defines the domain model shared by every component of the
// lead-scoring engine: messages, dialogue sessions, participant profiles,
// verdicts and the collaborator interfaces for persistence and notification.
// Types here carry no external I/O; side effects live behind the interfaces
// and are invoked only by the emit package.
package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier for sessions, verdicts and records.
func NewID() string { return uuid.NewString() }

// LeadRecord is the finalized, append-only persistence shape of a verdict
// together with a snapshot of the text that produced it. Written once, never
// updated in place.
type LeadRecord struct {
	ID            string         `json:"id"`
	VerdictID     string         `json:"verdict_id"`
	Kind          VerdictKind    `json:"kind"`
	Score         int            `json:"score"`
	Band          ConfidenceBand `json:"band"`
	Degraded      bool           `json:"degraded"`
	ChannelID     string         `json:"channel_id"`
	SubjectID     string         `json:"subject_id"`
	SenderDisplay string         `json:"sender_display,omitempty"`
	Transcript    string         `json:"transcript"`
	Extras        AnalysisExtras `json:"extras"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Notification is an outbound alert event. Emitted only after the throttle
// approves it.
type Notification struct {
	Category   string    `json:"category"`
	SubjectKey string    `json:"subject_key"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// LeadStore persists finalized lead records. Implementations are append-only;
// retry/backoff on failure is the implementation's concern, not the engine's.
type LeadStore interface {
	Append(ctx context.Context, rec LeadRecord) error
}

// NotificationSink delivers approved notifications to an external channel
// (chat admins, webhook, etc.).
type NotificationSink interface {
	Send(ctx context.Context, n Notification) error
}

// AnalysisExtras carries the optional structured fields returned by the AI
// analysis service. All fields are best-effort: a malformed or missing field
// is treated as absent, never as an error.
type AnalysisExtras struct {
	Interests         []string `json:"interests,omitempty"`
	BuyingSignals     []string `json:"buying_signals,omitempty"`
	PainPoints        []string `json:"pain_points,omitempty"`
	UrgencyLevel      string   `json:"urgency_level,omitempty"`
	RecommendedAction string   `json:"recommended_action,omitempty"`
	DecisionStage     string   `json:"decision_stage,omitempty"`
	EstimatedBudget   string   `json:"estimated_budget,omitempty"`
	Timeline          string   `json:"timeline,omitempty"`
}
