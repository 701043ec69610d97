// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing core model objects (messages, sessions).
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil

import (
	"fmt"
	"time"

	"github.com/leadflow/leadflow/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().ID("m1").Sender("u1").Text("hello").At(t0).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	id        string
	channelID string
	senderID  string
	display   string
	text      string
	at        time.Time
	replyTo   string
}

// NewMessageBuilder creates a builder with defaults for channel and sender.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		id:        core.NewID(),
		channelID: "chan-test",
		senderID:  "user-test",
		at:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ID overrides the auto-generated message ID (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// Channel sets the channel ID (chainable).
func (b *MessageBuilder) Channel(id string) *MessageBuilder { b.channelID = id; return b }

// Sender sets the sender ID (chainable).
func (b *MessageBuilder) Sender(id string) *MessageBuilder { b.senderID = id; return b }

// Display sets the sender display name (chainable).
func (b *MessageBuilder) Display(d string) *MessageBuilder { b.display = d; return b }

// Text sets the message text (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder { b.text = t; return b }

// At sets the message timestamp (chainable).
func (b *MessageBuilder) At(t time.Time) *MessageBuilder { b.at = t; return b }

// ReplyTo sets the reply link (chainable).
func (b *MessageBuilder) ReplyTo(id string) *MessageBuilder { b.replyTo = id; return b }

// Build materializes the message.
func (b *MessageBuilder) Build() core.Message {
	return core.Message{
		ID:            b.id,
		ChannelID:     b.channelID,
		SenderID:      b.senderID,
		SenderDisplay: b.display,
		Text:          b.text,
		Timestamp:     b.at,
		ReplyToID:     b.replyTo,
	}
}

// SeedSession ingests n messages from distinct senders into a fresh session,
// one second apart, and returns it. Useful for tests that need a populated
// session without going through the assembler.
func SeedSession(channelID string, n int, start time.Time) *core.DialogueSession {
	sess := core.NewDialogueSession(channelID, start)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * time.Second)
		msg := core.Message{
			ID:        fmt.Sprintf("seed-%d", i),
			ChannelID: channelID,
			SenderID:  fmt.Sprintf("user-%d", i%2),
			Text:      fmt.Sprintf("seed message %d", i),
			Timestamp: at,
		}
		sess.Ingest(msg, at, core.SessionLimits{})
	}
	return sess
}
