package core

import (
	"errors"
	"time"
)

// ErrMalformedMessage indicates an inbound event missing required fields.
// Such events are dropped and logged; they never affect other sessions.
var ErrMalformedMessage = errors.New("malformed message event")

// Message is a normalized chat message event. Immutable once ingested.
// The feed is at-least-once, so consumers must be idempotent on ID.
type Message struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channel_id"`
	SenderID      string    `json:"sender_id"`
	SenderDisplay string    `json:"sender_display,omitempty"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
	ReplyToID     string    `json:"reply_to_id,omitempty"`
}

// Validate reports ErrMalformedMessage when a required field is missing.
func (m Message) Validate() error {
	if m.ID == "" || m.ChannelID == "" || m.SenderID == "" || m.Timestamp.IsZero() {
		return ErrMalformedMessage
	}
	return nil
}
