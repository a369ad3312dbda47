// Package chat defines the inbound message event model shared by the
// ingest API and the context engine.
package chat

import "time"

// Message is one chat message event as delivered by the platform bridge.
type Message struct {
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id,omitempty"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Fingerprint identifies a message for extraction dedup. Platforms that
// supply a message ID get exact dedup; otherwise we fall back to
// channel+user+timestamp.
func (m *Message) Fingerprint() string {
	if m.MessageID != "" {
		return m.ChannelID + "/" + m.MessageID
	}
	return m.ChannelID + "/" + m.Username + "/" + m.Timestamp.UTC().Format(time.RFC3339Nano)
}
