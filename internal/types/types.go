package types

import "time"

// Message is one inbound chat message, normalized from the transport.
// The core never sees transport-specific envelopes.
type Message struct {
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	ChannelID  string    `json:"channel_id"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	IsOwner    bool      `json:"is_owner"`
}

// Action is a pending effector action (outbound send)
type Action struct {
	ID        string         `json:"id"`
	Effector  string         `json:"effector"` // discord
	Type      string         `json:"type"`     // send_message
	Payload   map[string]any `json:"payload"`
	Status    string         `json:"status"` // pending, complete, failed
	Timestamp time.Time      `json:"timestamp"`
}
