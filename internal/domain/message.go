package domain

import "encoding/json"

const (
	SystemUserID = "system"
	AIHostID     = "ai-host-gemini"
	AIHostName   = "AI Tutor"
)

type ChatMessage struct {
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix millis
	Lang      string `json:"lang,omitempty"`
}

// SignalEnvelope carries an opaque negotiation payload (offer, answer or
// candidate) between two connections. Payload is never decoded.
type SignalEnvelope struct {
	SenderID string
	TargetID string
	Payload  json.RawMessage
}

type VoiceActivity struct {
	UserID string  `json:"userId"`
	Volume float64 `json:"volume"`
}
