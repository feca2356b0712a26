package ws

import (
	"encoding/json"
	"fmt"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound payloads.

type createRoomPayload struct {
	Title    string `json:"title" validate:"required,max=120"`
	Language string `json:"language" validate:"max=64"`
	Topic    string `json:"topic" validate:"max=64"`
	Username string `json:"username" validate:"max=64"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required,max=64"`
}

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type sendMessagePayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type voiceActivityPayload struct {
	RoomID string  `json:"roomId" validate:"required"`
	Volume float64 `json:"volume" validate:"gte=0"`
}

type targetUserPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type setMicPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	Active bool   `json:"active"`
}

type signalPayload struct {
	Target string          `json:"target" validate:"required"`
	Signal json.RawMessage `json:"signal"`
}

// encode builds the wire frame once so fan-out only copies bytes.
func encode(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		raw = b
	}
	return json.Marshal(Message{Type: event, Payload: raw})
}
